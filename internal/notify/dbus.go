package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsMethod = "org.freedesktop.Notifications.Notify"
	expireTimeoutMillis = int32(5000)
)

// DBusNotifier sends desktop notifications over the session bus.
type DBusNotifier struct {
	appName string
	connect func() (*dbus.Conn, error)
}

func NewDBusNotifier(appName string) *DBusNotifier {
	if appName == "" {
		appName = "opconsole"
	}
	return &DBusNotifier{
		appName: appName,
		connect: func() (*dbus.Conn, error) { return dbus.SessionBusPrivate() },
	}
}

func (n *DBusNotifier) Notify(ctx context.Context, title string, body string) error {
	conn, err := n.connect()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	if err := conn.Auth(nil); err != nil {
		return fmt.Errorf("authenticate session bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		return fmt.Errorf("session bus hello: %w", err)
	}

	call := conn.Object(notificationsDest, notificationsPath).CallWithContext(
		ctx,
		notificationsMethod,
		0,
		n.appName,
		uint32(0),
		"",
		title,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireTimeoutMillis,
	)
	if call.Err != nil {
		return fmt.Errorf("send notification: %w", call.Err)
	}
	return nil
}
