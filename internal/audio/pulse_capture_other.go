//go:build !linux

package audio

import (
	"context"
	"errors"

	"opconsole/internal/ports"
)

var errPulseUnsupported = errors.New("pulse capture backend is only available on linux")

type PulseCapture struct{}

func NewPulseCapture() (*PulseCapture, error) {
	return nil, errPulseUnsupported
}

func (c *PulseCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	return nil, errPulseUnsupported
}
