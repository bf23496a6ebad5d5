package bootstrap

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"opconsole/internal/agent"
	"opconsole/internal/audio"
	"opconsole/internal/config"
	"opconsole/internal/encoder"
	"opconsole/internal/logging"
	"opconsole/internal/notify"
	"opconsole/internal/ports"
	"opconsole/internal/realtime"
	"opconsole/internal/upload"
	"opconsole/internal/usecase"
)

// Options carries what the hosting shell provides.
type Options struct {
	// Window executes set_hidden commands; nil ignores them.
	Window ports.WindowController
	// DefaultLogDir is used when OPCONSOLE_LOG_DIR is unset. Empty logs to stderr.
	DefaultLogDir string
}

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Logger     zerolog.Logger
	Store      *agent.Store
	Recorder   *usecase.Recorder
	Connection *realtime.Manager

	logCloser io.Closer
}

// Build wires all backend dependencies for the current runtime. The realtime
// connection is constructed but not opened.
func Build(opts Options) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = opts.DefaultLogDir
	}
	logger, logCloser, err := logging.New(logging.Config{Dir: cfg.Logging.Dir, Level: cfg.Logging.Level})
	if err != nil {
		return nil, err
	}

	capture, err := newCapture(cfg.Audio)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	enc, err := encoder.New(cfg.Audio.Format)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	protocol, err := agent.ParseProtocol(cfg.Agent.Protocol)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	store := agent.NewStore(agent.NewReducer(protocol), opts.Window, logger)

	uploader := upload.NewClient(upload.Options{
		Endpoint:  cfg.Upload.URL,
		FieldName: cfg.Upload.FieldName,
		Notifier: notify.New(notify.Config{
			Enabled: cfg.Notify.Enabled,
			Command: cfg.Notify.Command,
			AppName: "opconsole",
		}),
		Logger: logger,
	})

	recorder := usecase.NewRecorder(
		capture,
		enc,
		uploader,
		store,
		logger,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize: cfg.Session.ChunkSize,
			Upload:    ports.UploadOptions{ToggleVoice: cfg.Upload.ToggleVoice},
		},
	)

	connection := realtime.NewManager(cfg.Agent.WebSocketURL, store, logger)

	logger.Info().
		Str("ws_url", cfg.Agent.WebSocketURL).
		Str("upload_url", cfg.Upload.URL).
		Str("protocol", string(protocol)).
		Str("capture", cfg.Audio.Backend).
		Str("format", cfg.Audio.Format).
		Msg("services ready")

	return &Services{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Recorder:   recorder,
		Connection: connection,
		logCloser:  logCloser,
	}, nil
}

func newCapture(cfg config.AudioConfig) (ports.AudioCapture, error) {
	if cfg.Backend == config.CaptureBackendPulse {
		capture, err := audio.NewPulseCapture()
		if err != nil {
			return nil, err
		}
		return capture, nil
	}
	return audio.NewFFMPEGCapture(cfg.RecorderCommand), nil
}

// Close tears the runtime down: the connection first, then the microphone.
func (s *Services) Close() error {
	var errs []error
	if s.Connection != nil {
		errs = append(errs, s.Connection.Close())
	}
	if s.Recorder != nil {
		errs = append(errs, s.Recorder.Close())
	}
	if s.logCloser != nil {
		errs = append(errs, s.logCloser.Close())
	}
	return errors.Join(errs...)
}
