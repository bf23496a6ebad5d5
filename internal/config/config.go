package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	CaptureBackendFFMPEG = "ffmpeg"
	CaptureBackendPulse  = "pulse"

	ProtocolToolCalls = "tool_calls"
	ProtocolStatus    = "status"

	AudioFormatFLAC = "flac"
	AudioFormatWAV  = "wav"
)

// Config stores runtime configuration for the operator console.
type Config struct {
	Agent   AgentConfig
	Audio   AudioConfig
	Upload  UploadConfig
	Notify  NotifyConfig
	Logging LoggingConfig
	Session SessionConfig
}

type AgentConfig struct {
	WebSocketURL string
	Protocol     string
}

type AudioConfig struct {
	Backend         string
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	Format          string
}

type UploadConfig struct {
	URL       string
	FieldName string
	// ToggleVoice is nil when the query flag should be omitted.
	ToggleVoice *bool
}

type NotifyConfig struct {
	Enabled bool
	Command string
}

type LoggingConfig struct {
	Dir   string
	Level string
}

type SessionConfig struct {
	ChunkSize int
}

// Load resolves configuration from an optional dotenv file, environment variables
// and defaults. Variables already set in the environment win over the file.
func Load() (Config, error) {
	envFile := envOrDefault("OPCONSOLE_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := Config{
		Agent: AgentConfig{
			WebSocketURL: envOrDefault("OPCONSOLE_WS_URL", "ws://localhost:8000/ws"),
			Protocol:     strings.ToLower(envOrDefault("OPCONSOLE_PROTOCOL", ProtocolToolCalls)),
		},
		Audio: AudioConfig{
			Backend:         strings.ToLower(envOrDefault("OPCONSOLE_CAPTURE_BACKEND", CaptureBackendFFMPEG)),
			RecorderCommand: envOrDefault("OPCONSOLE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("OPCONSOLE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("OPCONSOLE_AUDIO_INPUT_DEVICE"),
				os.Getenv("PULSE_SOURCE"),
				"default",
			),
			SampleRate: envOrDefaultInt("OPCONSOLE_SAMPLE_RATE", 16000),
			Channels:   envOrDefaultInt("OPCONSOLE_CHANNELS", 1),
			Format:     strings.ToLower(envOrDefault("OPCONSOLE_AUDIO_FORMAT", AudioFormatFLAC)),
		},
		Upload: UploadConfig{
			URL:         envOrDefault("OPCONSOLE_UPLOAD_URL", "http://localhost:8000/api/upload-audio"),
			FieldName:   envOrDefault("OPCONSOLE_UPLOAD_FIELD", "audio"),
			ToggleVoice: envOptionalBool("OPCONSOLE_TOGGLE_VOICE"),
		},
		Notify: NotifyConfig{
			Enabled: envOrDefaultBool("OPCONSOLE_NOTIFY", true),
			Command: strings.TrimSpace(os.Getenv("OPCONSOLE_NOTIFY_COMMAND")),
		},
		Logging: LoggingConfig{
			Dir:   strings.TrimSpace(os.Getenv("OPCONSOLE_LOG_DIR")),
			Level: strings.ToLower(envOrDefault("OPCONSOLE_LOG_LEVEL", "info")),
		},
		Session: SessionConfig{
			ChunkSize: envOrDefaultInt("OPCONSOLE_AUDIO_CHUNK_SIZE", 4096),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 || cfg.Audio.Channels > 2 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Agent.Protocol {
	case ProtocolToolCalls, ProtocolStatus:
	default:
		return fmt.Errorf("OPCONSOLE_PROTOCOL: unsupported value %q", c.Agent.Protocol)
	}
	switch c.Audio.Backend {
	case CaptureBackendFFMPEG, CaptureBackendPulse:
	default:
		return fmt.Errorf("OPCONSOLE_CAPTURE_BACKEND: unsupported value %q", c.Audio.Backend)
	}
	switch c.Audio.Format {
	case AudioFormatFLAC, AudioFormatWAV:
	default:
		return fmt.Errorf("OPCONSOLE_AUDIO_FORMAT: unsupported value %q", c.Audio.Format)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	if value := envOptionalBool(key); value != nil {
		return *value
	}
	return fallback
}

func envOptionalBool(key string) *bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	var parsed bool
	switch value {
	case "1", "true", "yes", "on":
		parsed = true
	case "0", "false", "no", "off":
		parsed = false
	default:
		return nil
	}
	return &parsed
}
