package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPCONSOLE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"OPCONSOLE_WS_URL", "OPCONSOLE_UPLOAD_URL", "OPCONSOLE_PROTOCOL", "OPCONSOLE_CAPTURE_BACKEND",
		"OPCONSOLE_AUDIO_FORMAT", "OPCONSOLE_TOGGLE_VOICE", "OPCONSOLE_AUDIO_INPUT_DEVICE", "PULSE_SOURCE",
		"OPCONSOLE_NOTIFY", "OPCONSOLE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Agent.WebSocketURL != "ws://localhost:8000/ws" || cfg.Agent.Protocol != ProtocolToolCalls {
		t.Fatalf("unexpected agent config: %+v", cfg.Agent)
	}
	if cfg.Upload.URL != "http://localhost:8000/api/upload-audio" || cfg.Upload.FieldName != "audio" || cfg.Upload.ToggleVoice != nil {
		t.Fatalf("unexpected upload config: %+v", cfg.Upload)
	}
	if cfg.Audio.Backend != CaptureBackendFFMPEG || cfg.Audio.Format != AudioFormatFLAC || cfg.Audio.InputDevice != "default" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if !cfg.Notify.Enabled || cfg.Logging.Level != "info" || cfg.Session.ChunkSize != 4096 {
		t.Fatalf("unexpected notify/logging/session config: %+v %+v %+v", cfg.Notify, cfg.Logging, cfg.Session)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("OPCONSOLE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("OPCONSOLE_WS_URL", "ws://agent:9000/ws")
	t.Setenv("OPCONSOLE_PROTOCOL", "STATUS")
	t.Setenv("OPCONSOLE_UPLOAD_URL", "http://agent:9000/upload")
	t.Setenv("OPCONSOLE_UPLOAD_FIELD", "file")
	t.Setenv("OPCONSOLE_TOGGLE_VOICE", "false")
	t.Setenv("OPCONSOLE_CAPTURE_BACKEND", "pulse")
	t.Setenv("OPCONSOLE_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("OPCONSOLE_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("OPCONSOLE_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("OPCONSOLE_SAMPLE_RATE", "48000")
	t.Setenv("OPCONSOLE_CHANNELS", "2")
	t.Setenv("OPCONSOLE_AUDIO_FORMAT", "wav")
	t.Setenv("OPCONSOLE_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("OPCONSOLE_NOTIFY", "off")
	t.Setenv("OPCONSOLE_NOTIFY_COMMAND", "notify-send")
	t.Setenv("OPCONSOLE_LOG_DIR", "/tmp/opconsole")
	t.Setenv("OPCONSOLE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Agent.WebSocketURL != "ws://agent:9000/ws" || cfg.Agent.Protocol != ProtocolStatus {
		t.Fatalf("unexpected agent config: %+v", cfg.Agent)
	}
	if cfg.Upload.URL != "http://agent:9000/upload" || cfg.Upload.FieldName != "file" {
		t.Fatalf("unexpected upload config: %+v", cfg.Upload)
	}
	if cfg.Upload.ToggleVoice == nil || *cfg.Upload.ToggleVoice {
		t.Fatalf("expected explicit toggle_voice=false")
	}
	if cfg.Audio.Backend != CaptureBackendPulse || cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 2 || cfg.Audio.Format != AudioFormatWAV {
		t.Fatalf("unexpected audio format config: %+v", cfg.Audio)
	}
	if cfg.Session.ChunkSize != 512 {
		t.Fatalf("unexpected chunk size %d", cfg.Session.ChunkSize)
	}
	if cfg.Notify.Enabled || cfg.Notify.Command != "notify-send" {
		t.Fatalf("unexpected notify config: %+v", cfg.Notify)
	}
	if cfg.Logging.Dir != "/tmp/opconsole" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	t.Setenv("OPCONSOLE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("OPCONSOLE_PROTOCOL", "")
	t.Setenv("OPCONSOLE_CAPTURE_BACKEND", "")
	t.Setenv("OPCONSOLE_AUDIO_FORMAT", "")
	t.Setenv("OPCONSOLE_SAMPLE_RATE", "bad")
	t.Setenv("OPCONSOLE_CHANNELS", "-1")
	t.Setenv("OPCONSOLE_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("OPCONSOLE_NOTIFY", "not-bool")
	t.Setenv("OPCONSOLE_TOGGLE_VOICE", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("expected audio defaults, got %+v", cfg.Audio)
	}
	if cfg.Session.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Session.ChunkSize)
	}
	if !cfg.Notify.Enabled {
		t.Fatalf("expected default notify true")
	}
	if cfg.Upload.ToggleVoice != nil {
		t.Fatalf("expected unparseable toggle to be omitted")
	}
}

func TestLoadRejectsUnknownEnums(t *testing.T) {
	for key, value := range map[string]string{
		"OPCONSOLE_PROTOCOL":        "v3",
		"OPCONSOLE_CAPTURE_BACKEND": "coreaudio",
		"OPCONSOLE_AUDIO_FORMAT":    "mp3",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv("OPCONSOLE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			t.Setenv("OPCONSOLE_PROTOCOL", "")
			t.Setenv("OPCONSOLE_CAPTURE_BACKEND", "")
			t.Setenv("OPCONSOLE_AUDIO_FORMAT", "")
			t.Setenv(key, value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s validation error, got %v", key, err)
			}
		})
	}
}

func TestLoadReadsEnvFileWithoutOverriding(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "opconsole.env")
	contents := "OPCONSOLE_WS_URL=ws://from-file/ws\nOPCONSOLE_UPLOAD_FIELD=from-file\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("OPCONSOLE_ENV_FILE", envFile)
	t.Setenv("OPCONSOLE_PROTOCOL", "")
	t.Setenv("OPCONSOLE_CAPTURE_BACKEND", "")
	t.Setenv("OPCONSOLE_AUDIO_FORMAT", "")
	t.Setenv("OPCONSOLE_UPLOAD_FIELD", "from-env")
	// Registers cleanup for the value the env file is about to set.
	t.Setenv("OPCONSOLE_WS_URL", "")
	if err := os.Unsetenv("OPCONSOLE_WS_URL"); err != nil {
		t.Fatalf("unsetenv failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Agent.WebSocketURL != "ws://from-file/ws" {
		t.Fatalf("expected value from env file, got %q", cfg.Agent.WebSocketURL)
	}
	if cfg.Upload.FieldName != "from-env" {
		t.Fatalf("env file must not override the environment, got %q", cfg.Upload.FieldName)
	}
}
