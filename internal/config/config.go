// Package config provides the configuration schema and loader for the
// voxgate server.
package config

import (
	"github.com/MrWong99/voxgate/pkg/vad"
)

// LogLevel controls log verbosity for the voxgate server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxgate.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Detector DetectorConfig `yaml:"detector"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds the HTTP/websocket listener settings.
type ServerConfig struct {
	// ListenAddr is the host:port the server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel selects slog verbosity. Empty means info.
	LogLevel LogLevel `yaml:"log_level"`

	// ReadLimitBytes caps a single websocket message. Zero means the
	// default of 1 MiB, which fits any legal frame with headroom.
	ReadLimitBytes int64 `yaml:"read_limit_bytes"`
}

// DetectorConfig holds the defaults applied to stream sessions that do not
// override them in their start message.
type DetectorConfig struct {
	// Engine names the detector backend. Only "webrtc" ships with voxgate.
	Engine string `yaml:"engine"`

	// SampleRate in Hz: 8000, 16000, 32000 or 48000.
	SampleRate int `yaml:"sample_rate"`

	// FrameSize in samples; must pair with SampleRate to 10, 20 or 30 ms.
	FrameSize int `yaml:"frame_size"`

	// Mode is the aggressiveness name: normal, low_bitrate, aggressive or
	// very_aggressive.
	Mode string `yaml:"mode"`

	// SpeechDurationMs and SilenceDurationMs configure the debouncer.
	SpeechDurationMs  int `yaml:"speech_duration_ms"`
	SilenceDurationMs int `yaml:"silence_duration_ms"`

	// LevelTriggered selects the sticky hysteresis policy kept for parity
	// with older deployments.
	LevelTriggered bool `yaml:"level_triggered"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when a field is absent from the
// YAML file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     ":8090",
			LogLevel:       LogInfo,
			ReadLimitBytes: 1 << 20,
		},
		Detector: DetectorConfig{
			Engine:            vad.EngineWebRTC,
			SampleRate:        16000,
			FrameSize:         320,
			Mode:              vad.ModeVeryAggressive.String(),
			SpeechDurationMs:  300,
			SilenceDurationMs: 600,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// VADConfig converts the detector section into the engine configuration,
// parsing the mode name.
func (d DetectorConfig) VADConfig() (vad.Config, error) {
	mode, err := vad.ParseMode(d.Mode)
	if err != nil {
		return vad.Config{}, err
	}
	cfg := vad.Config{
		SampleRate:        d.SampleRate,
		FrameSize:         d.FrameSize,
		Mode:              mode,
		SpeechDurationMs:  d.SpeechDurationMs,
		SilenceDurationMs: d.SilenceDurationMs,
		LevelTriggered:    d.LevelTriggered,
	}
	return cfg, cfg.Validate()
}
