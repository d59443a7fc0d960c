// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	applog "pitchmidi/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug        bool               `yaml:"debug"`        // Force debug logging.
	LogLevel     string             `yaml:"log_level"`    // Logging level (e.g., "debug", "info", "warn", "error").
	Voicing      VoicingConfig      `yaml:"voicing"`      // Voicing classifier settings.
	Segmentation SegmentationConfig `yaml:"segmentation"` // Note segmenter settings.
	Midi         MidiConfig         `yaml:"midi"`         // MIDI file settings.
	Transport    TransportConfig    `yaml:"transport"`    // Result publishing settings.
}

// VoicingConfig decides which frames count as pitched.
type VoicingConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // Exclusive lower bound on confidence, in [0,1].
	MinHz               float64 `yaml:"min_hz"`               // Lowest admissible pitch.
	MaxHz               float64 `yaml:"max_hz"`               // Highest admissible pitch.
}

// SegmentationConfig tunes how voiced frames are grouped into notes.
type SegmentationConfig struct {
	SplitSemitoneThreshold float64 `yaml:"split_semitone_threshold"` // Pitch jump that starts a new note.
	MinNoteDuration        float64 `yaml:"min_note_duration"`        // Seconds; shorter notes are dropped.
	UnvoicedGracePeriod    float64 `yaml:"unvoiced_grace_period"`    // Seconds of silence tolerated inside a note.
}

// MidiConfig holds settings for the written MIDI file.
type MidiConfig struct {
	TempoBPM float64 `yaml:"tempo_bpm"` // Tempo written to the file; note times are unaffected.
	Velocity int     `yaml:"velocity"`  // Note-on velocity, 0-127.
}

// TransportConfig holds settings related to publishing results over the network.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve results to WebSocket clients.
	WebSocketAddress string `yaml:"websocket_address"` // Listen address, e.g. "127.0.0.1:8765".
}

// NewDefaultConfig returns a Config populated with built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Voicing: VoicingConfig{
			ConfidenceThreshold: DefaultConfidenceThreshold,
			MinHz:               DefaultMinHz,
			MaxHz:               DefaultMaxHz,
		},
		Segmentation: SegmentationConfig{
			SplitSemitoneThreshold: DefaultSplitSemitoneThreshold,
			MinNoteDuration:        DefaultMinNoteDuration,
			UnvoicedGracePeriod:    DefaultUnvoicedGracePeriod,
		},
		Midi: MidiConfig{
			TempoBPM: DefaultTempoBPM,
			Velocity: DefaultVelocity,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddress: DefaultWebSocketAddress,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches DefaultConfigFiles in the working directory. If no file is found, it uses
// built-in defaults. After loading, it applies environment variable overrides and
// validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path == "" {
		for _, candidate := range DefaultConfigFiles {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if err := c.Voicing.Validate(); err != nil {
		return fmt.Errorf("voicing: %w", err)
	}
	if err := c.Segmentation.Validate(); err != nil {
		return fmt.Errorf("segmentation: %w", err)
	}
	if err := c.Midi.Validate(); err != nil {
		return fmt.Errorf("midi: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	return nil
}

// Validate validates the voicing configuration.
func (c *VoicingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ConfidenceThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MinHz, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.MaxHz, validation.Required, validation.Min(c.MinHz)),
	)
}

// Validate validates the segmentation configuration.
func (c *SegmentationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SplitSemitoneThreshold, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.MinNoteDuration, validation.Min(0.0)),
		validation.Field(&c.UnvoicedGracePeriod, validation.Min(0.0)),
	)
}

// Validate validates the MIDI configuration.
func (c *MidiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TempoBPM, validation.Required, validation.Min(MinTempoBPM), validation.Max(MaxTempoBPM)),
		validation.Field(&c.Velocity, validation.Min(0), validation.Max(MaxVelocity)),
	)
}

// Validate validates the transport configuration.
func (c *TransportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WebSocketAddress, validation.When(c.WebSocketEnabled, validation.Required)),
	)
}

// applyEnvOverrides lets ENV_* variables override file and default values.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("configuration: Overriding log_level from env: %s", val)
	}

	if val, ok := os.LookupEnv("ENV_CONFIDENCE_THRESHOLD"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Voicing.ConfidenceThreshold = fVal
			applog.Debugf("configuration: Overriding voicing.confidence_threshold from env: %v", fVal)
		}
	}

	if val, ok := os.LookupEnv("ENV_TEMPO_BPM"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Midi.TempoBPM = fVal
			applog.Debugf("configuration: Overriding midi.tempo_bpm from env: %v", fVal)
		}
	}

	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			applog.Debugf("configuration: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}
}
