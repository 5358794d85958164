// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Audio       AudioConfig       `mapstructure:"audio"`
	Haptic      HapticConfig      `mapstructure:"haptic"`
	Lyrics      LyricsConfig      `mapstructure:"lyrics"`
	Transcripts TranscriptsConfig `mapstructure:"transcripts"`
	Progress    ProgressConfig    `mapstructure:"progress"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// AudioConfig selects the audio backend.
type AudioConfig struct {
	// Backend is "beep" for real speaker output or "stub" for silent runs.
	Backend string `mapstructure:"backend"`
	// BufferMs is the speaker buffer length in milliseconds.
	BufferMs int `mapstructure:"buffer_ms"`
}

// HapticConfig governs the vibration channel.
type HapticConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Chip          int     `mapstructure:"chip"`
	Channel       int     `mapstructure:"channel"`
	FreqHz        int     `mapstructure:"freq_hz"`
	BeatDuty      float64 `mapstructure:"beat_duty"`
	BeatPulseMs   int     `mapstructure:"beat_pulse_ms"`
	MelodyMinDuty float64 `mapstructure:"melody_min_duty"`
	MelodyMaxDuty float64 `mapstructure:"melody_max_duty"`
}

// LyricsConfig governs the karaoke channel.
type LyricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Color   bool `mapstructure:"color"`
}

// TranscriptsConfig selects the transcript cache provider.
type TranscriptsConfig struct {
	// Provider is one of "sqlite", "postgres", "noop".
	Provider    string `mapstructure:"provider"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ProgressConfig tunes the progress event hub.
type ProgressConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxBatchEvents int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int `mapstructure:"max_batch_wait_ms"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HAPTICSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("audio.backend", "beep")
	v.SetDefault("audio.buffer_ms", 100)
	v.SetDefault("haptic.enabled", true)
	v.SetDefault("haptic.chip", 0)
	v.SetDefault("haptic.channel", 0)
	v.SetDefault("haptic.freq_hz", 200)
	v.SetDefault("haptic.beat_duty", 75)
	v.SetDefault("haptic.beat_pulse_ms", 80)
	v.SetDefault("haptic.melody_min_duty", 20)
	v.SetDefault("haptic.melody_max_duty", 60)
	v.SetDefault("lyrics.enabled", true)
	v.SetDefault("lyrics.color", true)
	v.SetDefault("transcripts.provider", "sqlite")
	v.SetDefault("transcripts.sqlite_path", "transcripts.db")
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 256)
	v.SetDefault("progress.max_batch_wait_ms", 250)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Audio.Backend {
	case "beep", "stub":
	default:
		return fmt.Errorf("audio.backend must be beep or stub, got %q", c.Audio.Backend)
	}
	if c.Audio.BufferMs <= 0 {
		return fmt.Errorf("audio.buffer_ms must be > 0")
	}
	if c.Haptic.Enabled {
		if c.Haptic.FreqHz <= 0 {
			return fmt.Errorf("haptic.freq_hz must be > 0")
		}
		if c.Haptic.BeatDuty < 0 || c.Haptic.BeatDuty > 100 {
			return fmt.Errorf("haptic.beat_duty must be within [0, 100]")
		}
		if c.Haptic.MelodyMinDuty < 0 || c.Haptic.MelodyMaxDuty > 100 ||
			c.Haptic.MelodyMinDuty > c.Haptic.MelodyMaxDuty {
			return fmt.Errorf("haptic melody duty range [%v, %v] is invalid",
				c.Haptic.MelodyMinDuty, c.Haptic.MelodyMaxDuty)
		}
		if c.Haptic.BeatPulseMs < 0 {
			return fmt.Errorf("haptic.beat_pulse_ms must be >= 0")
		}
	}
	switch c.Transcripts.Provider {
	case "sqlite":
		if c.Transcripts.SQLitePath == "" {
			return fmt.Errorf("transcripts.sqlite_path must be set for the sqlite provider")
		}
	case "postgres":
		if c.Transcripts.PostgresDSN == "" {
			return fmt.Errorf("transcripts.postgres_dsn must be set for the postgres provider")
		}
	case "noop":
	default:
		return fmt.Errorf("transcripts.provider must be sqlite, postgres, or noop, got %q",
			c.Transcripts.Provider)
	}
	return nil
}

// AudioBuffer converts the configured buffer length into a duration.
func (c Config) AudioBuffer() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// BeatPulse converts the beat hold length into a duration.
func (c Config) BeatPulse() time.Duration {
	return time.Duration(c.Haptic.BeatPulseMs) * time.Millisecond
}
