// ABOUTME: YAML configuration for the resampler binaries
// ABOUTME: Loads, defaults and validates track, queue, logging and server settings
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/resonate-resampler/internal/queue"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete configuration
type Config struct {
	Input   TrackConfig   `yaml:"input"`
	Output  TrackConfig   `yaml:"output"`
	Queue   QueueConfig   `yaml:"queue"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// TrackConfig describes one side of the stage. Input settings apply to raw
// PCM and tone sources; decoded files carry their own parameters.
type TrackConfig struct {
	SampleRate      int    `yaml:"sample_rate"`
	SampleFormat    string `yaml:"sample_format"`
	ChannelLayout   string `yaml:"channel_layout"`
	Timebase        string `yaml:"timebase"` // "num/den", empty for 1/sample_rate
	SamplesPerFrame int    `yaml:"samples_per_frame"`
}

// QueueConfig contains input queue settings
type QueueConfig struct {
	Name      string `yaml:"name"`
	Threshold int    `yaml:"threshold"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ServerConfig contains streaming server settings
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Audio    string `yaml:"audio"` // file to stream, empty for a test tone
	Codec    string `yaml:"codec"`
	BitDepth int    `yaml:"bit_depth"`
	Loop     bool   `yaml:"loop"`
	MDNS     bool   `yaml:"mdns"`
	TUI      bool   `yaml:"tui"`
}

// Default returns a configuration converting 44.1kHz s16 stereo to
// 48kHz float stereo in 20ms frames
func Default() *Config {
	return &Config{
		Input: TrackConfig{
			SampleRate:      44100,
			SampleFormat:    "s16",
			ChannelLayout:   "stereo",
			SamplesPerFrame: 1024,
		},
		Output: TrackConfig{
			SampleRate:      48000,
			SampleFormat:    "flt",
			ChannelLayout:   "stereo",
			SamplesPerFrame: 960,
		},
		Queue: QueueConfig{
			Name:      queue.DefaultAlias,
			Threshold: queue.DefaultThreshold,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:     8927,
			Codec:    "pcm",
			BitDepth: 16,
			MDNS:     true,
		},
	}
}

// Load reads a YAML file on top of Default and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	return nil
}

// Track converts the settings to a track descriptor
func (t *TrackConfig) Track() (audio.Track, error) {
	format, err := audio.ParseSampleFormat(t.SampleFormat)
	if err != nil {
		return audio.Track{}, fmt.Errorf("%w: sample_format: %w", ErrInvalidConfig, err)
	}

	layout, err := audio.ParseChannelLayout(t.ChannelLayout)
	if err != nil {
		return audio.Track{}, fmt.Errorf("%w: channel_layout: %w", ErrInvalidConfig, err)
	}

	tb := audio.TimebaseForRate(t.SampleRate)
	if t.Timebase != "" {
		if tb, err = audio.ParseTimebase(t.Timebase); err != nil {
			return audio.Track{}, fmt.Errorf("%w: timebase: %w", ErrInvalidConfig, err)
		}
	}

	track := audio.Track{
		SampleRate:      t.SampleRate,
		SampleFormat:    format,
		Layout:          layout,
		Timebase:        tb,
		SamplesPerFrame: t.SamplesPerFrame,
	}
	if err := track.Validate(); err != nil {
		return audio.Track{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return track, nil
}

// Validate validates track configuration
func (t *TrackConfig) Validate() error {
	if t.SamplesPerFrame < 1 {
		return fmt.Errorf("%w: samples_per_frame must be at least 1, got %d", ErrInvalidConfig, t.SamplesPerFrame)
	}
	_, err := t.Track()
	return err
}

// Validate validates queue configuration
func (q *QueueConfig) Validate() error {
	if q.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfig, q.Threshold)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("%w: level must be one of [debug, info, warn, error], got '%s'", ErrInvalidConfig, l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("%w: format must be 'json' or 'text', got '%s'", ErrInvalidConfig, l.Format)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidConfig, s.Port)
	}

	if s.Codec != "pcm" && s.Codec != "opus" {
		return fmt.Errorf("%w: codec must be 'pcm' or 'opus', got '%s'", ErrInvalidConfig, s.Codec)
	}

	if s.BitDepth != 16 && s.BitDepth != 24 {
		return fmt.Errorf("%w: bit_depth must be 16 or 24, got %d", ErrInvalidConfig, s.BitDepth)
	}

	return nil
}
