// Package config loads trialgate settings from defaults, an optional YAML
// file and TRIALGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/trialgate/internal/gate"
	"github.com/abhisek/trialgate/internal/logging"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/stimuli"
)

// Config is the top-level configuration structure.
type Config struct {
	Study   StudyConfig   `mapstructure:"study"`
	Timing  TimingConfig  `mapstructure:"timing"`
	Gate    GateConfig    `mapstructure:"gate"`
	CheckIn CheckInConfig `mapstructure:"checkin"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StudyConfig holds the deployment settings.
type StudyConfig struct {
	StimulusDir string `mapstructure:"stimulus_dir"`
	StimuliFile string `mapstructure:"stimuli_file"`

	// Year is the deployment year of access codes. Zero means the current year.
	Year     int    `mapstructure:"year"`
	Timezone string `mapstructure:"timezone"`
}

// TimingConfig holds trial timing.
type TimingConfig struct {
	LeadIn []time.Duration `mapstructure:"lead_in"`
	Key    KeyTiming       `mapstructure:"key"`
	Click  ClickTiming     `mapstructure:"click"`
}

// KeyTiming holds the timing of key-press trials.
type KeyTiming struct {
	StimulusVisible time.Duration `mapstructure:"stimulus_visible"`
	AdvanceAfter    time.Duration `mapstructure:"advance_after"`
}

// ClickTiming holds the timing of click trials.
type ClickTiming struct {
	ISI time.Duration `mapstructure:"isi"`
}

// GateConfig holds the accuracy gate policy.
type GateConfig struct {
	Threshold   float64       `mapstructure:"threshold"`
	ShortOffset int           `mapstructure:"short_offset"` // minutes
	LongOffset  int           `mapstructure:"long_offset"`  // days
	Window      time.Duration `mapstructure:"window"`
}

// CheckInConfig holds the check-in window issued after a return session.
type CheckInConfig struct {
	StartAfter time.Duration `mapstructure:"start_after"`
	Window     time.Duration `mapstructure:"window"`
}

// StoreConfig holds submission store settings.
type StoreConfig struct {
	DB string `mapstructure:"db"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Study defaults
	v.SetDefault("study.stimulus_dir", "stim/")
	v.SetDefault("study.stimuli_file", "")
	v.SetDefault("study.year", 0)
	v.SetDefault("study.timezone", "")

	// Timing defaults
	v.SetDefault("timing.lead_in", []time.Duration{1500 * time.Millisecond})
	v.SetDefault("timing.key.stimulus_visible", 200*time.Millisecond)
	v.SetDefault("timing.key.advance_after", 1800*time.Millisecond)
	v.SetDefault("timing.click.isi", 500*time.Millisecond)

	// Gate defaults
	v.SetDefault("gate.threshold", 0.8)
	v.SetDefault("gate.short_offset", 10) // minutes
	v.SetDefault("gate.long_offset", 2)   // days
	v.SetDefault("gate.window", 24*time.Hour)

	// Check-in defaults
	v.SetDefault("checkin.start_after", 60*time.Hour)
	v.SetDefault("checkin.window", 24*time.Hour)

	// Store defaults; empty resolves through store.DefaultDBPath.
	v.SetDefault("store.db", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

// Default returns the configuration built from defaults alone. It panics
// if the defaults do not decode into Config.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	return &c
}

// Load reads the configuration. An explicit path must exist; otherwise
// trialgate.yaml is searched in the working directory and the user config
// directory, and a missing file is fine.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("trialgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "trialgate"))
		}
	}

	v.SetEnvPrefix("TRIALGATE") // e.g., TRIALGATE_GATE_THRESHOLD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// TRIALGATE_DB is the documented shorthand for store.db.
	if err := v.BindEnv("store.db", "TRIALGATE_STORE_DB", "TRIALGATE_DB"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func configHome() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return d
	}
	d, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return d
}

// Validate checks the settings that decoding cannot.
func (c *Config) Validate() error {
	if err := c.GatePolicy().Validate(); err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Study.Year < 0 {
		return fmt.Errorf("study.year %d: must not be negative", c.Study.Year)
	}
	return nil
}

// Location resolves study.timezone. Empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Study.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Study.Timezone)
	if err != nil {
		return nil, fmt.Errorf("study.timezone: %w", err)
	}
	return loc, nil
}

// CodeYear returns the deployment year of access codes at time now.
func (c *Config) CodeYear(now time.Time) int {
	if c.Study.Year != 0 {
		return c.Study.Year
	}
	return now.Year()
}

// GatePolicy converts the gate settings.
func (c *Config) GatePolicy() gate.Policy {
	return gate.Policy{
		Threshold:   c.Gate.Threshold,
		ShortOffset: time.Duration(c.Gate.ShortOffset) * time.Minute,
		LongOffset:  time.Duration(c.Gate.LongOffset) * 24 * time.Hour,
		Window:      c.Gate.Window,
	}
}

// CheckInPolicy converts the check-in settings.
func (c *Config) CheckInPolicy() gate.CheckInPolicy {
	return gate.CheckInPolicy{StartAfter: c.CheckIn.StartAfter, Window: c.CheckIn.Window}
}

// SessionTiming converts the timing settings.
func (c *Config) SessionTiming() session.Timing {
	return session.Timing{
		LeadIn:          c.Timing.LeadIn,
		StimulusVisible: c.Timing.Key.StimulusVisible,
		AdvanceAfter:    c.Timing.Key.AdvanceAfter,
		ClickISI:        c.Timing.Click.ISI,
	}
}

// LoggingOptions converts the logging settings.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
	}
}

// Document loads the stimulus configuration. Without study.stimuli_file
// the built-in document is used, rooted at study.stimulus_dir.
func (c *Config) Document() (*stimuli.Document, error) {
	if c.Study.StimuliFile != "" {
		doc, err := stimuli.LoadFile(c.Study.StimuliFile)
		if err != nil {
			return nil, fmt.Errorf("study.stimuli_file: %w", err)
		}
		return doc, nil
	}
	doc := stimuli.Default()
	if c.Study.StimulusDir != "" {
		doc.StimulusDir = c.Study.StimulusDir
	}
	return doc, nil
}
