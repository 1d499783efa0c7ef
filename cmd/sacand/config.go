package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the sacand daemon.
//
// A config file is optional; without one the daemon runs on defaults and
// flags. Nothing here is ever written back.
type Config struct {
	// Mixer control to mirror
	Mixer MixerConfig `yaml:"mixer"`

	// Control channel
	Socket SocketConfig `yaml:"socket"`

	// Desktop notification
	Notify NotifyConfig `yaml:"notify"`

	// Optional WebSocket status feed
	Status StatusConfig `yaml:"status"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type MixerConfig struct {
	Device  string `yaml:"device"`  // "default" or "hw:N"
	Control string `yaml:"control"` // simple-mixer control name, e.g. "Master"
	Index   int    `yaml:"index"`
}

type SocketConfig struct {
	Path            string `yaml:"path"`
	ReadTimeoutMS   int    `yaml:"read_timeout_ms"`   // 0 disables the read deadline
	MaxPayloadBytes int    `yaml:"max_payload_bytes"` // bytes beyond this are ignored
}

type NotifyConfig struct {
	AppName      string `yaml:"app_name"`
	Summary      string `yaml:"summary"`
	Icon         string `yaml:"icon"`
	TimeoutMS    int    `yaml:"timeout_ms"` // -1 lets the server decide
	CallTimeMS   int    `yaml:"call_timeout_ms"`
	ProgressHint bool   `yaml:"progress_hint"`
}

type StatusConfig struct {
	Listen string `yaml:"listen"` // e.g. "127.0.0.1:7070"; empty disables the feed
	Path   string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, text, json
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Mixer: MixerConfig{
			Device:  defaultMixerDevice,
			Control: defaultMixerControl,
			Index:   defaultMixerIndex,
		},
		Socket: SocketConfig{
			Path:            defaultSocketPath(),
			ReadTimeoutMS:   defaultReadTimeoutMS,
			MaxPayloadBytes: defaultMaxPayloadBytes,
		},
		Notify: NotifyConfig{
			AppName:      defaultAppName,
			Summary:      defaultSummary,
			Icon:         defaultIcon,
			TimeoutMS:    defaultNotifyTimeoutMS,
			CallTimeMS:   defaultNotifyCallTimeMS,
			ProgressHint: true,
		},
		Status: StatusConfig{
			Path: defaultStatusPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// defaultSocketPath is <runtime-dir>/sacand, using the XDG runtime directory
// ($XDG_RUNTIME_DIR, or the per-user fallback).
func defaultSocketPath() string {
	return filepath.Join(xdg.RuntimeDir, socketName)
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	cfg.Socket.Path = ExpandPath(cfg.Socket.Path)
	return cfg, nil
}

// FlagOverrides holds flag values that take precedence over the file.
// A nil pointer means the flag was not set.
type FlagOverrides struct {
	MixerDevice  *string
	MixerControl *string
	MixerIndex   *int

	SocketPath    *string
	ReadTimeoutMS *int

	NotifyTimeoutMS *int

	StatusListen *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg. If the pointer is non-nil, the value
// is applied (even if it is a zero value).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.MixerDevice != nil {
		cfg.Mixer.Device = *o.MixerDevice
	}
	if o.MixerControl != nil {
		cfg.Mixer.Control = *o.MixerControl
	}
	if o.MixerIndex != nil {
		cfg.Mixer.Index = *o.MixerIndex
	}

	if o.SocketPath != nil {
		cfg.Socket.Path = ExpandPath(*o.SocketPath)
	}
	if o.ReadTimeoutMS != nil {
		cfg.Socket.ReadTimeoutMS = *o.ReadTimeoutMS
	}

	if o.NotifyTimeoutMS != nil {
		cfg.Notify.TimeoutMS = *o.NotifyTimeoutMS
	}

	if o.StatusListen != nil {
		cfg.Status.Listen = *o.StatusListen
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Mixer
	if _, err := cardIndex(c.Mixer.Device); err != nil {
		return fmt.Errorf("mixer.device: %w", err)
	}
	if c.Mixer.Control == "" {
		return errors.New("mixer.control must not be empty")
	}
	if c.Mixer.Index < 0 {
		return errors.New("mixer.index must be >= 0")
	}

	// Socket
	if c.Socket.Path == "" {
		return errors.New("socket.path must not be empty (is XDG_RUNTIME_DIR set?)")
	}
	if c.Socket.ReadTimeoutMS < 0 {
		return errors.New("socket.read_timeout_ms must be >= 0")
	}
	if c.Socket.MaxPayloadBytes <= 0 {
		return errors.New("socket.max_payload_bytes must be > 0")
	}

	// Notify
	if c.Notify.Summary == "" {
		return errors.New("notify.summary must not be empty")
	}
	if c.Notify.TimeoutMS < -1 {
		return errors.New("notify.timeout_ms must be >= -1")
	}
	if c.Notify.CallTimeMS <= 0 {
		return errors.New("notify.call_timeout_ms must be > 0")
	}

	// Status
	if c.Status.Listen != "" && (c.Status.Path == "" || c.Status.Path[0] != '/') {
		return errors.New("status.path must start with '/'")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := parseLogFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}

	return nil
}

// ReadTimeout is the per-connection read deadline; zero means none.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Socket.ReadTimeoutMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
