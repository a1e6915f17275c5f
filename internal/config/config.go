// Package config provides configuration management for the input daemon.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config represents the daemon configuration
type Config struct {
	// Server contains the listener and authentication settings
	Server ServerConfig `json:"server"`

	// Input contains the injection backend and pacing settings
	Input InputConfig `json:"input"`

	// Log contains logging settings
	Log LogConfig `json:"log"`

	// Tray contains status icon settings
	Tray TrayConfig `json:"tray"`
}

// ServerConfig contains listener settings
type ServerConfig struct {
	// ListenAddr is the TCP address controllers connect to (e.g. "127.0.0.1:7878")
	ListenAddr string `json:"listen_addr"`

	// WSAddr enables the websocket listener when non-empty
	WSAddr string `json:"ws_addr,omitempty"`

	// WSPath is the websocket endpoint path
	WSPath string `json:"ws_path,omitempty"`

	// SecretFile holds the shared HMAC secret
	SecretFile string `json:"secret_file"`

	// AuthTimeout bounds the authentication read and rejection write
	AuthTimeout Duration `json:"auth_timeout"`

	// FrameSize is the largest message read at once
	FrameSize int `json:"frame_size"`

	// AuthRate is the sustained number of authentication attempts per second;
	// zero disables throttling
	AuthRate float64 `json:"auth_rate"`

	// AuthBurst is how many attempts may arrive back to back
	AuthBurst int `json:"auth_burst"`

	// KeepAlive is the idle period before an authenticated session is probed
	KeepAlive Duration `json:"keep_alive"`
}

// InputConfig contains backend settings
type InputConfig struct {
	// Display is the X display to connect to; empty means $DISPLAY
	Display string `json:"display,omitempty"`

	// DryRun logs events instead of injecting them
	DryRun bool `json:"dry_run"`

	// ScreenWidth and ScreenHeight override the detected screen size
	ScreenWidth  int `json:"screen_width,omitempty"`
	ScreenHeight int `json:"screen_height,omitempty"`

	// PointerStep is the largest per-axis pointer move per tick, in percent
	PointerStep int `json:"pointer_step"`

	// PointerInterval is the pointer tick period
	PointerInterval Duration `json:"pointer_interval"`

	// KeySettle is the pause after each key or button edge
	KeySettle Duration `json:"key_settle"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

// TrayConfig contains status icon settings
type TrayConfig struct {
	Enabled bool `json:"enabled"`
}

// Duration is a time.Duration that reads and writes as a string such as "5s".
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(b, &n); nerr != nil {
			return fmt.Errorf("duration must be a string like \"5s\": %w", err)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  "127.0.0.1:7878",
			WSPath:      "/kbm",
			SecretFile:  defaultSecretPath(),
			AuthTimeout: Duration(5 * time.Second),
			FrameSize:   100,
			AuthRate:    1,
			AuthBurst:   5,
			KeepAlive:   Duration(30 * time.Second),
		},
		Input: InputConfig{
			PointerStep:     1,
			PointerInterval: Duration(4 * time.Millisecond),
			KeySettle:       Duration(50 * time.Millisecond),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if _, _, err := net.SplitHostPort(c.Server.ListenAddr); err != nil {
		errs = append(errs, fmt.Errorf("server.listen_addr: %w", err))
	}
	if c.Server.WSAddr != "" {
		if _, _, err := net.SplitHostPort(c.Server.WSAddr); err != nil {
			errs = append(errs, fmt.Errorf("server.ws_addr: %w", err))
		}
		if !strings.HasPrefix(c.Server.WSPath, "/") || c.Server.WSPath == "/health" {
			errs = append(errs, fmt.Errorf("server.ws_path %q must start with / and not be /health", c.Server.WSPath))
		}
	}
	if c.Server.SecretFile == "" {
		errs = append(errs, errors.New("server.secret_file is required"))
	}
	if c.Server.AuthTimeout <= 0 {
		errs = append(errs, errors.New("server.auth_timeout must be positive"))
	}
	if c.Server.FrameSize < 1 || c.Server.FrameSize > 4096 {
		errs = append(errs, fmt.Errorf("server.frame_size %d out of range 1-4096", c.Server.FrameSize))
	}
	if c.Server.AuthRate < 0 {
		errs = append(errs, errors.New("server.auth_rate must not be negative"))
	}
	if c.Server.AuthRate > 0 && c.Server.AuthBurst < 1 {
		errs = append(errs, errors.New("server.auth_burst must be at least 1"))
	}
	if c.Input.PointerStep < 1 || c.Input.PointerStep > 100 {
		errs = append(errs, fmt.Errorf("input.pointer_step %d out of range 1-100", c.Input.PointerStep))
	}
	if c.Input.PointerInterval <= 0 {
		errs = append(errs, errors.New("input.pointer_interval must be positive"))
	}
	if c.Input.ScreenWidth < 0 || c.Input.ScreenHeight < 0 {
		errs = append(errs, errors.New("input screen size must not be negative"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a configuration manager for path. An empty path selects the
// per-user default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	return m.configPath
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "kbmd"), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kbmd"), nil
	}
	return filepath.Join(home, ".config", "kbmd"), nil
}

func defaultSecretPath() string {
	dir, err := configDir()
	if err != nil {
		return "secret"
	}
	return filepath.Join(dir, "secret")
}

// Load reads the configuration from disk. A missing file leaves the defaults in
// place.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	m.config = cfg
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return err
	}

	log.WithField("component", "config").Infof("saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0o644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set replaces the configuration
func (m *Manager) Set(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
}
