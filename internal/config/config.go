// Package config loads meetingnote settings: YAML file over defaults, then
// environment overrides.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Language is the dictation language tag.
	Language string `yaml:"language"`
	// Delimiter is appended after every dictated chunk.
	Delimiter    string          `yaml:"delimiter"`
	UserID       string          `yaml:"user_id"`
	IdentityFile string          `yaml:"identity_file"`
	Store        StoreConfig     `yaml:"store"`
	Dictation    DictationConfig `yaml:"dictation"`
	Enrich       EnrichConfig    `yaml:"enrich"`
	LogLevel     string          `yaml:"log_level"`
	LogFile      string          `yaml:"log_file"`
}

// StoreConfig selects and configures the note store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "sqlite" or "firestore"
	// Path is the SQLite file. Empty uses the XDG data directory.
	Path        string `yaml:"path"`
	ProjectID   string `yaml:"project_id"`
	Collection  string `yaml:"collection"`
	Credentials string `yaml:"credentials"`
}

// DictationConfig points at the speech daemon. An empty Socket uses the
// daemon's default location.
type DictationConfig struct {
	Socket string `yaml:"socket"`
}

// EnrichConfig configures the text enrichment service.
type EnrichConfig struct {
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "meetingnote")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultStateDir is where the log file lives.
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "meetingnote")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Language:     "km-KH",
		Delimiter:    "។ ",
		IdentityFile: filepath.Join(DefaultConfigDir(), "identity"),
		Store: StoreConfig{
			Backend:    "sqlite",
			Collection: "meetingNotes",
		},
		Enrich: EnrichConfig{
			Model:   "gemini-2.0-flash",
			Timeout: 60 * time.Second,
		},
		LogLevel: "info",
		LogFile:  filepath.Join(DefaultStateDir(), "meetingnote.log"),
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. A leading ~ in paths is expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.expandPaths()
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("MEETINGNOTE_USER_ID"); ok && v != "" {
		c.UserID = v
	}
	if v, ok := lookup("MEETINGNOTE_DB"); ok && v != "" {
		c.Store.Path = expandTilde(v)
	}
	if v, ok := lookup("MEETINGNOTE_SOCKET"); ok && v != "" {
		c.Dictation.Socket = expandTilde(v)
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok && v != "" {
		c.Enrich.APIKey = v
	}
	if v, ok := lookup("GOOGLE_CLOUD_PROJECT"); ok && v != "" {
		c.Store.ProjectID = v
	}
	if v, ok := lookup("GOOGLE_APPLICATION_CREDENTIALS"); ok && v != "" {
		c.Store.Credentials = expandTilde(v)
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("language must not be empty")
	}
	if c.Delimiter == "" {
		return fmt.Errorf("delimiter must not be empty")
	}

	switch c.Store.Backend {
	case "sqlite":
	case "firestore":
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store.project_id must be set for the firestore backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"sqlite\" or \"firestore\", got %q", c.Store.Backend)
	}

	if c.Enrich.Timeout < 0 {
		return fmt.Errorf("enrich.timeout must not be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}

// ParseLogLevel maps a log_level string to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadEnvFile sets process environment variables from a KEY=value file.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = unquote(strings.TrimSpace(val))
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, val)
		}
	}
	return scan.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

func (c *Config) expandPaths() {
	c.IdentityFile = expandTilde(c.IdentityFile)
	c.Store.Path = expandTilde(c.Store.Path)
	c.Store.Credentials = expandTilde(c.Store.Credentials)
	c.Dictation.Socket = expandTilde(c.Dictation.Socket)
	c.LogFile = expandTilde(c.LogFile)
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
