// ABOUTME: Configuration loading and parsing for sd
// ABOUTME: Supports YAML or TOML files with ${VAR} expansion and SD_* environment overrides

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/2389/sd/internal/store"
)

// Config represents the complete sd configuration
type Config struct {
	General   GeneralConfig   `yaml:"general" toml:"general"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Client    ClientConfig    `yaml:"client" toml:"client"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
}

// GeneralConfig holds logging configuration
type GeneralConfig struct {
	LogLevel  string `yaml:"log_level" toml:"log_level" env:"SD_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" toml:"log_format" env:"SD_LOG_FORMAT"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver" env:"SD_DATABASE_DRIVER"`
	URI    string `yaml:"uri" toml:"uri" env:"SD_DATABASE_URI"`
}

// ServerConfig holds the API server configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"SD_HTTP_ADDR"`
	Debug    bool   `yaml:"debug" toml:"debug" env:"SD_DEBUG"`
}

// ClientConfig holds the CLI client configuration
type ClientConfig struct {
	// Endpoint is the base URL of the API server, e.g. http://localhost:5000
	Endpoint string `yaml:"endpoint" toml:"endpoint" env:"SD_ENDPOINT"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled" env:"SD_TAILSCALE_ENABLED"`
	Hostname  string `yaml:"hostname" toml:"hostname" env:"SD_TAILSCALE_HOSTNAME"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key" env:"TS_AUTHKEY"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "warn",
			LogFormat: "text",
		},
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			URI:    filepath.Join(dataDir(), "sd.db"),
		},
		Server: ServerConfig{
			HTTPAddr: "localhost:5000",
		},
		Client: ClientConfig{
			Endpoint: "http://localhost:5000",
		},
		Tailscale: TailscaleConfig{
			Hostname: "sd",
		},
	}
}

// DefaultPath returns the path to the config file.
// Priority: SD_CONFIG env var > XDG_CONFIG_HOME/sd/sd.yaml > ~/.config/sd/sd.yaml
func DefaultPath() string {
	if envPath := os.Getenv("SD_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "sd.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sd", "sd.yaml")
}

// dataDir returns the sd data directory.
// Priority: XDG_DATA_HOME/sd > ~/.local/share/sd
func dataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dir, "sd")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded before parsing,
// and SD_* variables override file values afterwards.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := decode(path, expandEnvVars(string(data)), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// LoadOrDefault loads path if it exists and falls back to defaults otherwise.
// Only a missing file is tolerated; unreadable or invalid files are errors.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(Default())
	}
	return cfg, err
}

func decode(path, data string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(data, cfg)
		return err
	}
	return yaml.Unmarshal([]byte(data), cfg)
}

// finish applies environment overrides, expands ~ in paths, and validates.
func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.Database.URI = expandHome(cfg.Database.URI)
	cfg.Tailscale.StateDir = expandHome(cfg.Tailscale.StateDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverSQLite3:
	default:
		return fmt.Errorf("database.driver %q is not supported (use %s)", c.Database.Driver, strings.Join(store.Drivers, " or "))
	}

	if c.Database.URI == "" {
		return fmt.Errorf("database.uri is required")
	}

	// The TCP address is only used when Tailscale is off
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	u, err := url.Parse(c.Client.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("client.endpoint %q must be an absolute http or https URL", c.Client.Endpoint)
	}

	return nil
}
