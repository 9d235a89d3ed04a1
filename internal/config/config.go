// Package config loads officewatch configuration from an optional YAML file
// and OFFICE_* environment variables. Environment values override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
	Docs   DocsConfig   `yaml:"docs"`
	Editor EditorConfig `yaml:"editor"`
}

// ServerConfig holds broadcast server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	PortAttempts int           `yaml:"portAttempts"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	CORSOrigins  []string      `yaml:"corsOrigins"`
}

// WatchConfig holds session-watcher settings.
type WatchConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	SessionFile  string        `yaml:"sessionFile"` // overrides pointer resolution
	PointerFile  string        `yaml:"pointerFile"`
}

// DocsConfig holds document-scanner settings.
type DocsConfig struct {
	Subdir string `yaml:"subdir"`
}

// EditorConfig holds the open-in-editor collaborator settings.
type EditorConfig struct {
	Command string `yaml:"command"`
}

// Load builds the configuration: defaults, then the YAML file named by
// OFFICE_CONFIG (if any), then environment overrides, then validation.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("OFFICE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         4777,
			PortAttempts: 10,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Watch: WatchConfig{
			PollInterval: 200 * time.Millisecond,
		},
		Docs: DocsConfig{
			Subdir: "docs",
		},
		Editor: EditorConfig{
			Command: "code",
		},
	}
}

func (c *Config) applyEnv() error {
	var err error

	c.Server.Host = getEnv("OFFICE_HOST", c.Server.Host)
	if c.Server.Port, err = getEnvInt("OFFICE_PORT", c.Server.Port); err != nil {
		return err
	}
	if c.Server.PortAttempts, err = getEnvInt("OFFICE_PORT_ATTEMPTS", c.Server.PortAttempts); err != nil {
		return err
	}
	if c.Server.ReadTimeout, err = getEnvDuration("OFFICE_READ_TIMEOUT", c.Server.ReadTimeout); err != nil {
		return err
	}
	if c.Server.WriteTimeout, err = getEnvDuration("OFFICE_WRITE_TIMEOUT", c.Server.WriteTimeout); err != nil {
		return err
	}
	c.Server.CORSOrigins = getEnvList("OFFICE_CORS_ORIGINS", c.Server.CORSOrigins)

	if c.Watch.PollInterval, err = getEnvDuration("OFFICE_POLL_INTERVAL", c.Watch.PollInterval); err != nil {
		return err
	}
	c.Watch.SessionFile = getEnv("OFFICE_SESSION_FILE", c.Watch.SessionFile)
	c.Watch.PointerFile = getEnv("OFFICE_POINTER_FILE", c.Watch.PointerFile)

	c.Docs.Subdir = getEnv("OFFICE_DOCS_SUBDIR", c.Docs.Subdir)
	c.Editor.Command = getEnv("OFFICE_EDITOR", c.Editor.Command)

	return nil
}

// validate checks value bounds.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("OFFICE_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.PortAttempts < 1 {
		return fmt.Errorf("OFFICE_PORT_ATTEMPTS must be >= 1, got %d", c.Server.PortAttempts)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("OFFICE_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("OFFICE_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Watch.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("OFFICE_POLL_INTERVAL must be >= 10ms, got %s", c.Watch.PollInterval)
	}
	return nil
}

// Addr returns the host:port pair for the configured base port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
