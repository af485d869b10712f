// Package config handles loading and managing paperdeck configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the paperdeck configuration.
type Config struct {
	Data    DataConfig    `toml:"data"`
	Consume ConsumeConfig `toml:"consume"`
	Server  ServerConfig  `toml:"server"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir  string `toml:"data_dir"`
	Database string `toml:"database"` // SQLite file path
}

// ConsumeConfig holds consume-directory configuration.
type ConsumeConfig struct {
	Dir      string `toml:"dir"`      // Directory watched for new documents
	Schedule string `toml:"schedule"` // Cron expression; empty disables scanning
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr        string   `toml:"bind_addr"` // default 127.0.0.1
	APIPort         int      `toml:"api_port"`  // default 8484
	APIKey          string   `toml:"api_key"`
	CORSOrigins     []string `toml:"cors_origins"`
	CORSCredentials bool     `toml:"cors_credentials"`
	CORSMaxAge      int      `toml:"cors_max_age"`
}

// DefaultHome returns the default paperdeck home directory.
// Respects the PAPERDECK_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("PAPERDECK_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paperdeck"
	}
	return filepath.Join(home, ".paperdeck")
}

// Load reads the configuration from the specified file. If path is empty,
// the default location (~/.paperdeck/config.toml) is used. A missing
// config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Data: DataConfig{
			DataDir: homeDir,
		},
		Consume: ConsumeConfig{
			Dir:      filepath.Join(homeDir, "consume"),
			Schedule: "*/5 * * * *",
		},
		Server: ServerConfig{
			BindAddr: "127.0.0.1",
			APIPort:  8484,
		},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyDerived()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)
	cfg.Data.Database = expandPath(cfg.Data.Database)
	cfg.Consume.Dir = expandPath(cfg.Consume.Dir)
	cfg.applyDerived()
	return cfg, nil
}

// applyDerived fills paths that default relative to the data directory.
func (c *Config) applyDerived() {
	if c.Data.Database == "" {
		c.Data.Database = filepath.Join(c.Data.DataDir, "paperdeck.db")
	}
}

// EnsureDirs creates the data and consume directories if missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Data.DataDir, c.Consume.Dir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
