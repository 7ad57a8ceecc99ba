// Package config loads the walletcore daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openenu/walletcore/internal/forms"
	"github.com/openenu/walletcore/internal/registry"
)

// Config holds all configuration for the daemon.
type Config struct {
	// Storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// API settings for the local RPC surface.
	API APIConfig `yaml:"api"`

	// Confirm tunes the submission flow timers.
	Confirm ConfirmConfig `yaml:"confirm"`

	// ExtraChains are user-supplied descriptors merged into the built-in
	// seed at startup.
	ExtraChains []registry.Descriptor `yaml:"extra_chains,omitempty"`

	// Exchanges are accounts known to require a deposit memo.
	Exchanges []string `yaml:"exchanges"`

	// Contacts is the local address book.
	Contacts []forms.Contact `yaml:"contacts,omitempty"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	// DataDir is the directory for all data files.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// File is the log file path (empty for stdout).
	File string `yaml:"file"`
}

// APIConfig holds local RPC settings.
type APIConfig struct {
	// ListenAddr is the address the JSON-RPC and websocket server binds.
	ListenAddr string `yaml:"listen_addr"`
}

// ConfirmConfig holds submission-flow timer settings.
type ConfirmConfig struct {
	// DwellMS is how long a submitted draft rests before it can be
	// confirmed, in milliseconds.
	DwellMS int `yaml:"dwell_ms"`

	// BidDebounceMS delays name lookups after the last keystroke.
	BidDebounceMS int `yaml:"bid_debounce_ms"`

	// TransferDebounceMS delays contract-code lookups after the last
	// destination edit.
	TransferDebounceMS int `yaml:"transfer_debounce_ms"`
}

// Dwell returns the dwell duration, falling back to the built-in default.
func (c ConfirmConfig) Dwell() time.Duration {
	if c.DwellMS <= 0 {
		return 0
	}
	return time.Duration(c.DwellMS) * time.Millisecond
}

// BidDebounce returns the bid lookup debounce delay.
func (c ConfirmConfig) BidDebounce() time.Duration {
	if c.BidDebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.BidDebounceMS) * time.Millisecond
}

// TransferDebounce returns the contract lookup debounce delay.
func (c ConfirmConfig) TransferDebounce() time.Duration {
	if c.TransferDebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.TransferDebounceMS) * time.Millisecond
}

// ExchangeSet returns the exchange accounts as a lookup set.
func (c *Config) ExchangeSet() map[string]bool {
	set := make(map[string]bool, len(c.Exchanges))
	for _, account := range c.Exchanges {
		set[account] = true
	}
	return set
}

// ContactBook returns the contacts keyed by account name.
func (c *Config) ContactBook() map[string]forms.Contact {
	book := make(map[string]forms.Contact, len(c.Contacts))
	for _, contact := range c.Contacts {
		book[contact.Account] = contact
	}
	return book
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "~/.walletcore",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:8900",
		},
		Confirm: ConfirmConfig{
			DwellMS:            3000,
			BidDebounceMS:      200,
			TransferDebounceMS: 400,
		},
		Exchanges: []string{},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := ExpandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# walletcore daemon configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the full path to the config file for the given data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(ExpandPath(dataDir), ConfigFileName)
}

// ExpandPath expands ~ to the home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
