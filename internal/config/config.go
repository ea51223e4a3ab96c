// Package config holds the server's JSON-file configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	defaultPort = 8023

	// Maximum size of a single inbound frame and of a session's pending
	// input buffer. Console input is line-sized; anything larger is a
	// misbehaving peer.
	defaultMaxMessageSize = 8192
)

// Config represents application configuration
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// AssetDir overrides the embedded front-end files with an on-disk
	// asset root.
	AssetDir string `json:"asset_dir,omitempty"`
	LogLevel string `json:"log_level"` // debug, info, warn, error, none
	LogPath  string `json:"log_path,omitempty"`
	// MaxMessageSize caps inbound frames and the pending input buffer,
	// in bytes. Zero or negative disables the cap.
	MaxMessageSize int64 `json:"max_message_size,omitempty"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "v8console")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "v8console")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "v8console")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "v8console")
	}
}

// DefaultConfigPath returns the per-OS default config file location.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           defaultPort,
		LogLevel:       "info",
		MaxMessageSize: defaultMaxMessageSize,
	}
}

// Load loads configuration from file, falling back to defaults for a
// missing file or omitted fields.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the configuration to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SplitAddr parses a host:port listen address into its parts.
func SplitAddr(addr string) (host string, port int, err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
