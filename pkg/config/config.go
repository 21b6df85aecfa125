// Package config loads the daemon's optional YAML configuration file,
// following the teacher's env-overrides-after-file-load pattern: every
// field falls back through config file -> built-in default, with
// $CLIPPYBOARD_SOCKET always taking precedence over the file for the
// socket path (spec §6).
package config

import (
	"os"
	"path/filepath"

	"clippyboard/pkg/errors"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxEntrySize        = 50 * 1024 * 1024  // spec §6 MAX_ENTRY_SIZE
	DefaultMaxHistoryByteSize  = 100 * 1024 * 1024 // spec §6 MAX_HISTORY_BYTE_SIZE
	defaultSocketName          = "clippyboard.sock"
	entryOverheadPerItem uint64 = 48
)

// DefaultMimePreference is the default capture preference order from spec §4.4/§6.
var DefaultMimePreference = []string{"text/plain", "image/png", "image/jpg"}

// Config holds everything the daemon needs beyond what's discovered from
// the compositor at runtime.
type Config struct {
	SocketPath         string   `yaml:"socket_path,omitempty"`
	MaxEntrySize       uint64   `yaml:"max_entry_size,omitempty"`
	MaxHistoryByteSize uint64   `yaml:"max_history_byte_size,omitempty"`
	EntryOverhead      uint64   `yaml:"entry_overhead,omitempty"`
	MimePreference     []string `yaml:"mime_preference,omitempty"`
}

// Load reads the config file at path (if it exists), applies defaults for
// anything left unset, then lets $CLIPPYBOARD_SOCKET override the socket
// path unconditionally.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Fatal("failed to parse config file "+path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Fatal("failed to read config file "+path, err)
	}

	applyDefaults(cfg)

	if envSocket := os.Getenv("CLIPPYBOARD_SOCKET"); envSocket != "" {
		cfg.SocketPath = envSocket
	}

	if cfg.SocketPath == "" {
		resolved, err := defaultSocketPath()
		if err != nil {
			return nil, err
		}
		cfg.SocketPath = resolved
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxEntrySize == 0 {
		cfg.MaxEntrySize = DefaultMaxEntrySize
	}
	if cfg.MaxHistoryByteSize == 0 {
		cfg.MaxHistoryByteSize = DefaultMaxHistoryByteSize
	}
	if cfg.EntryOverhead == 0 {
		cfg.EntryOverhead = entryOverheadPerItem
	}
	if len(cfg.MimePreference) == 0 {
		cfg.MimePreference = append([]string(nil), DefaultMimePreference...)
	}
}

// defaultSocketPath joins $XDG_RUNTIME_DIR with clippyboard.sock, per
// spec §6. A missing runtime directory is a StartupFatal condition.
func defaultSocketPath() (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", errors.FatalWithSuggestion(
			"XDG_RUNTIME_DIR is not set",
			"clippyboard-daemon needs a per-user runtime directory to place its socket; set XDG_RUNTIME_DIR or CLIPPYBOARD_SOCKET",
		)
	}
	return filepath.Join(runtimeDir, defaultSocketName), nil
}

// Path returns the default config file location,
// $XDG_CONFIG_HOME/clippyboard/config.yaml (or ~/.config as a fallback).
func Path() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "clippyboard", "config.yaml"), nil
}
