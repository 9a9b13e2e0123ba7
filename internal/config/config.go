package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/logging"
	"github.com/LFroesch/voyager/internal/ops"
)

// Config holds all Voyager configuration
type Config struct {
	SortMode       string   `json:"sort_mode"` // name, size, date or type
	ShowHidden     bool     `json:"show_hidden"`
	Bookmarks      []string `json:"bookmarks"`
	HistoryCap     int      `json:"history_cap"`     // visited paths kept per pane
	Workers        int      `json:"workers"`         // concurrent file suboperations
	ConflictPolicy string   `json:"conflict_policy"` // ask, overwrite, skip or suffix
	UndoLimit      int      `json:"undo_limit"`      // operation records kept for undo
	BackupDir      string   `json:"backup_dir"`      // delete-backup location, empty for the default
}

// Load reads config from ~/.config/voyager/config.json
func Load() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logging.Error("Failed to get home directory: %v", err)
		// Fallback to current directory
		homeDir = "."
	}
	configDir := filepath.Join(homeDir, ".config", "voyager")
	configPath := filepath.Join(configDir, "config.json")

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logging.Error("Failed to create config directory %s: %v", configDir, err)
	}

	defaultConfig := &Config{
		SortMode:       entry.SortByName.String(),
		ShowHidden:     false,
		Bookmarks:      []string{homeDir},
		HistoryCap:     50,
		Workers:        4,
		ConflictPolicy: "ask",
		UndoLimit:      100,
	}

	// Try to load existing config
	data, err := os.ReadFile(configPath)
	if err != nil {
		// Save default config and return it
		if err := Save(defaultConfig); err != nil {
			logging.Warn("Failed to save default config: %v", err)
		}
		return defaultConfig
	}

	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		logging.Warn("Failed to parse config file %s: %v, using defaults", configPath, err)
		return defaultConfig
	}

	if config.Bookmarks == nil {
		config.Bookmarks = defaultConfig.Bookmarks
	}

	if config.HistoryCap <= 0 {
		config.HistoryCap = defaultConfig.HistoryCap
	} else if config.HistoryCap > 1000 {
		logging.Warn("HistoryCap too high (%d), using maximum of 1000", config.HistoryCap)
		config.HistoryCap = 1000
	}

	if config.Workers <= 0 {
		config.Workers = defaultConfig.Workers
	} else if config.Workers > 16 {
		logging.Warn("Workers too high (%d), using maximum of 16", config.Workers)
		config.Workers = 16
	}

	if config.UndoLimit <= 0 {
		config.UndoLimit = defaultConfig.UndoLimit
	} else if config.UndoLimit > 10000 {
		logging.Warn("UndoLimit too high (%d), using maximum of 10000", config.UndoLimit)
		config.UndoLimit = 10000
	}

	switch config.ConflictPolicy {
	case "ask", "overwrite", "skip", "suffix":
	default:
		if config.ConflictPolicy != "" {
			logging.Warn("Unknown conflict policy %q, using ask", config.ConflictPolicy)
		}
		config.ConflictPolicy = "ask"
	}

	return config
}

// Save writes config to ~/.config/voyager/config.json
func Save(config *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logging.Error("Failed to get home directory: %v", err)
		return fmt.Errorf("cannot get home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".config", "voyager")
	configPath := filepath.Join(configDir, "config.json")

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logging.Error("Failed to create config directory %s: %v", configDir, err)
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		logging.Error("Failed to marshal config: %v", err)
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		logging.Error("Failed to write config file %s: %v", configPath, err)
		return fmt.Errorf("cannot write config file: %w", err)
	}

	return nil
}

// AddBookmark records path, returning false if it is already present.
func (c *Config) AddBookmark(path string) bool {
	for _, b := range c.Bookmarks {
		if b == path {
			return false
		}
	}
	c.Bookmarks = append(c.Bookmarks, path)
	return true
}

// RemoveBookmark drops path, returning false if it was not bookmarked.
func (c *Config) RemoveBookmark(path string) bool {
	for i, b := range c.Bookmarks {
		if b == path {
			c.Bookmarks = append(c.Bookmarks[:i], c.Bookmarks[i+1:]...)
			return true
		}
	}
	return false
}

// Sort returns the configured sort mode.
func (c *Config) Sort() entry.SortMode {
	return entry.ParseSortMode(c.SortMode)
}

// Policy returns the configured default conflict policy.
func (c *Config) Policy() ops.ConflictPolicy {
	switch c.ConflictPolicy {
	case "overwrite":
		return ops.PolicyOverwrite
	case "skip":
		return ops.PolicySkip
	case "suffix":
		return ops.PolicySuffix
	default:
		return ops.PolicyAsk
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "voyager", "config.json"), nil
}
