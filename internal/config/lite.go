// Package config provides configuration management for the safety engine.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for the standalone MCP server.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the consent database

	// KnowledgeFile replaces the embedded catalog when set.
	KnowledgeFile string

	// Consent status cache
	ConsentCacheMaxItems int
	ConsentCacheTTL      time.Duration

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".peptide-safety")

	return &LiteConfig{
		DataDir:              dataDir,
		ConsentCacheMaxItems: 1000,
		ConsentCacheTTL:      time.Minute,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("PEPTIDE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.KnowledgeFile = os.Getenv("PEPTIDE_KNOWLEDGE_FILE")

	if v := os.Getenv("PEPTIDE_CONSENT_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ConsentCacheMaxItems = n
		}
	}
	if v := os.Getenv("PEPTIDE_CONSENT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ConsentCacheTTL = d
		}
	}

	if v := os.Getenv("PEPTIDE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PEPTIDE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ConsentDBPath returns the path to the consent SQLite database.
func (c *LiteConfig) ConsentDBPath() string {
	return filepath.Join(c.DataDir, "consent.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
