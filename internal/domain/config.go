package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Knowledge   KnowledgeConfig `mapstructure:"knowledge"`
	Consent     ConsentConfig   `mapstructure:"consent"`
	Safety      SafetyConfig    `mapstructure:"safety"`
	Quality     QualityConfig   `mapstructure:"quality"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents consent status cache configuration. An empty
// RedisURL disables the shared tier.
type CacheConfig struct {
	RedisURL   string        `mapstructure:"redis_url"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	MaxItems   int           `mapstructure:"max_items"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// KnowledgeConfig selects where the compound catalog is loaded from.
type KnowledgeConfig struct {
	Source         string        `mapstructure:"source"` // "embedded", "file", "postgres"
	File           string        `mapstructure:"file"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// ConsentConfig selects the consent store and its resilience settings.
type ConsentConfig struct {
	Store           string        `mapstructure:"store"` // "none", "sqlite", "postgres"
	SQLitePath      string        `mapstructure:"sqlite_path"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
	BreakerInterval time.Duration `mapstructure:"breaker_interval"`
	BreakerMaxReqs  uint32        `mapstructure:"breaker_max_requests"`
}

// SafetyConfig carries the tunable parts of the safety policy.
type SafetyConfig struct {
	MinDoseMultiplier   float64            `mapstructure:"min_dose_multiplier"`
	MaxDoseMultiplier   float64            `mapstructure:"max_dose_multiplier"`
	SoftWarningFraction float64            `mapstructure:"soft_warning_fraction"`
	LayerWeights        map[string]float64 `mapstructure:"layer_weights"`
	PregnancyMinAge     int                `mapstructure:"pregnancy_min_age"`
	PregnancyMaxAge     int                `mapstructure:"pregnancy_max_age"`
}

// QualityConfig carries the tunable parts of the quality rubric.
type QualityConfig struct {
	ExtensivelyTrialedCompounds []string `mapstructure:"extensively_trialed_compounds"`
}

// RateLimitConfig bounds per-client request rates on the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
