package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/peptide-safety-engine/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return newManager(viper.New())
}

func newManager(v *viper.Viper) (*Manager, error) {
	m := &Manager{v: v}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/peptide-safety-engine/")

	v.SetEnvPrefix("PEPTIDE_SAFETY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "peptide_safety")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	// Consent status cache defaults; an empty Redis URL keeps the cache in memory
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "1m")
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")

	// Knowledge base defaults
	v.SetDefault("knowledge.source", "embedded")
	v.SetDefault("knowledge.file", "")
	v.SetDefault("knowledge.reload_interval", "0s")

	// Consent store defaults
	v.SetDefault("consent.store", "none")
	v.SetDefault("consent.sqlite_path", "data/consent.db")
	v.SetDefault("consent.breaker_timeout", "60s")
	v.SetDefault("consent.breaker_interval", "30s")
	v.SetDefault("consent.breaker_max_requests", 5)

	// Safety policy defaults
	v.SetDefault("safety.min_dose_multiplier", 0.25)
	v.SetDefault("safety.max_dose_multiplier", 2.0)
	v.SetDefault("safety.soft_warning_fraction", 0.8)
	v.SetDefault("safety.pregnancy_min_age", 18)
	v.SetDefault("safety.pregnancy_max_age", 50)

	v.SetDefault("quality.extensively_trialed_compounds", []string{"semaglutide"})

	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("mcp.server_name", "peptide-safety-engine")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

var (
	validKnowledgeSources = map[string]bool{"embedded": true, "file": true, "postgres": true}
	validConsentStores    = map[string]bool{"none": true, "sqlite": true, "postgres": true}
	validLogLevels        = map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
)

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if !validKnowledgeSources[config.Knowledge.Source] {
		return fmt.Errorf("invalid knowledge source: %q", config.Knowledge.Source)
	}
	if config.Knowledge.Source == "file" && config.Knowledge.File == "" {
		return fmt.Errorf("knowledge file is required when knowledge source is file")
	}
	if config.Knowledge.ReloadInterval < 0 {
		return fmt.Errorf("knowledge reload interval must not be negative")
	}

	if !validConsentStores[config.Consent.Store] {
		return fmt.Errorf("invalid consent store: %q", config.Consent.Store)
	}
	if config.Consent.Store == "sqlite" && config.Consent.SQLitePath == "" {
		return fmt.Errorf("consent sqlite path is required when consent store is sqlite")
	}

	if m.UsesPostgres() {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if config.RateLimit.RequestsPerSecond < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	return nil
}

// UsesPostgres reports whether the catalog or the consent store lives in PostgreSQL.
func (m *Manager) UsesPostgres() bool {
	return m.config.Knowledge.Source == "postgres" || m.config.Consent.Store == "postgres"
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database settings as a postgres:// URL, the
// form golang-migrate and lib/pq accept.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Database,
		RawQuery: url.Values{"sslmode": []string{db.SSLMode}}.Encode(),
	}
	return u.String()
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
