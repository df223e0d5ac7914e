package domain

import (
	"context"
)

// SafetyEvaluator runs the five safety layers and reduces them to a verdict.
type SafetyEvaluator interface {
	EvaluateSafety(ctx context.Context, patient *Patient, protocol *Protocol) (*SafetyResult, error)
}

// QualityEvaluator rates the thoroughness of a protocol.
type QualityEvaluator interface {
	EvaluateQuality(patient *Patient, protocol *Protocol) (*QualityResult, error)
}

// ProtocolMonitor re-derives trend information for a protocol in the field.
type ProtocolMonitor interface {
	Evaluate(protocolID string, stats UsageStatistics) (*MonitoringResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
