package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the bridge server configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Custodian  CustodianConfig  `mapstructure:"custodian"`
	Bridge     BridgeConfig     `mapstructure:"bridge"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds a single bridge request end to end, covering
	// the settle delay and both custodian calls.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// CustodianConfig contains settings for the custodial signing backend
type CustodianConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BridgeConfig contains bridge pipeline settings
type BridgeConfig struct {
	// BaseFee is the per-operation fee, in stroops, used when assembling
	// the lock transaction envelope.
	BaseFee int64 `mapstructure:"base_fee"`
	// TxValidity bounds how long an unsigned lock transaction stays
	// submittable before the ledger rejects it.
	TxValidity time.Duration `mapstructure:"tx_validity"`
	// SettleDelay is the wait between lock confirmation and the
	// index-and-release call, allowing source-chain finality.
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	HorizonTimeout time.Duration `mapstructure:"horizon_timeout"`
	SorobanTimeout time.Duration `mapstructure:"soroban_timeout"`
	// MaxReadRetries bounds retries of idempotent ledger reads. Lock
	// submission and release are never retried.
	MaxReadRetries uint64 `mapstructure:"max_read_retries"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.request_timeout", "90s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "bridge")

	// Custodian defaults
	viper.SetDefault("custodian.request_timeout", "30s")

	// Bridge defaults
	viper.SetDefault("bridge.base_fee", 100)
	viper.SetDefault("bridge.tx_validity", "5m")
	viper.SetDefault("bridge.settle_delay", "8s")
	viper.SetDefault("bridge.horizon_timeout", "10s")
	viper.SetDefault("bridge.soroban_timeout", "15s")
	viper.SetDefault("bridge.max_read_retries", 3)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Custodian.Endpoint == "" {
		return fmt.Errorf("custodian.endpoint is required")
	}
	if config.Bridge.SettleDelay < 0 {
		return fmt.Errorf("bridge.settle_delay must not be negative")
	}
	return nil
}
