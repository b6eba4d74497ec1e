package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
)

// RegistryConfig represents the registry server configuration
type RegistryConfig struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Collection CollectionConfig `mapstructure:"collection"`
	Genesis    string           `mapstructure:"genesis"`
	EthRPC     EthRPCConfig     `mapstructure:"eth_rpc"`
	JWKS       JWKSConfig       `mapstructure:"jwks"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings. An empty host
// disables event persistence; the registry then runs journal-only.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// CollectionConfig identifies the token collection and the signing
// domain permits are verified against
type CollectionConfig struct {
	Name            string `mapstructure:"name"`
	Symbol          string `mapstructure:"symbol"`
	Version         string `mapstructure:"version"`
	ChainID         uint64 `mapstructure:"chain_id"`
	ContractAddress string `mapstructure:"contract_address"`
}

// EthRPCConfig contains Ethereum JSON-RPC facade settings for wallet compatibility
type EthRPCConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	GasPriceWei    string        `mapstructure:"gas_price_wei"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// JWKSConfig contains JWKS configuration for JWT validation
type JWKSConfig struct {
	URL    string `mapstructure:"url"`
	Issuer string `mapstructure:"issuer"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// AuditConfig contains settings for the periodic ledger consistency audit
type AuditConfig struct {
	InitialTimeout time.Duration `mapstructure:"initial_timeout"`
	Interval       time.Duration `mapstructure:"interval"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*RegistryConfig, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config RegistryConfig
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
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults; host stays empty so persistence is opt-in
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "registry")

	// Collection defaults
	viper.SetDefault("collection.version", "1")
	viper.SetDefault("collection.chain_id", 31337)

	// Genesis defaults
	viper.SetDefault("genesis", "genesis.yaml")

	// Eth RPC defaults (wallet compatibility)
	viper.SetDefault("eth_rpc.enabled", false)
	viper.SetDefault("eth_rpc.gas_price_wei", "1000000000")
	viper.SetDefault("eth_rpc.request_timeout", "30s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")

	// Audit defaults
	viper.SetDefault("audit.initial_timeout", "2m")
	viper.SetDefault("audit.interval", "5m")
}

func validate(config *RegistryConfig) error {
	if config.Collection.Name == "" {
		return fmt.Errorf("collection.name is required")
	}
	if config.Collection.ChainID == 0 {
		return fmt.Errorf("collection.chain_id is required")
	}
	if config.Collection.ContractAddress == "" {
		return fmt.Errorf("collection.contract_address is required")
	}
	if !identity.Valid(config.Collection.ContractAddress) {
		return fmt.Errorf("collection.contract_address is not a valid address")
	}
	if config.Genesis == "" {
		return fmt.Errorf("genesis is required")
	}
	if config.Database.Host != "" && config.Database.User == "" {
		return fmt.Errorf("database.user is required when database.host is set")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
