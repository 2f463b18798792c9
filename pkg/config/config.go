package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration shared by the executor and
// listener daemons.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Listener   ListenerConfig   `mapstructure:"listener"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
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

// EthereumConfig contains chain client settings
type EthereumConfig struct {
	RPCURL             string        `mapstructure:"rpc_url"`
	WSUrl              string        `mapstructure:"ws_url"`
	ChainID            int64         `mapstructure:"chain_id"`
	CustodyContract    string        `mapstructure:"custody_contract"`
	WrappedNative      string        `mapstructure:"wrapped_native"`
	NativeSymbol       string        `mapstructure:"native_symbol"`
	AssistantKey       string        `mapstructure:"assistant_private_key"`
	ConfirmationBlocks uint64        `mapstructure:"confirmation_blocks"`
	ReceiptPollDelay   time.Duration `mapstructure:"receipt_poll_delay"`
	StatusPollInterval time.Duration `mapstructure:"status_poll_interval"`
	StatusPollAttempts int           `mapstructure:"status_poll_attempts"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
}

// AggregatorConfig contains swap aggregator API settings
type AggregatorConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	SlippagePercent float64       `mapstructure:"slippage_percent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// ExecutorConfig contains limit order executor settings
type ExecutorConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BatchSize       int64         `mapstructure:"batch_size"`
	SlippagePercent float64       `mapstructure:"slippage_percent"`
}

// ListenerConfig contains event listener settings
type ListenerConfig struct {
	RestartDelay time.Duration `mapstructure:"restart_delay"`
}

// StreamConfig contains settings for the user-facing stream update channel
type StreamConfig struct {
	AppURL string `mapstructure:"app_url"`
	APIKey string `mapstructure:"api_key"`
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

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")

	// Ethereum defaults
	viper.SetDefault("ethereum.confirmation_blocks", 2)
	viper.SetDefault("ethereum.receipt_poll_delay", "2s")
	viper.SetDefault("ethereum.status_poll_interval", "5s")
	viper.SetDefault("ethereum.status_poll_attempts", 60)
	viper.SetDefault("ethereum.max_retries", 3)
	viper.SetDefault("ethereum.retry_delay", "1s")
	viper.SetDefault("ethereum.native_symbol", "S")

	// Aggregator defaults
	viper.SetDefault("aggregator.slippage_percent", 1.0)
	viper.SetDefault("aggregator.request_timeout", "15s")

	// Executor defaults
	viper.SetDefault("executor.poll_interval", "30s")
	viper.SetDefault("executor.batch_size", 10)
	viper.SetDefault("executor.slippage_percent", 5.0)

	// Listener defaults
	viper.SetDefault("listener.restart_delay", "5s")

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
	if config.Ethereum.RPCURL == "" {
		return fmt.Errorf("ethereum.rpc_url is required")
	}
	if config.Ethereum.CustodyContract == "" {
		return fmt.Errorf("ethereum.custody_contract is required")
	}
	if config.Ethereum.AssistantKey == "" {
		return fmt.Errorf("ethereum.assistant_private_key is required")
	}
	if config.Aggregator.BaseURL == "" {
		return fmt.Errorf("aggregator.base_url is required")
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
