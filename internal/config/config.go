package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	ESign     ESignConfig     `mapstructure:"esign"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Contract  ContractConfig  `mapstructure:"contract"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// ESignConfig holds e-signature provider configuration
type ESignConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	AccountID     string        `mapstructure:"account_id"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DocumentsConfig holds document requirement and storage configuration
type DocumentsConfig struct {
	RequiredCategories []string `mapstructure:"required_categories"`
	StorageDir         string   `mapstructure:"storage_dir"`
}

// ContractConfig holds contract inspection configuration
type ContractConfig struct {
	RequiredTerms []string `mapstructure:"required_terms"`
	MaxPages      int      `mapstructure:"max_pages"`
}

// SMTPConfig holds outbound mail configuration. An empty host switches the
// email path to log-only delivery.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// WorkersConfig holds background worker configuration
type WorkersConfig struct {
	EnvelopePollInterval time.Duration `mapstructure:"envelope_poll_interval"`
	EmailPollInterval    time.Duration `mapstructure:"email_poll_interval"`
	EmailBatchSize       int           `mapstructure:"email_batch_size"`
}

// ReportsConfig holds report export configuration
type ReportsConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
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

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/onboarding.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// E-sign defaults
	viper.SetDefault("esign.timeout", 30*time.Second)

	// Document defaults
	viper.SetDefault("documents.required_categories", []string{
		"business_registration",
		"bank_statement",
		"director_id",
		"proof_of_address",
	})
	viper.SetDefault("documents.storage_dir", "data/documents")

	// Contract defaults
	viper.SetDefault("contract.required_terms", []string{"fee schedule"})
	viper.SetDefault("contract.max_pages", 50)

	// SMTP defaults
	viper.SetDefault("smtp.port", 587)

	// Worker defaults
	viper.SetDefault("workers.envelope_poll_interval", 5*time.Minute)
	viper.SetDefault("workers.email_poll_interval", 15*time.Second)
	viper.SetDefault("workers.email_batch_size", 10)

	// Report defaults
	viper.SetDefault("reports.output_dir", "data/reports")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("esign.api_key", "ESIGN_API_KEY")
	viper.BindEnv("esign.account_id", "ESIGN_ACCOUNT_ID")
	viper.BindEnv("esign.webhook_secret", "ESIGN_WEBHOOK_SECRET")
	viper.BindEnv("smtp.username", "SMTP_USERNAME")
	viper.BindEnv("smtp.password", "SMTP_PASSWORD")
	viper.BindEnv("smtp.from", "SMTP_FROM")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ESign.BaseURL == "" {
		return fmt.Errorf("esign.base_url is required")
	}
	if c.ESign.APIKey == "" {
		return fmt.Errorf("esign.api_key is required")
	}
	if c.ESign.AccountID == "" {
		return fmt.Errorf("esign.account_id is required")
	}

	// An empty requirement list would make every application trivially
	// document-complete; refuse to start that way.
	if len(c.Documents.RequiredCategories) == 0 {
		return fmt.Errorf("documents.required_categories must not be empty")
	}
	if c.Documents.StorageDir == "" {
		return fmt.Errorf("documents.storage_dir is required")
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}

	return nil
}
