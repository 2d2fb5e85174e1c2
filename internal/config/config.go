package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration
type Config struct {
	ServerAddress string
	LogLevel      string
	LogFormat     string
	Database      DatabaseConfig
	KSeF          KSeFConfig
	Issuer        IssuerConfig
	Sync          SyncConfig
}

// DatabaseConfig holds MySQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Params   string
}

// KSeFConfig holds exchange API settings
type KSeFConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// IssuerConfig is the identity emitted as the seller block on outbound
// documents. It comes from configuration, never from the invoice being
// corrected.
type IssuerConfig struct {
	TaxID   string
	Name    string
	Address string
}

// SyncConfig holds synchronization window parameters
type SyncConfig struct {
	OverlapBuffer   time.Duration // backward shift tolerating exchange publication lag
	InitialLookback time.Duration // window when no prior completed run exists
	FullLookback    time.Duration // window for FULL runs
	StaleRunCutoff  time.Duration // age after which an IN_PROGRESS run stops holding the lock
}

// Load reads configuration from .env (if present) and the environment
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // .env is optional, env vars alone are fine

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_PARAMS", "parseTime=true&charset=utf8mb4")
	viper.SetDefault("KSEF_TIMEOUT", "60s")
	viper.SetDefault("SYNC_OVERLAP_BUFFER", "24h")
	viper.SetDefault("SYNC_INITIAL_LOOKBACK", "720h") // 30 days
	viper.SetDefault("SYNC_FULL_LOOKBACK", "17520h")  // 2 years
	viper.SetDefault("SYNC_STALE_RUN_CUTOFF", "6h")

	cfg := &Config{
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		LogFormat:     viper.GetString("LOG_FORMAT"),
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			Params:   viper.GetString("DB_PARAMS"),
		},
		KSeF: KSeFConfig{
			BaseURL: viper.GetString("KSEF_BASE_URL"),
			Token:   viper.GetString("KSEF_TOKEN"),
			Timeout: viper.GetDuration("KSEF_TIMEOUT"),
		},
		Issuer: IssuerConfig{
			TaxID:   viper.GetString("ISSUER_NIP"),
			Name:    viper.GetString("ISSUER_NAME"),
			Address: viper.GetString("ISSUER_ADDRESS"),
		},
		Sync: SyncConfig{
			OverlapBuffer:   viper.GetDuration("SYNC_OVERLAP_BUFFER"),
			InitialLookback: viper.GetDuration("SYNC_INITIAL_LOOKBACK"),
			FullLookback:    viper.GetDuration("SYNC_FULL_LOOKBACK"),
			StaleRunCutoff:  viper.GetDuration("SYNC_STALE_RUN_CUTOFF"),
		},
	}

	return cfg, nil
}

// DSN returns the MySQL DSN string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}

// MigrationURL returns the database URL for migrations
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}
