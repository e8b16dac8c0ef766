package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Import   Import   `mapstructure:"import"`
	Fetch    Fetch    `mapstructure:"fetch"`
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port          int    `mapstructure:"port"`
	UploadLimitMB int    `mapstructure:"upload_limit_mb"`
	WebDir        string `mapstructure:"web_dir"`
}

// Import holds the configuration for automatic file imports.
type Import struct {
	// WatchDir is scanned for new CSV exports; empty disables watching.
	WatchDir string `mapstructure:"watch_dir"`
}

// Fetch holds the configuration for downloading remote reports.
type Fetch struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxBytes       int64   `mapstructure:"max_bytes"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.upload_limit_mb", 16)
	viper.SetDefault("server.web_dir", "web")
	viper.SetDefault("fetch.timeout_seconds", 30)
	viper.SetDefault("fetch.rate_limit", 2) // requests per second
	viper.SetDefault("fetch.rate_limit_burst", 1)
	viper.SetDefault("fetch.max_bytes", 32<<20)
	viper.SetDefault("database.dsn", "journal.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
