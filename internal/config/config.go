package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	API     API     `mapstructure:"api"`
	Feed    Feed    `mapstructure:"feed"`
	Session Session `mapstructure:"session"`
	Logger  Logger  `mapstructure:"logger"`
	Server  Server  `mapstructure:"server"`
}

// API holds the configuration for the backend REST gateway.
type API struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Feed holds the configuration for the realtime push channel.
type Feed struct {
	URL               string        `mapstructure:"url"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// Session holds the configuration for local session persistence.
type Session struct {
	DSN string `mapstructure:"dsn"`
}

// Server holds the configuration for the local dashboard server.
type Server struct {
	Port int `mapstructure:"port"`
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
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("api.base_url", "http://localhost:8080/api")
	viper.SetDefault("api.timeout", "15s")
	viper.SetDefault("api.rate_limit", 20) // requests per second
	viper.SetDefault("api.rate_limit_burst", 5)
	viper.SetDefault("feed.url", "ws://localhost:8080/api/ws")
	viper.SetDefault("feed.reconnect_delay", "5s")
	viper.SetDefault("feed.heartbeat_interval", "4s")
	viper.SetDefault("session.dsn", "session.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("server.port", 3000)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
