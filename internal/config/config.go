// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// MongoDB settings
	MongoURI      string `mapstructure:"mongouri"`
	MongoDatabase string `mapstructure:"mongodatabase"`

	// RabbitMQ settings
	RabbitHost     string `mapstructure:"rabbithost"`
	RabbitPort     int    `mapstructure:"rabbitport"`
	RabbitUser     string `mapstructure:"rabbituser"`
	RabbitPassword string `mapstructure:"rabbitpassword"`
	RabbitVHost    string `mapstructure:"rabbitvhost"`

	// SMTP settings
	SMTPHost       string `mapstructure:"smtphost"`
	SMTPPort       int    `mapstructure:"smtpport"`
	SenderEmail    string `mapstructure:"senderemail"`
	SenderName     string `mapstructure:"sendername"`
	SenderPassword string `mapstructure:"senderpassword"`

	// File paths
	GeoDBPath string `mapstructure:"geodbpath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Report worker settings
	WorkerConcurrency int `mapstructure:"workerconcurrency"`
	WorkerPrefetch    int `mapstructure:"workerprefetch"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "tgfunnel")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("mongouri", "mongodb://localhost:27017")
		v.SetDefault("mongodatabase", "tgfunnel")
		v.SetDefault("rabbithost", "localhost")
		v.SetDefault("rabbitport", 5672)
		v.SetDefault("rabbituser", "guest")
		v.SetDefault("rabbitpassword", "guest")
		v.SetDefault("rabbitvhost", "/")
		v.SetDefault("smtphost", "localhost")
		v.SetDefault("smtpport", 587)
		v.SetDefault("sendername", "Telegram Funnel Analytics")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("workerconcurrency", 4)
		v.SetDefault("workerprefetch", 8)

		// Bind environment variables
		v.BindEnv("appname", "TGFUNNEL_APP_NAME")
		v.BindEnv("appport", "TGFUNNEL_APP_PORT")
		v.BindEnv("environment", "TGFUNNEL_ENV")
		v.BindEnv("loglevel", "TGFUNNEL_LOG_LEVEL")
		v.BindEnv("mongouri", "TGFUNNEL_MONGO_URI")
		v.BindEnv("mongodatabase", "TGFUNNEL_MONGO_DATABASE")
		v.BindEnv("rabbithost", "TGFUNNEL_RABBIT_HOST")
		v.BindEnv("rabbitport", "TGFUNNEL_RABBIT_PORT")
		v.BindEnv("rabbituser", "TGFUNNEL_RABBIT_USER")
		v.BindEnv("rabbitpassword", "TGFUNNEL_RABBIT_PASSWORD")
		v.BindEnv("rabbitvhost", "TGFUNNEL_RABBIT_VHOST")
		v.BindEnv("smtphost", "TGFUNNEL_SMTP_HOST")
		v.BindEnv("smtpport", "TGFUNNEL_SMTP_PORT")
		v.BindEnv("senderemail", "TGFUNNEL_SENDER_EMAIL")
		v.BindEnv("sendername", "TGFUNNEL_SENDER_NAME")
		v.BindEnv("senderpassword", "TGFUNNEL_SENDER_PASSWORD")
		v.BindEnv("geodbpath", "TGFUNNEL_GEO_DB_PATH")
		v.BindEnv("logsdir", "TGFUNNEL_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "TGFUNNEL_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "TGFUNNEL_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "TGFUNNEL_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("workerconcurrency", "TGFUNNEL_WORKER_CONCURRENCY")
		v.BindEnv("workerprefetch", "TGFUNNEL_WORKER_PREFETCH")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("invalid worker concurrency: %d", c.WorkerConcurrency)
	}
	if c.WorkerPrefetch < c.WorkerConcurrency {
		return fmt.Errorf("worker prefetch %d must be at least worker concurrency %d",
			c.WorkerPrefetch, c.WorkerConcurrency)
	}

	return nil
}

// RabbitURL returns the AMQP connection string. The vhost is path-escaped;
// a leading slash is optional in the configured value.
func (c *Config) RabbitURL() string {
	vhost := url.PathEscape(strings.TrimPrefix(c.RabbitVHost, "/"))
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.RabbitUser, c.RabbitPassword, c.RabbitHost, c.RabbitPort, vhost)
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
