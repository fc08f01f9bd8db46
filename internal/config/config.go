// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	AWS          AWSConfig
	Completion   CompletionConfig
	Jobs         JobsConfig
	Notification NotificationConfig
	Rules        RulesConfig
	Logging      LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// AWSConfig holds billing API settings.
type AWSConfig struct {
	Enabled       bool
	Region        string
	AccessKeyID   string
	SecretKey     string
	AssumeRoleARN string
	ExternalID    string
	AccountID     string
	Timeout       time.Duration
}

// CompletionConfig holds text-completion service settings.
type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// JobsConfig holds background job settings. Schedules use the six-field
// cron format (seconds first).
type JobsConfig struct {
	CostFetchSchedule    string
	AnomalyCheckSchedule string
	DailyReportSchedule  string
	Timeout              time.Duration
}

// NotificationConfig holds alert transport settings.
type NotificationConfig struct {
	SMTPServer      string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string
	AlertEmails     []string
	SlackWebhookURL string
	SlackChannel    string
	WebhookURLs     []string
	ArchiveBucket   string
	SpikeAlerts     bool
	Timeout         time.Duration
}

// RulesConfig holds the recommendation policy constants. The defaults are
// uncalibrated heuristics and are expected to be tuned per billing source.
type RulesConfig struct {
	IdleServiceMatch      string  `yaml:"idle_service_match"`
	IdleUsageThreshold    float64 `yaml:"idle_usage_threshold"`
	IdleLookbackDays      int     `yaml:"idle_lookback_days"`
	IdleSavingsMultiplier float64 `yaml:"idle_savings_multiplier"`
	StorageServiceMatch   string  `yaml:"storage_service_match"`
	StorageUsageThreshold float64 `yaml:"storage_usage_threshold"`
	StorageLookbackDays   int     `yaml:"storage_lookback_days"`
	StorageTargetFactor   float64 `yaml:"storage_target_factor"`
	StorageSavingsFactor  float64 `yaml:"storage_savings_factor"`
	SpikeWindowDays       int     `yaml:"spike_window_days"`
	SpikeThresholdPercent float64 `yaml:"spike_threshold_percent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// DefaultRules returns the stock recommendation thresholds.
func DefaultRules() RulesConfig {
	return RulesConfig{
		IdleServiceMatch:      "EC2",
		IdleUsageThreshold:    5.0,
		IdleLookbackDays:      7,
		IdleSavingsMultiplier: 30,
		StorageServiceMatch:   "RDS",
		StorageUsageThreshold: 10.0,
		StorageLookbackDays:   30,
		StorageTargetFactor:   0.5,
		StorageSavingsFactor:  0.3,
		SpikeWindowDays:       30,
		SpikeThresholdPercent: 20,
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	defaults := DefaultRules()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8000),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "costoptimizer"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "costoptimizer"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			TokenExpiry: getEnvDuration("JWT_EXPIRY", 30*time.Minute),
		},
		AWS: AWSConfig{
			Enabled:       getEnvBool("AWS_ENABLED", true),
			Region:        getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AssumeRoleARN: getEnv("AWS_ASSUME_ROLE_ARN", ""),
			ExternalID:    getEnv("AWS_EXTERNAL_ID", ""),
			AccountID:     getEnv("AWS_ACCOUNT_ID", "default"),
			Timeout:       getEnvDuration("AWS_TIMEOUT", 30*time.Second),
		},
		Completion: CompletionConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 500),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
			Timeout:     getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		},
		Jobs: JobsConfig{
			CostFetchSchedule:    getEnv("JOB_COST_FETCH", "0 0 2 * * *"),
			AnomalyCheckSchedule: getEnv("JOB_ANOMALY_CHECK", "0 0 3 * * *"),
			DailyReportSchedule:  getEnv("JOB_DAILY_REPORT", ""),
			Timeout:              getEnvDuration("JOB_TIMEOUT", 30*time.Minute),
		},
		Notification: NotificationConfig{
			SMTPServer:      getEnv("SMTP_SERVER", ""),
			SMTPPort:        getEnvInt("SMTP_PORT", 587),
			SMTPUsername:    getEnv("SMTP_USERNAME", ""),
			SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:        getEnv("SMTP_FROM", "cost-optimizer@yourdomain.com"),
			AlertEmails:     getEnvList("ALERT_EMAIL", nil),
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:    getEnv("SLACK_CHANNEL", "#cost-alerts"),
			WebhookURLs:     getEnvList("NOTIFICATION_WEBHOOK_URLS", nil),
			ArchiveBucket:   getEnv("ALERT_ARCHIVE_BUCKET", ""),
			SpikeAlerts:     getEnvBool("ALERT_SPIKE_NOTIFICATIONS", false),
			Timeout:         getEnvDuration("NOTIFICATION_TIMEOUT", 10*time.Second),
		},
		Rules: RulesConfig{
			IdleServiceMatch:      getEnv("RULE_IDLE_SERVICE_MATCH", defaults.IdleServiceMatch),
			IdleUsageThreshold:    getEnvFloat("RULE_IDLE_USAGE_THRESHOLD", defaults.IdleUsageThreshold),
			IdleLookbackDays:      getEnvInt("RULE_IDLE_LOOKBACK_DAYS", defaults.IdleLookbackDays),
			IdleSavingsMultiplier: getEnvFloat("RULE_IDLE_SAVINGS_MULTIPLIER", defaults.IdleSavingsMultiplier),
			StorageServiceMatch:   getEnv("RULE_STORAGE_SERVICE_MATCH", defaults.StorageServiceMatch),
			StorageUsageThreshold: getEnvFloat("RULE_STORAGE_USAGE_THRESHOLD", defaults.StorageUsageThreshold),
			StorageLookbackDays:   getEnvInt("RULE_STORAGE_LOOKBACK_DAYS", defaults.StorageLookbackDays),
			StorageTargetFactor:   getEnvFloat("RULE_STORAGE_TARGET_FACTOR", defaults.StorageTargetFactor),
			StorageSavingsFactor:  getEnvFloat("RULE_STORAGE_SAVINGS_FACTOR", defaults.StorageSavingsFactor),
			SpikeWindowDays:       getEnvInt("RULE_SPIKE_WINDOW_DAYS", defaults.SpikeWindowDays),
			SpikeThresholdPercent: getEnvFloat("RULE_SPIKE_THRESHOLD_PERCENT", defaults.SpikeThresholdPercent),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if path := os.Getenv("RULES_FILE"); path != "" {
		rules, err := LoadRules(path, cfg.Rules)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive")
	}
	return c.Rules.Validate()
}

// Validate checks the rule thresholds for values the engine cannot use.
func (r RulesConfig) Validate() error {
	if r.IdleLookbackDays <= 0 || r.StorageLookbackDays <= 0 || r.SpikeWindowDays <= 0 {
		return fmt.Errorf("rule lookback windows must be positive")
	}
	if r.IdleUsageThreshold < 0 || r.StorageUsageThreshold < 0 || r.SpikeThresholdPercent < 0 {
		return fmt.Errorf("rule thresholds must not be negative")
	}
	if r.IdleSavingsMultiplier < 0 || r.StorageSavingsFactor < 0 || r.StorageTargetFactor < 0 {
		return fmt.Errorf("rule savings factors must not be negative")
	}
	if r.IdleServiceMatch == "" || r.StorageServiceMatch == "" {
		return fmt.Errorf("rule service matches must not be empty")
	}
	return nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Helper functions
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blank entries.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
