package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Admin     AdminConfig     `yaml:"admin"`
	Email     EmailConfig     `yaml:"email"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Images    ImagesConfig    `yaml:"images"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains the SQLite file location
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`
}

// AdminConfig holds the single operator credential and session settings
type AdminConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"` // bcrypt, see cmd/passwd
	TokenSecret  string `yaml:"token_secret"`
	SessionHours int    `yaml:"session_hours"`
	CookieName   string `yaml:"cookie_name"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

// EmailConfig contains EmailJS settings. Empty service id or public key
// means sends are simulated.
type EmailConfig struct {
	Endpoint                string `yaml:"endpoint"`
	ServiceID               string `yaml:"service_id"`
	TemplateID              string `yaml:"template_id"`
	PropertyInquiryTemplate string `yaml:"property_inquiry_template"`
	ConfirmationTemplate    string `yaml:"confirmation_template"`
	PublicKey               string `yaml:"public_key"`
	PrivateKey              string `yaml:"private_key"`
	OperatorName            string `yaml:"operator_name"`
	TimeoutSeconds          int    `yaml:"timeout_seconds"`
	FailureThreshold        int    `yaml:"failure_threshold"`
	ResetTimeoutSeconds     int    `yaml:"reset_timeout_seconds"`
}

// RateLimitConfig contains inquiry rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// ImagesConfig controls processing of uploaded listing photos
type ImagesConfig struct {
	MaxWidth    int `yaml:"max_width"`
	JPEGQuality int `yaml:"jpeg_quality"`
	MaxBytes    int `yaml:"max_bytes"`
}

// SchedulerConfig contains cron job settings
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ReindexSpec    string `yaml:"reindex_spec"`
	CleanupEnabled bool   `yaml:"cleanup_enabled"`
	CleanupSpec    string `yaml:"cleanup_spec"`
	RetentionDays  int    `yaml:"retention_days"`
	MaxDeletions   int    `yaml:"max_deletions"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	Color  bool   `yaml:"color"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8084",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Type:   "mysql",
			SQLite: SQLiteConfig{Path: "catalog.db"},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Enabled: false,
				Host:    "http://meilisearch:7700",
				Index:   "properties",
			},
		},
		Admin: AdminConfig{
			Email:        "admin@tecnomadas.com",
			SessionHours: 24,
			CookieName:   "admin_session",
		},
		Email: EmailConfig{
			Endpoint:                "https://api.emailjs.com/api/v1.0/email/send",
			PropertyInquiryTemplate: "template_property_inquiry",
			ConfirmationTemplate:    "template_confirmation",
			OperatorName:            "Equipo Tecnomadas",
			TimeoutSeconds:          10,
			FailureThreshold:        3,
			ResetTimeoutSeconds:     300,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 3,
			RequestsPerHour:   20,
			RequestsPerDay:    50,
		},
		Images: ImagesConfig{
			MaxWidth:    1600,
			JPEGQuality: 82,
			MaxBytes:    8 << 20,
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			ReindexSpec:    "0 3 * * *",
			CleanupEnabled: false,
			CleanupSpec:    "30 3 * * 0",
			RetentionDays:  180,
			MaxDeletions:   500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Color:  true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides file values with environment variables when set.
func (c *Config) ApplyEnv() {
	c.Server.Port = GetEnv("PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.Database.Type = GetEnv("DB_TYPE", c.Database.Type)
	c.Database.SQLite.Path = GetEnv("SQLITE_PATH", c.Database.SQLite.Path)
	switch c.Database.Type {
	case "mysql":
		m := &c.Database.MySQL
		m.Host = GetEnvOrConfig(m.Host, "DB_HOST", "mysql")
		m.Port = getEnvInt("DB_PORT", m.Port, 3306)
		m.User = GetEnvOrConfig(m.User, "DB_USER", "catalog_user")
		m.Password = GetEnvOrConfig(m.Password, "DB_PASSWORD", "catalog_pass")
		m.Database = GetEnvOrConfig(m.Database, "DB_NAME", "catalog_db")
	case "postgres":
		p := &c.Database.Postgres
		p.Host = GetEnvOrConfig(p.Host, "DB_HOST", "db")
		p.Port = getEnvInt("DB_PORT", p.Port, 5432)
		p.User = GetEnvOrConfig(p.User, "DB_USER", "catalog_user")
		p.Password = GetEnvOrConfig(p.Password, "DB_PASSWORD", "catalog_pass")
		p.Database = GetEnvOrConfig(p.Database, "DB_NAME", "catalog_db")
		p.SSLMode = GetEnvOrConfig(p.SSLMode, "DB_SSLMODE", "disable")
	}

	ms := &c.Search.Meilisearch
	ms.Host = GetEnv("MEILISEARCH_HOST", ms.Host)
	ms.APIKey = GetEnv("MEILISEARCH_KEY", ms.APIKey)
	if v := os.Getenv("MEILISEARCH_ENABLED"); v != "" {
		ms.Enabled = v == "true"
	}

	c.Admin.Email = GetEnv("ADMIN_EMAIL", c.Admin.Email)
	c.Admin.PasswordHash = GetEnv("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)
	c.Admin.TokenSecret = GetEnv("ADMIN_TOKEN_SECRET", c.Admin.TokenSecret)

	c.Email.ServiceID = GetEnv("EMAILJS_SERVICE_ID", c.Email.ServiceID)
	c.Email.TemplateID = GetEnv("EMAILJS_TEMPLATE_ID", c.Email.TemplateID)
	c.Email.PublicKey = GetEnv("EMAILJS_PUBLIC_KEY", c.Email.PublicKey)
	c.Email.PrivateKey = GetEnv("EMAILJS_PRIVATE_KEY", c.Email.PrivateKey)

	c.Logging.Level = GetEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = GetEnv("LOG_FORMAT", c.Logging.Format)
}

// SessionTTL returns the admin session lifetime
func (c *AdminConfig) SessionTTL() time.Duration {
	if c.SessionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionHours) * time.Hour
}

// GetTimeout returns the EmailJS request timeout as a duration
func (c *EmailConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetResetTimeout returns how long the email breaker stays open
func (c *EmailConfig) GetResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSeconds) * time.Second
}

// GetEnv returns the environment value for key or defaultValue when unset
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func GetEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return GetEnv(envKey, defaultValue)
}

func getEnvInt(key string, configValue, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
