// Package config provides configuration loading and management for Vigil.
// Configuration is read from a YAML file; secrets may be overridden from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StorageMode represents the storage backend mode.
type StorageMode string

const (
	// StorageModeMemory uses in-memory implementations for all storage.
	StorageModeMemory StorageMode = "memory"
	// StorageModeStorage uses real storage backends (Kafka, Redis, PostgreSQL).
	StorageModeStorage StorageMode = "storage"
)

// IsValid returns true if the storage mode is valid.
func (m StorageMode) IsValid() bool {
	return m == StorageModeMemory || m == StorageModeStorage
}

// DedupBackend selects where dedup markers live in storage mode.
type DedupBackend string

const (
	DedupBackendRedis    DedupBackend = "redis"
	DedupBackendPostgres DedupBackend = "postgres"
)

// IsValid returns true if the dedup backend is known.
func (b DedupBackend) IsValid() bool {
	return b == DedupBackendRedis || b == DedupBackendPostgres
}

// UnresolvedPolicy decides what happens when an alert's notification kind
// cannot be resolved at dispatch time.
type UnresolvedPolicy string

const (
	// UnresolvedRetry leaves the pair unmarked so a later pass may still fire it.
	UnresolvedRetry UnresolvedPolicy = "retry"
	// UnresolvedSkip writes a marker so the pair never fires.
	UnresolvedSkip UnresolvedPolicy = "skip"
)

// IsValid returns true if the policy is known.
func (p UnresolvedPolicy) IsValid() bool {
	return p == UnresolvedRetry || p == UnresolvedSkip
}

// Validation errors for Config.
var (
	ErrInvalidStorageMode      = errors.New("storage.mode must be 'memory' or 'storage'")
	ErrInvalidDedupBackend     = errors.New("storage.dedup_backend must be 'redis' or 'postgres'")
	ErrInvalidUnresolvedPolicy = errors.New("dispatch.unresolved_notifier must be 'retry' or 'skip'")
	ErrInvalidWorkers          = errors.New("dispatch.workers must be positive")
)

// Config represents the complete application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Logger    LoggerConfig    `yaml:"logger"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Notifiers NotifiersConfig `yaml:"notifiers"`
}

// StorageConfig holds the storage mode configuration.
type StorageConfig struct {
	Mode         StorageMode  `yaml:"mode"`
	DedupBackend DedupBackend `yaml:"dedup_backend"`
}

// UseMemory returns true if in-memory storage should be used.
func (c *StorageConfig) UseMemory() bool {
	return c.Mode == StorageModeMemory
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// KafkaConfig holds Kafka connection and topic settings for record events.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int32  `yaml:"max_open_conns"`
	MaxIdleConns int32  `yaml:"max_idle_conns"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// DispatchConfig controls the dispatcher worker pool.
type DispatchConfig struct {
	Workers            int              `yaml:"workers"`
	QueueSize          int              `yaml:"queue_size"`
	NotifierTimeout    time.Duration    `yaml:"notifier_timeout"`
	ListenerTimeout    time.Duration    `yaml:"listener_timeout"`
	UnresolvedNotifier UnresolvedPolicy `yaml:"unresolved_notifier"`
}

// NotifiersConfig holds per-channel notifier settings.
type NotifiersConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Webhook WebhookConfig `yaml:"webhook"`
	IFTTT   HTTPConfig    `yaml:"ifttt"`
	Slack   HTTPConfig    `yaml:"slack"`
}

// EmailConfig holds email notifier and provider settings.
type EmailConfig struct {
	From     string       `yaml:"from"`
	Primary  string       `yaml:"primary"`
	Fallback []string     `yaml:"fallback"`
	SMTP     SMTPConfig   `yaml:"smtp"`
	Resend   ResendConfig `yaml:"resend"`
	SES      SESConfig    `yaml:"ses"`
}

// SMTPConfig holds SMTP relay settings. An empty host disables the provider.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ResendConfig holds Resend API settings. An empty key disables the provider.
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
}

// WebhookConfig holds generic webhook notifier settings.
type WebhookConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	SigningSecret string        `yaml:"signing_secret"`
}

// HTTPConfig holds settings shared by simple HTTP notifiers.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Load reads configuration from the specified YAML file path.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !c.Storage.Mode.IsValid() {
		return ErrInvalidStorageMode
	}
	if !c.Storage.DedupBackend.IsValid() {
		return ErrInvalidDedupBackend
	}
	if !c.Dispatch.UnresolvedNotifier.IsValid() {
		return ErrInvalidUnresolvedPolicy
	}
	if c.Dispatch.Workers <= 0 {
		return ErrInvalidWorkers
	}
	return nil
}

// applyEnv lets deployment secrets live outside the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Notifiers.Email.Resend.APIKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Notifiers.Email.SES.Region = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Notifiers.Email.SMTP.Password = v
	}
	if v := os.Getenv("VIGIL_WEBHOOK_SECRET"); v != "" {
		cfg.Notifiers.Webhook.SigningSecret = v
	}
}

// applyDefaults sets default values for configuration fields
// that are not explicitly set in the config file.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = StorageModeMemory
	}
	if cfg.Storage.DedupBackend == "" {
		cfg.Storage.DedupBackend = DedupBackendRedis
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "vigil-records"
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "vigil-matcher"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 25
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 5
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}

	if cfg.Dispatch.Workers == 0 {
		cfg.Dispatch.Workers = 8
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = 256
	}
	if cfg.Dispatch.NotifierTimeout == 0 {
		cfg.Dispatch.NotifierTimeout = 10 * time.Second
	}
	if cfg.Dispatch.ListenerTimeout == 0 {
		cfg.Dispatch.ListenerTimeout = 30 * time.Second
	}
	if cfg.Dispatch.UnresolvedNotifier == "" {
		cfg.Dispatch.UnresolvedNotifier = UnresolvedRetry
	}

	if cfg.Notifiers.Email.From == "" {
		cfg.Notifiers.Email.From = "vigil@localhost"
	}
	if cfg.Notifiers.Email.Primary == "" {
		cfg.Notifiers.Email.Primary = "smtp"
	}
	if cfg.Notifiers.Email.SMTP.Port == 0 {
		cfg.Notifiers.Email.SMTP.Port = 587
	}
	if cfg.Notifiers.Email.SES.Region == "" {
		cfg.Notifiers.Email.SES.Region = "us-east-1"
	}
	if cfg.Notifiers.Webhook.Timeout == 0 {
		cfg.Notifiers.Webhook.Timeout = 30 * time.Second
	}
	if cfg.Notifiers.IFTTT.Timeout == 0 {
		cfg.Notifiers.IFTTT.Timeout = 30 * time.Second
	}
	if cfg.Notifiers.Slack.Timeout == 0 {
		cfg.Notifiers.Slack.Timeout = 30 * time.Second
	}
}

// Address returns the full server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ConnString returns the pgx connection URL including pool size.
func (c *PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode, c.MaxOpenConns,
	)
}

// RedisAddr returns the Redis address in host:port format.
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPAddr returns the SMTP relay address in host:port format.
func (c *SMTPConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseLevel maps a textual level onto slog's numeric levels.
// Unknown values fall back to info.
func (c *LoggerConfig) ParseLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
