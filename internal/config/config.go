package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// envProcess overlays environment variables onto the loaded file. Tests
// replace it to inject a fixed environment.
var envProcess = envconfig.Process

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Logging       LoggingConfig       `yaml:"logging"`
	App           AppConfig           `yaml:"app"`
	Worker        WorkerConfig        `yaml:"worker"`
	Storage       StorageConfig       `yaml:"storage"`
	Booking       BookingConfig       `yaml:"booking"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Auth          AuthConfig          `yaml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT,overwrite"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DATABASE_HOST,overwrite"`
	Port            int           `yaml:"port" env:"DATABASE_PORT,overwrite"`
	User            string        `yaml:"user" env:"DATABASE_USER,overwrite"`
	Password        string        `yaml:"password" env:"DATABASE_PASSWORD,overwrite"`
	Database        string        `yaml:"database" env:"DATABASE_NAME,overwrite"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration.
// The queue is only declared by the worker; the API publishes to the
// exchange alone.
type RabbitMQConfig struct {
	Host               string           `yaml:"host" env:"RABBITMQ_HOST,overwrite"`
	Port               int              `yaml:"port" env:"RABBITMQ_PORT,overwrite"`
	User               string           `yaml:"user" env:"RABBITMQ_USER,overwrite"`
	Password           string           `yaml:"password" env:"RABBITMQ_PASSWORD,overwrite"`
	VHost              string           `yaml:"vhost"`
	Exchange           ExchangeConfig   `yaml:"exchange"`
	Queue              QueueConfig      `yaml:"queue"`
	DeadLetterExchange string           `yaml:"dead_letter_exchange"`
	Connection         ConnectionConfig `yaml:"connection"`
	Publish            PublishConfig    `yaml:"publish"`
	Consumer           ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL,overwrite"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" env:"APP_ENV,overwrite"`
}

// WorkerConfig holds notification worker configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// SweepInterval runs the expire and start sweeps. Zero disables them.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StorageConfig selects the booking store.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER,overwrite"`
	// SeedPath loads users and languages into the memory store.
	SeedPath string `yaml:"seed_path"`
}

// BookingConfig tunes the booking lifecycle.
type BookingConfig struct {
	ImmediateLead time.Duration       `yaml:"immediate_lead"`
	CancelWindow  time.Duration       `yaml:"cancel_window"`
	PageSize      int                 `yaml:"page_size"`
	Timezone      string              `yaml:"timezone"`
	NightStart    time.Duration       `yaml:"night_start"`
	NightEnd      time.Duration       `yaml:"night_end"`
	Expiry        domain.ExpiryPolicy `yaml:"expiry"`
}

// Location resolves the configured timezone.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// NotificationsConfig holds the delivery channel settings.
type NotificationsConfig struct {
	// TemplatesPath points at a YAML message catalog. Empty uses the built-in one.
	TemplatesPath string          `yaml:"templates_path"`
	Push          PushConfig      `yaml:"push"`
	SMS           SMSConfig       `yaml:"sms"`
	SMTP          SMTPConfig      `yaml:"smtp"`
	Rate          RateLimitConfig `yaml:"rate"`
}

// PushConfig holds OneSignal credentials.
type PushConfig struct {
	Endpoint string        `yaml:"endpoint"`
	AppID    string        `yaml:"app_id" env:"ONESIGNAL_APP_ID,overwrite"`
	APIKey   string        `yaml:"api_key" env:"ONESIGNAL_API_KEY,overwrite"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SMSConfig holds the SMS gateway settings.
type SMSConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key" env:"SMS_API_KEY,overwrite"`
	From     string        `yaml:"from"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST,overwrite"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username" env:"SMTP_USERNAME,overwrite"`
	Password string `yaml:"password" env:"SMTP_PASSWORD,overwrite"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// RateLimitConfig caps outbound requests per second for each channel.
type RateLimitConfig struct {
	PushPerSecond float64 `yaml:"push_per_second"`
	SMSPerSecond  float64 `yaml:"sms_per_second"`
	Burst         int     `yaml:"burst"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET,overwrite"`
}

// Default returns the settings a config file starts from.
func Default() Config {
	return Config{
		Server:  ServerConfig{ShutdownTimeout: 10 * time.Second},
		Storage: StorageConfig{Driver: StoragePostgres},
		Booking: BookingConfig{
			ImmediateLead: 5 * time.Minute,
			CancelWindow:  24 * time.Hour,
			PageSize:      domain.DefaultPageSize,
			Timezone:      "Europe/Stockholm",
			NightStart:    22 * time.Hour,
			NightEnd:      7 * time.Hour,
			Expiry:        domain.DefaultExpiryPolicy(),
		},
		Worker: WorkerConfig{
			Concurrency:     1,
			JobTimeout:      30 * time.Second,
			MaxAttempts:     3,
			RetryBackoff:    time.Second,
			MaxBackoff:      time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// Load reads and parses the configuration file, then overlays values set
// in the environment.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envProcess(context.Background(), &config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return &config, nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}
	return nil
}

func (c *Config) validateBooking() error {
	if _, err := c.Booking.Location(); err != nil {
		return err
	}
	if c.Booking.PageSize < 0 {
		return fmt.Errorf("booking page_size must not be negative")
	}
	if c.Booking.NightStart < 0 || c.Booking.NightStart >= 24*time.Hour ||
		c.Booking.NightEnd < 0 || c.Booking.NightEnd >= 24*time.Hour {
		return fmt.Errorf("booking night window must lie within one day")
	}
	return nil
}

// ValidateAPIConfig checks the settings the API service needs.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	switch c.Storage.Driver {
	case StoragePostgres:
		if err := c.validateDatabase(); err != nil {
			return err
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}

	return c.validateBooking()
}

// ValidateWorkerConfig checks the settings the notification worker needs.
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("worker max_attempts must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	// The sweeps write to the booking store.
	if c.Worker.SweepInterval > 0 {
		if c.Storage.Driver != StoragePostgres {
			return fmt.Errorf("worker sweeps require the postgres storage driver")
		}
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	return c.validateBooking()
}

// ValidateCLIConfig checks the settings the admin CLI needs.
func (c *Config) ValidateCLIConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	return c.validateBooking()
}
