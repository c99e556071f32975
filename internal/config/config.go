package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"dustbinpro/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	GuardScan = "scan"
	GuardLock = "lock"
)

type Config struct {
	App           AppConfig          `yaml:"app"`
	HTTP          HTTPConfig         `yaml:"http"`
	Store         StoreConfig        `yaml:"store"`
	Redis         RedisConfig        `yaml:"redis"`
	Session       SessionConfig      `yaml:"session"`
	Booking       BookingConfig      `yaml:"booking"`
	Notifications NotificationConfig `yaml:"notifications"`
	Mail          MailConfig         `yaml:"mail"`
	Telegram      TelegramConfig     `yaml:"telegram"`
	Google        GoogleConfig       `yaml:"google"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	Outbox        OutboxConfig       `yaml:"outbox"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port         int           `yaml:"port"`
	CSRFKey      string        `yaml:"csrf_key"`
	CSRFDisabled bool          `yaml:"csrf_disabled"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	RateLimit    RateLimit     `yaml:"rate_limit"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// StoreConfig points at the document store. Database is the fixed project
// identifier shared with the back-office tools.
type StoreConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

type BookingConfig struct {
	// ConflictGuard is "scan" (query then insert) or "lock" (scan plus a
	// conditional write on booking_locks).
	ConflictGuard string `yaml:"conflict_guard"`
}

type NotificationConfig struct {
	Limit int `yaml:"limit"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	OpsChat  int64  `yaml:"ops_chat"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadSheetID string `yaml:"bookings_spreadsheet_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type OutboxConfig struct {
	Path       string        `yaml:"path"`
	MaxRetries int           `yaml:"max_retries"`
	Poll       time.Duration `yaml:"poll"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthGRPCPort    int  `yaml:"health_grpc_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// envOverrides are the process-level settings a container platform injects.
type envOverrides struct {
	Port         int    `envconfig:"PORT"`
	MongoURI     string `envconfig:"MONGO_URI"`
	StoreProject string `envconfig:"STORE_PROJECT"`
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	CSRFKey      string `envconfig:"CSRF_KEY"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional in containers
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}
	if env.Port != 0 {
		c.HTTP.Port = env.Port
	}
	if env.MongoURI != "" {
		c.Store.URI = env.MongoURI
	}
	if env.StoreProject != "" {
		c.Store.Database = env.StoreProject
	}
	if env.RedisAddr != "" {
		c.Redis.Address = env.RedisAddr
	}
	if env.CSRFKey != "" {
		c.HTTP.CSRFKey = env.CSRFKey
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Store.URI == "" {
		return errors.New("store uri is required")
	}
	if c.Store.Database == "" {
		return errors.New("store database is required")
	}
	switch c.Booking.ConflictGuard {
	case GuardScan, GuardLock:
	default:
		return fmt.Errorf("unknown booking.conflict_guard %q", c.Booking.ConflictGuard)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative, got %s", c.Session.TTL)
	}
	if !c.HTTP.CSRFDisabled && len(c.HTTP.CSRFKey) != 32 {
		return errors.New("http.csrf_key must be 32 bytes")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "dustbinpro-portal"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.Store.Database == "" {
		c.Store.Database = "therockwastemanagement"
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = 10 * time.Second
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "dustbinpro_session"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = models.DefaultSessionTTL
	}
	if c.Booking.ConflictGuard == "" {
		c.Booking.ConflictGuard = GuardScan
	}
	if c.Notifications.Limit == 0 {
		c.Notifications.Limit = models.DefaultNotificationsLimit
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "portal.events"
	}
	if c.Outbox.Path == "" {
		c.Outbox.Path = "data/outbox.db"
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Outbox.Poll == 0 {
		c.Outbox.Poll = 2 * time.Second
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Monitoring.HealthGRPCPort == 0 {
		c.Monitoring.HealthGRPCPort = 8081
	}
}
