package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const envPrefix = "UROVITAL"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Mail      MailConfig      `mapstructure:"mail"`
	Directory DirectoryConfig `mapstructure:"directory"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MetricsPrefix   string        `mapstructure:"metrics_prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"LOG_LEVEL"`
	JSON  bool   `mapstructure:"json" envconfig:"LOG_JSON"`
}

// StorageConfig selects the repository implementation: "postgres" or
// "memory" (local development and demos).
type StorageConfig struct {
	Driver string `mapstructure:"driver" envconfig:"STORAGE_DRIVER"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host" envconfig:"DB_HOST"`
	Port        int    `mapstructure:"port" envconfig:"DB_PORT"`
	User        string `mapstructure:"user" envconfig:"DB_USER"`
	Password    string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name        string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode     string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConn int    `mapstructure:"max_open_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate" envconfig:"DB_AUTO_MIGRATE"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret" envconfig:"JWT_SECRET"`
	Issuer string        `mapstructure:"issuer"`
	Expiry time.Duration `mapstructure:"expiry" envconfig:"JWT_EXPIRY"`
}

// BrokerConfig picks where notification events are published: "redis",
// "kafka" or "none".
type BrokerConfig struct {
	Driver string `mapstructure:"driver" envconfig:"BROKER_DRIVER"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string   `mapstructure:"topic" envconfig:"KAFKA_TOPIC"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled" envconfig:"MAIL_ENABLED"`
	Host     string `mapstructure:"host" envconfig:"MAIL_HOST"`
	Port     int    `mapstructure:"port" envconfig:"MAIL_PORT"`
	Username string `mapstructure:"username" envconfig:"MAIL_USERNAME"`
	Password string `mapstructure:"password" envconfig:"MAIL_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"MAIL_FROM"`
	FromName string `mapstructure:"from_name"`
}

type DirectoryConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// BootstrapConfig seeds the first administrator. Both values are read
// from the environment only; leave them unset after the first start.
type BootstrapConfig struct {
	AdminEmail    string `mapstructure:"-" envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"-" envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
	AdminName     string `mapstructure:"-" envconfig:"BOOTSTRAP_ADMIN_NAME"`
}

func (c BootstrapConfig) Enabled() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 45*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.metrics_prefix", "urovital")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("jwt.issuer", "urovital")
	v.SetDefault("jwt.expiry", 12*time.Hour)
	v.SetDefault("broker.driver", "none")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("kafka.topic", "urovital.notifications")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from_name", "UroVital")
	v.SetDefault("directory.cache_ttl", 5*time.Minute)
	v.SetDefault("directory.cleanup_interval", 10*time.Minute)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
}

// LoadConfig reads config.yml from the usual locations, then overlays
// UROVITAL_* environment variables. A .env file is honoured if present.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays only the variables that are actually set, so file
// values survive when the environment is silent.
func applyEnv(cfg *Config) error {
	sections := []interface{}{
		&cfg.Server, &cfg.Log, &cfg.Storage, &cfg.Database, &cfg.JWT,
		&cfg.Broker, &cfg.Redis, &cfg.Kafka, &cfg.Mail, &cfg.Bootstrap,
	}
	for _, s := range sections {
		if err := envconfig.Process(envPrefix, s); err != nil {
			return fmt.Errorf("failed to process environment: %w", err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Broker.Driver {
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis broker")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required for the kafka broker")
		}
	case "none":
	default:
		return fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}

	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		return errors.New("mail.host and mail.from are required when mail is enabled")
	}
	return nil
}
