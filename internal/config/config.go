package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	FanoutDriverRedis    = "redis"
	FanoutDriverRabbitMQ = "rabbitmq"
)

// Config holds all configuration for the order service
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Fanout    FanoutConfig    `yaml:"fanout"`
	MenuCache MenuCacheConfig `yaml:"menu_cache"`
}

type HTTPConfig struct {
	Port              int           `yaml:"port"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Database      string `yaml:"database"`
	MaxConns      int32  `yaml:"max_conns"`
	MinConns      int32  `yaml:"min_conns"`
	MigrationsDir string `yaml:"migrations_dir"`
	URL           string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	URL      string `yaml:"url"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange"`
	URL      string `yaml:"url"`
}

// FanoutConfig controls how events travel between processes.
type FanoutConfig struct {
	Driver         string        `yaml:"driver"`
	Pattern        string        `yaml:"pattern"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type MenuCacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:              8000,
			ShutdownTimeout:   10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Store: StoreConfig{Driver: StoreDriverPostgres},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			User:          "restaurant_user",
			Password:      "restaurant_pass",
			Database:      "restaurant_db",
			MaxConns:      25,
			MinConns:      5,
			MigrationsDir: "migrations",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Exchange: "restaurant_events",
		},
		Fanout: FanoutConfig{
			Driver:         FanoutDriverRedis,
			Pattern:        "events:*",
			InitialBackoff: time.Second,
			MaxBackoff:     5 * time.Second,
			PollTimeout:    time.Second,
			PublishTimeout: time.Second,
		},
		MenuCache: MenuCacheConfig{TTL: 300 * time.Second},
	}
}

// Load reads configuration from a YAML file on top of Default, then applies
// environment overrides.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := getenv("RABBITMQ_URL"); v != "" {
		c.RabbitMQ.URL = v
	}
	if v := getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := getenv("FANOUT_DRIVER"); v != "" {
		c.Fanout.Driver = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	return nil
}

// Validate rejects unknown drivers and unusable timings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Fanout.Driver {
	case FanoutDriverRedis, FanoutDriverRabbitMQ:
	default:
		return fmt.Errorf("unknown fanout driver %q", c.Fanout.Driver)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.Fanout.InitialBackoff <= 0 || c.Fanout.MaxBackoff < c.Fanout.InitialBackoff {
		return errors.New("fanout backoff must be positive and max_backoff >= initial_backoff")
	}
	if c.Fanout.PollTimeout <= 0 || c.Fanout.PublishTimeout <= 0 {
		return errors.New("fanout poll_timeout and publish_timeout must be positive")
	}
	if c.MenuCache.TTL <= 0 {
		return errors.New("menu_cache ttl must be positive")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	if c.RabbitMQ.URL != "" {
		return c.RabbitMQ.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RedisOptions builds client options, preferring the URL form when set.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL != "" {
		opts, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}, nil
}
