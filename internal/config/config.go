package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	TTL        TTLConfig        `mapstructure:"ttl"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// BasePath is prepended to every notification route, e.g. "/api/v1".
	BasePath       string        `mapstructure:"base_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory driver keeps everything in-process.
	Driver      string        `mapstructure:"driver"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Name        string        `mapstructure:"name"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	SSLMode     string        `mapstructure:"ssl_mode"`
	MaxConns    int32         `mapstructure:"max_conns"`
	MinConns    int32         `mapstructure:"min_conns"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTAlgorithm string        `mapstructure:"jwt_algorithm"`
	Issuer       string        `mapstructure:"issuer"`
	ServiceToken string        `mapstructure:"service_token"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CountTTL time.Duration `mapstructure:"count_ttl"`
}

type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

type TTLConfig struct {
	// ArchivedRetentionDays is how long archived notifications are kept. 0 disables the purge.
	ArchivedRetentionDays int           `mapstructure:"archived_retention_days"`
	PurgeInterval         time.Duration `mapstructure:"purge_interval"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

// Load reads configuration from an optional .env file, environment variables and an
// optional config file. Environment variables override file values. Prefix: NOTIF_
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:8000"})
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "activitydb")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 100)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.call_timeout", 60*time.Second)
	v.SetDefault("auth.jwt_algorithm", "HS256")
	v.SetDefault("auth.token_ttl", 15*time.Minute)
	v.SetDefault("pagination.default_limit", 20)
	v.SetDefault("pagination.max_limit", 100)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.count_ttl", 30*time.Second)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "notification-service")
	v.SetDefault("kafka.topics", []string{"activity-events", "community-events", "social-events", "notification-commands"})
	v.SetDefault("ttl.archived_retention_days", 90)
	v.SetDefault("ttl.purge_interval", 24*time.Hour)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Environment variables (e.g. NOTIF_DATABASE_HOST -> database.host)
	v.SetEnvPrefix("NOTIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.jwt_algorithm", "JWT_ALGORITHM")
	v.BindEnv("auth.service_token", "SERVICE_TOKEN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("server.env", "ENVIRONMENT")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.ServiceToken == "" {
		errs = append(errs, errors.New("auth.service_token is required"))
	}
	if _, ok := jwt.GetSigningMethod(c.Auth.JWTAlgorithm).(*jwt.SigningMethodHMAC); !ok {
		errs = append(errs, fmt.Errorf("auth.jwt_algorithm %q is not supported", c.Auth.JWTAlgorithm))
	}
	if c.Pagination.MaxLimit < 1 || c.Pagination.DefaultLimit < 1 || c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		errs = append(errs, errors.New("pagination limits must satisfy 1 <= default_limit <= max_limit"))
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, errors.New("database.min_conns exceeds database.max_conns"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=" + d.SSLMode
}
