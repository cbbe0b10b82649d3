package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEDICONNECT_DATABASE_HOST.
const EnvPrefix = "mediconnect"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" split_words:"true"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" split_words:"true"`
	Migrate      bool   `mapstructure:"migrate"`
	Seed         bool   `mapstructure:"seed"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	DoctorTTL       time.Duration `mapstructure:"doctor_ttl" split_words:"true"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval  time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" split_words:"true"`
	Retention     time.Duration `mapstructure:"retention"`
}

type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins" split_words:"true"`
	MaxAge         time.Duration `mapstructure:"max_age" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "mediconnect")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.seed", false)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "notifications")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.issuer", "mediconnect")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cache.doctor_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 5*time.Second)
	v.SetDefault("outbox.retention", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 24*time.Hour)
}

// LoadConfig reads CONFIG_FILE when set, otherwise config.yaml from the usual
// search paths. A missing file is not an error.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load reads path (or searches for config.yaml when empty), then applies
// .env and MEDICONNECT_* environment overrides.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")           // current directory
		v.AddConfigPath("./config")    // config subdirectory
		v.AddConfigPath("/app")        // container root directory
		v.AddConfigPath("/app/config") // container config directory
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
