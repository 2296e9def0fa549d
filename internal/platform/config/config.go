package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Defaults come from Default, an
// optional YAML file named by LOANBROKER_CONFIG overlays them, and
// environment variables win over both.
type Config struct {
	Server    Server          `yaml:"server"`
	Limits    Limits          `yaml:"limits"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	TokenIssuer     string        `yaml:"token_issuer"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AdminEmail      string        `yaml:"admin_email"`
	AdminPassword   string        `yaml:"admin_password"`
	// TrustedProxies lists addresses or CIDRs whose forwarding headers are
	// believed. Empty means the peer address is the client.
	TrustedProxies  []string      `yaml:"trusted_proxies"`
}

// Limits are the calculator maxima enforced at request boundaries.
type Limits struct {
	MaxPrincipal   float64 `yaml:"max_principal"`
	MaxRatePercent float64 `yaml:"max_rate_percent"`
	MaxTenureYears int     `yaml:"max_tenure_years"`
}

// PostgresConfig selects the relational store; empty DSN means in-memory.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// MongoConfig selects the document store; empty URI means in-memory.
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// RedisConfig selects the quote cache; empty URL means in-memory.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig enables event publishing; no brokers means log-only events.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type CacheConfig struct {
	QuoteTTL time.Duration `yaml:"quote_ttl"`
}

// RateLimitConfig drives the per-IP token bucket on public endpoints.
type RateLimitConfig struct {
	Capacity int           `yaml:"capacity"`
	Refill   time.Duration `yaml:"refill"`
	Disabled bool          `yaml:"disabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns development defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			JWTSigningKey:   "dev-secret-key-change-in-production",
			TokenIssuer:     "loanbroker",
			TokenTTL:        24 * time.Hour,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Limits: Limits{
			MaxPrincipal:   50_000_000,
			MaxRatePercent: 18,
			MaxTenureYears: 30,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Mongo: MongoConfig{
			Database:       "loanbroker",
			ConnectTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{Topic: "loanbroker.events"},
		Cache: CacheConfig{QuoteTTL: 10 * time.Minute},
		RateLimit: RateLimitConfig{
			Capacity: 30,
			Refill:   time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// FromEnv builds the configuration so main stays lean.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv("LOANBROKER_CONFIG"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	var errs []string
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}

	str("LOANBROKER_ADDR", &cfg.Server.Addr)
	str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	dur("TOKEN_TTL", &cfg.Server.TokenTTL)
	dur("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	str("ADMIN_EMAIL", &cfg.Server.AdminEmail)
	str("ADMIN_PASSWORD", &cfg.Server.AdminPassword)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = splitList(v)
	}

	num("MAX_PRINCIPAL", &cfg.Limits.MaxPrincipal)
	num("MAX_RATE_PERCENT", &cfg.Limits.MaxRatePercent)
	integer("MAX_TENURE_YEARS", &cfg.Limits.MaxTenureYears)

	str("DATABASE_URL", &cfg.Postgres.DSN)
	str("MONGO_URI", &cfg.Mongo.URI)
	str("MONGO_DATABASE", &cfg.Mongo.Database)
	str("REDIS_URL", &cfg.Redis.URL)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_TOPIC", &cfg.Kafka.Topic)

	dur("QUOTE_CACHE_TTL", &cfg.Cache.QuoteTTL)
	integer("RATE_LIMIT_CAPACITY", &cfg.RateLimit.Capacity)
	dur("RATE_LIMIT_REFILL", &cfg.RateLimit.Refill)
	if os.Getenv("DISABLE_RATE_LIMITING") == "true" {
		cfg.RateLimit.Disabled = true
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
