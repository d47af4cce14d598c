package config

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
}

type ServerConfig struct {
	ServiceName    string
	Port           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DatabaseConfig selects the store. Driver is "postgres" or "memory".
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	// RateLimitRequests per RateLimitWindow per cashier or client IP; 0 disables
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	GroupID            string
	StockReceivedTopic string
	BreakerMaxFailures int
	BreakerCoolDown    time.Duration
}

type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
	SampleRatio    float64
}

type AuthConfig struct {
	JWTSecret string
}

type LedgerConfig struct {
	Timezone           string
	DefaultPhoneRegion string
	TopProducts        int
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Location resolves the ledger timezone, falling back to UTC
func (c LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env (if present) and the environment once per process
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = load(viper.New())
	})
	return instance
}

func load(v *viper.Viper) *Config {
	v.SetDefault("OTEL_SERVICE_NAME", "ledger-service")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ledgerdb")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", "ledger-service")
	v.SetDefault("KAFKA_STOCK_RECEIVED_TOPIC", "stock-received")
	v.SetDefault("KAFKA_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("KAFKA_BREAKER_COOL_DOWN", "30s")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("LEDGER_TIMEZONE", "UTC")
	v.SetDefault("LEDGER_PHONE_REGION", "EG")
	v.SetDefault("LEDGER_TOP_PRODUCTS", 10)

	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			Port:           v.GetString("HTTP_PORT"),
			Environment:    v.GetString("ENVIRONMENT"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("DB_DRIVER"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Cache: CacheConfig{
			Enabled:        v.GetBool("CACHE_ENABLED"),
			RedisURL:       v.GetString("REDIS_URL"),
			RedisHost:      v.GetString("REDIS_HOST"),
			RedisPort:      v.GetString("REDIS_PORT"),
			RedisPassword:  v.GetString("REDIS_PASSWORD"),
			RedisDB:        v.GetInt("REDIS_DB"),
			IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),

			RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Kafka: KafkaConfig{
			Enabled:            v.GetBool("KAFKA_ENABLED"),
			Brokers:            splitList(v.GetString("KAFKA_BROKERS")),
			GroupID:            v.GetString("KAFKA_GROUP_ID"),
			StockReceivedTopic: v.GetString("KAFKA_STOCK_RECEIVED_TOPIC"),
			BreakerMaxFailures: v.GetInt("KAFKA_BREAKER_MAX_FAILURES"),
			BreakerCoolDown:    v.GetDuration("KAFKA_BREAKER_COOL_DOWN"),
		},
		Tracing: TracingConfig{
			Enabled:        v.GetBool("TRACING_ENABLED"),
			JaegerEndpoint: v.GetString("JAEGER_ENDPOINT"),
			SampleRatio:    v.GetFloat64("TRACING_SAMPLE_RATIO"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Ledger: LedgerConfig{
			Timezone:           v.GetString("LEDGER_TIMEZONE"),
			DefaultPhoneRegion: v.GetString("LEDGER_PHONE_REGION"),
			TopProducts:        v.GetInt("LEDGER_TOP_PRODUCTS"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
