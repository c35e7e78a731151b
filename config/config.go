package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	HTTP        ServerConfig
	MySQL       MySQLConfig
	Redis       RedisConfig
	Log         LogConfig
	OrangeMoney OrangeMoneyConfig
	Orders      OrdersConfig
	Jobs        JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level string
}

type OrangeMoneyConfig struct {
	Enabled     bool
	Title       string
	Description string

	APIKey    string
	APISecret string
	Sandbox   bool

	LiveEndpoint    string
	SandboxEndpoint string
	IPNBaseURL      string

	HTTPTimeout         time.Duration
	BreakerMaxFailures  int
	BreakerOpenInterval time.Duration
}

type OrdersConfig struct {
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "orange-money-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		OrangeMoney: OrangeMoneyConfig{
			Enabled:             getBoolEnv("ORANGE_MONEY_ENABLED", true),
			Title:               getEnv("ORANGE_MONEY_TITLE", "Orange Money"),
			Description:         getEnv("ORANGE_MONEY_DESCRIPTION", "Pay with Orange Money"),
			APIKey:              getEnv("ORANGE_MONEY_API_KEY", ""),
			APISecret:           getEnv("ORANGE_MONEY_API_SECRET", ""),
			Sandbox:             getBoolEnv("ORANGE_MONEY_SANDBOX", true),
			LiveEndpoint:        getEnv("ORANGE_MONEY_LIVE_ENDPOINT", "https://api.orange-money.com/payment"),
			SandboxEndpoint:     getEnv("ORANGE_MONEY_SANDBOX_ENDPOINT", "https://sandbox.orange-money.com/payment"),
			IPNBaseURL:          getEnv("ORANGE_MONEY_IPN_BASE_URL", ""),
			HTTPTimeout:         getSecondsEnv("ORANGE_MONEY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			BreakerMaxFailures:  getIntEnv("ORANGE_MONEY_BREAKER_MAX_FAILURES", 5),
			BreakerOpenInterval: getSecondsEnv("ORANGE_MONEY_BREAKER_OPEN_SECONDS", 30*time.Second),
		},
		Orders: OrdersConfig{
			PendingTimeout:      getMinutesEnv("ORDERS_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("ORDERS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("ORDERS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("ORDERS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("ORDERS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
