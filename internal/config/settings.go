package config

import (
	"fmt"
	"time"
)

// DatabaseConfig holds the postgres connection and pool settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the keyword/value connection string understood by both pgx and lib/pq.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds the optional chargeback cache settings. An empty Host
// disables the cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// BigQueryConfig locates the table used when RESULTS_SINK=bigquery.
type BigQueryConfig struct {
	Project string
	Dataset string
	Table   string
}

// BacktestConfig sizes the batch orchestrator.
type BacktestConfig struct {
	Workers       int
	BatchSize     int
	ProgressEvery int
	ResultsSink   string
	EvaluatorURL  string
	CallTimeout   time.Duration
}

// Config is the full runtime configuration assembled from the environment.
type Config struct {
	Env        string
	Port       string
	LogLevel   string
	LogFormat  string
	AuthSecret string
	Database   DatabaseConfig
	Redis      RedisConfig
	BigQuery   BigQueryConfig
	Backtest   BacktestConfig
}

// Load reads the environment (after LoadEnv) into a Config with defaults applied.
func Load() Config {
	return Config{
		Env:        GetEnv("ENV", "development"),
		Port:       GetEnv("PORT", "5000"),
		LogLevel:   GetEnv("LOG_LEVEL", "info"),
		LogFormat:  GetEnv("LOG_FORMAT", "console"),
		AuthSecret: GetEnv("AUTH_SECRET", ""),
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "riskgate"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", ""),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
			TTL:      GetDurationEnv("CACHE_TTL", 24*time.Hour),
		},
		BigQuery: BigQueryConfig{
			Project: GetEnv("BIGQUERY_PROJECT", ""),
			Dataset: GetEnv("BIGQUERY_DATASET", "riskgate"),
			Table:   GetEnv("BIGQUERY_TABLE", "transactions_api_results"),
		},
		Backtest: BacktestConfig{
			Workers:       GetIntEnv("BACKTEST_WORKERS", 10),
			BatchSize:     GetIntEnv("BACKTEST_BATCH_SIZE", 100),
			ProgressEvery: GetIntEnv("BACKTEST_PROGRESS_EVERY", 25),
			ResultsSink:   GetEnv("RESULTS_SINK", "postgres"),
			EvaluatorURL:  GetEnv("EVALUATOR_URL", "http://localhost:5000/evaluate_transaction"),
			CallTimeout:   GetDurationEnv("EVALUATOR_TIMEOUT", 30*time.Second),
		},
	}
}
