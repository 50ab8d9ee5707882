package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Oracle   OracleConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Sessions SessionConfig
	Exports  ExportConfig
	Jobs     JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AuthConfig gates bearer auth for the API. ClientSecretHash is a bcrypt
// hash of the shared API secret.
type AuthConfig struct {
	Enabled          bool
	ClientID         string
	ClientSecretHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OracleConfig wires the OpenAI-backed emotion/policy/level oracles.
// With Enabled=false (or an empty key) every component runs on its
// deterministic fallback.
type OracleConfig struct {
	Enabled     bool
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// StorageConfig selects the profile store driver and the data directory
// used for profiles, trajectories and session logs.
type StorageConfig struct {
	ProfileDriver string // "file" or "postgres"
	DataDir       string
}

// CacheConfig governs Redis-backed profile/statistics caching.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SessionConfig tunes live session behaviour.
type SessionConfig struct {
	LevelCheckInterval  int
	EmotionHistoryLimit int
}

// ExportConfig toggles CSV/PDF exports.
type ExportConfig struct {
	Enabled bool
}

// JobsConfig configures the async trajectory build queue.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.Auth = AuthConfig{
		Enabled:          v.GetBool("ENABLE_AUTH"),
		ClientID:         v.GetString("AUTH_CLIENT_ID"),
		ClientSecretHash: v.GetString("AUTH_CLIENT_SECRET_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Oracle = OracleConfig{
		Enabled:     v.GetBool("ENABLE_ORACLE"),
		APIKey:      v.GetString("OPENAI_API_KEY"),
		BaseURL:     v.GetString("OPENAI_BASE_URL"),
		Model:       v.GetString("OPENAI_MODEL"),
		Temperature: v.GetFloat64("ORACLE_TEMPERATURE"),
		Timeout:     parseDuration(v.GetString("ORACLE_TIMEOUT"), 15*time.Second),
	}

	cfg.Storage = StorageConfig{
		ProfileDriver: v.GetString("PROFILE_STORAGE_DRIVER"),
		DataDir:       v.GetString("DATA_DIR"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.Sessions = SessionConfig{
		LevelCheckInterval:  v.GetInt("SESSION_LEVEL_CHECK_INTERVAL"),
		EmotionHistoryLimit: v.GetInt("SESSION_EMOTION_HISTORY_LIMIT"),
	}

	cfg.Exports = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mandarin_tutor")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("ENABLE_AUTH", false)
	v.SetDefault("AUTH_CLIENT_ID", "")
	v.SetDefault("AUTH_CLIENT_SECRET_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ORACLE", false)
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ORACLE_TEMPERATURE", 0.7)
	v.SetDefault("ORACLE_TIMEOUT", "15s")

	v.SetDefault("PROFILE_STORAGE_DRIVER", "file")
	v.SetDefault("DATA_DIR", "./data")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("SESSION_LEVEL_CHECK_INTERVAL", 5)
	v.SetDefault("SESSION_EMOTION_HISTORY_LIMIT", 50)

	v.SetDefault("ENABLE_EXPORTS", false)

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
