// Package config centraliza o carregamento de configurações do gateway.
//
// Tudo vem de variáveis de ambiente; um arquivo .env (se existir) é carregado
// antes, sem sobrescrever o que já está no ambiente.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"recipe-gateway/middleware/ratelimit"
	"recipe-gateway/middleware/ratelimit/infra"
	"recipe-gateway/recipe"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	ListenAddr  string
	MetricsAddr string
	LogLevel    string
	LogFormat   string

	Store StoreConfig
	Stats StatsConfig

	TrustedHeader string
	Location      *time.Location

	Provider ProviderConfig
}

type StoreConfig struct {
	Backend      string
	KeyPrefix    string
	Redis        RedisConfig
	SQLitePath   string
	CleanupEvery time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StatsConfig controla as estatísticas de admissão no Redis.
type StatsConfig struct {
	Enabled   bool
	Redis     RedisConfig
	Prefix    string
	TTL       time.Duration
	Bucket    string
	TrackKeys bool
}

type ProviderConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float64
	MaxTokens          int
	RPS                float64
	Burst              int
	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration
	PromptFile         string
}

// Load lê .env (opcional) e o ambiente.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.MetricsAddr = getenvDefault("METRICS_ADDR", ":9090")
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok && strings.TrimSpace(v) == "" {
		cfg.MetricsAddr = ""
	}
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.Store.Backend = strings.ToLower(getenvDefault("STORE_BACKEND", BackendMemory))
	cfg.Store.KeyPrefix = getenvDefault("STORE_KEY_PREFIX", infra.DefaultKeyPrefix)
	cfg.Store.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getenvIntDefault("REDIS_DB", 0),
	}
	cfg.Store.SQLitePath = getenvDefault("SQLITE_PATH", "ratelimit.db")
	cfg.Store.CleanupEvery = getenvDurationDefault("MEMORY_CLEANUP_EVERY", 5*time.Minute)

	cfg.Stats.Enabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.Stats.Redis = RedisConfig{
		Addr:     getenvDefault("RATE_STATS_REDIS_ADDR", cfg.Store.Redis.Addr),
		Password: getenvDefault("RATE_STATS_REDIS_PASSWORD", cfg.Store.Redis.Password),
		DB:       getenvIntDefault("RATE_STATS_REDIS_DB", cfg.Store.Redis.DB),
	}
	cfg.Stats.Prefix = getenvDefault("RATE_STATS_PREFIX", "quota:stats")
	cfg.Stats.TTL = getenvDurationDefault("RATE_STATS_TTL", 7*24*time.Hour)
	cfg.Stats.Bucket = getenvDefault("RATE_STATS_BUCKET", "hour")
	cfg.Stats.TrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.TrustedHeader = getenvDefault("TRUSTED_PROXY_HEADER", ratelimit.DefaultTrustedHeader)

	tz := getenvDefault("DISPLAY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.Provider = ProviderConfig{
		APIKey:             os.Getenv("OPENAI_API_KEY"),
		BaseURL:            getenvDefault("OPENAI_BASE_URL", recipe.DefaultBaseURL),
		Model:              getenvDefault("OPENAI_MODEL", recipe.DefaultModel),
		Temperature:        getenvFloatDefault("OPENAI_TEMPERATURE", recipe.DefaultTemperature),
		MaxTokens:          getenvIntDefault("OPENAI_MAX_TOKENS", recipe.DefaultMaxTokens),
		RPS:                getenvFloatDefault("PROVIDER_RPS", 0),
		Burst:              getenvIntDefault("PROVIDER_BURST", 1),
		ConcurrencyMax:     getenvIntDefault("PROVIDER_CONCURRENCY_MAX", 0),
		ConcurrencyTimeout: getenvDurationDefault("PROVIDER_CONCURRENCY_TIMEOUT", 0),
		PromptFile:         os.Getenv("PROMPT_FILE"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			return errors.New("REDIS_ADDR is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want memory, redis or sqlite)", c.Store.Backend)
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.Redis.Addr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR (or REDIS_ADDR) is required when RATE_STATS_ENABLED=true")
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.Provider.MaxTokens <= 0 {
		return errors.New("OPENAI_MAX_TOKENS must be > 0")
	}
	if c.Provider.RPS < 0 {
		return errors.New("PROVIDER_RPS must be >= 0")
	}
	if c.Provider.RPS > 0 && c.Provider.Burst <= 0 {
		return errors.New("PROVIDER_BURST must be > 0")
	}
	if c.Provider.ConcurrencyMax < 0 {
		return errors.New("PROVIDER_CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
