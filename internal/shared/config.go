package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	BaseURL     string
	HTTPAddr    string // dev stub listen address
	MetricsAddr string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	APIRPS      int
	Debounce    time.Duration
	LogFile     string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		BaseURL:     env("THENA_BASE_URL", "http://localhost:8080"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		APIRPS:      atoi("API_RPS", 5),
		Debounce:    time.Duration(atoi("SEARCH_DEBOUNCE_MS", 250)) * time.Millisecond,
		LogFile:     env("LOG_FILE", ""),
	}
	if c.BaseURL == "" {
		log.Warn().Msg("THENA_BASE_URL is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
