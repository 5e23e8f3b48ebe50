package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	DatabaseURL     string
	RedisAddr       string
	FFprobePath     string
	DebounceWindow  time.Duration
	ProbeTimeout    time.Duration
	MaxIngestJobs   int
	ProbesPerSecond float64
	SyncInterval    string // cron spec for periodic library reconciliation
}

func Load() *Config {
	return &Config{
		DatabaseURL:     env("DATABASE_URL", "postgres://shelfd:shelfd@db:5432/shelfd?sslmode=disable"),
		RedisAddr:       env("REDIS_ADDR", "redis:6379"),
		FFprobePath:     env("FFPROBE_PATH", "ffprobe"),
		DebounceWindow:  envDuration("SHELFD_DEBOUNCE", 2*time.Second),
		ProbeTimeout:    envDuration("SHELFD_PROBE_TIMEOUT", 30*time.Second),
		MaxIngestJobs:   envInt("SHELFD_MAX_INGEST_JOBS", 4),
		ProbesPerSecond: envFloat("SHELFD_PROBES_PER_SECOND", 2),
		SyncInterval:    env("SHELFD_SYNC_INTERVAL", "@every 1m"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
	}
	return fallback
}
