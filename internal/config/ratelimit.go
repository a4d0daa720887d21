package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig describes a fixed-window request budget for one route
// group.  Requests beyond Limit within Window are rejected with 429 until
// the window rolls over.  KeyStrategy decides what identifies a caller.
type RateLimitConfig struct {
	Enabled     bool
	Limit       int
	Window      time.Duration
	KeyStrategy string
	Prefix      string
	Debug       bool
}

// LoadLoginRateLimit returns the budget applied to the login endpoint.
// Defaults to 10 requests per 60 seconds per client IP.
func LoadLoginRateLimit() RateLimitConfig {
	return loadRateLimit("LOGIN", RateLimitConfig{
		Enabled:     true,
		Limit:       10,
		Window:      60 * time.Second,
		KeyStrategy: "ip",
		Prefix:      "rl:login",
	})
}

// LoadSubmitRateLimit returns the budget applied to public registration
// submission endpoints.  Defaults to 20 requests per 60 seconds per IP.
func LoadSubmitRateLimit() RateLimitConfig {
	return loadRateLimit("SUBMIT", RateLimitConfig{
		Enabled:     true,
		Limit:       20,
		Window:      60 * time.Second,
		KeyStrategy: "ip",
		Prefix:      "rl:submit",
	})
}

func loadRateLimit(scope string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	cfg.Enabled = envBool("RATE_LIMIT_"+scope+"_ENABLED", def.Enabled)
	cfg.Limit = envInt("RATE_LIMIT_"+scope+"_LIMIT", def.Limit)
	cfg.Window = envDur("RATE_LIMIT_"+scope+"_WINDOW", def.Window)
	cfg.KeyStrategy = getenv("RATE_LIMIT_"+scope+"_KEY_STRATEGY", def.KeyStrategy)
	cfg.Debug = envBool("RATE_LIMIT_DEBUG", false)
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
