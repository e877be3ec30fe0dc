package config

import (
	"os"
	"time"
)

// RateLimitConfig tunes the Redis token bucket in front of the credential
// endpoints. The defaults are sized for brute-force protection on login and
// OTP submission: a small burst, then roughly one attempt every few seconds
// per client/route pair.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // how often tokens are added
	TTL            time.Duration // idle bucket expiry in Redis
	KeyStrategy    string        // ip, ip_route, ip_user, ...
	Prefix         string        // Redis key prefix
	Debug          bool
}

// LoadAuthRateLimit reads the limiter tuning from the environment. The TTL
// is clamped to several refill intervals so a bucket cannot expire while a
// blocked client is still inside its backoff window.
func LoadAuthRateLimit() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        boolDefault("AUTH_RATE_LIMIT_ENABLED", true),
		Capacity:       intDefault("AUTH_RATE_LIMIT_BURST", 10),
		RefillTokens:   intDefault("AUTH_RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: durDefault("AUTH_RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            durDefault("AUTH_RATE_LIMIT_TTL", 15*time.Minute),
		KeyStrategy:    getenv("AUTH_RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         getenv("AUTH_RATE_LIMIT_PREFIX", "authrl"),
		Debug:          boolDefault("AUTH_RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func boolDefault(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}
