package config

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance backing the auth rate
// limiter. The address is taken from REDIS_ADDR, or assembled from
// REDIS_HOST/REDIS_PORT; REDIS_PASSWORD, REDIS_DB and REDIS_TLS are
// optional. Redis is an availability optimization here, not a dependency:
// when the ping fails the function returns nil and the limiter middleware
// turns itself off rather than blocking logins.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if host := os.Getenv("REDIS_HOST"); addr == "" && host != "" {
		addr = host + ":" + getenv("REDIS_PORT", "6379")
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intDefault("REDIS_DB", 0),
	}
	if boolDefault("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
