package session

import (
	"net"
	"strconv"

	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
)

// Redis logical databases; the cache itself uses 0.
const (
	OAuthStateDB = 2
	LimiterDB    = 3
)

// RedisStorage returns fiber storage on the cache server, in its own database.
func RedisStorage(database int) *redis.Storage {
	host, port := redisAddr()
	password := env.GetEnv("CACHE_PASSWORD", "")
	if c := cache.GetClient(); c != nil {
		// Prefer password from the underlying client if present
		if p := c.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
		Reset:    false,
	})
}

func redisAddr() (string, int) {
	host, port := "localhost", 6379
	c := cache.GetClient()
	if c == nil {
		return host, port
	}
	addr := c.Options().Addr
	if h, p, err := net.SplitHostPort(addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	} else if addr != "" {
		host = addr
	}
	return host, port
}
