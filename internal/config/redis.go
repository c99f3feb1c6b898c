package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by the rate limiter and the
// response cache.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads REDIS_*.  REDIS_HOST and REDIS_PORT together take
// precedence over REDIS_ADDR.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// Options converts c into client options.
func (c RedisConfig) Options() *redis.Options {
    o := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return o
}

// NewRedisClient connects and pings.  When the server is unreachable it
// logs why and returns nil; the API then runs without rate limiting and
// response caching.
func NewRedisClient(ctx context.Context, c RedisConfig, lg *log.Logger) *redis.Client {
    client := redis.NewClient(c.Options())
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        lg.Warnf("redis %s: %v", c.Addr, err)
        _ = client.Close()
        return nil
    }
    return client
}
