package config

// This file defines the Redis client constructor.  Redis backs the hold and
// checkout rate limiters and the screen layout response cache.  When the
// server cannot be reached at startup the constructor returns nil and the
// middleware degrades to pass-through.

import (
    "context"
    "crypto/tls"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// RedisConfig holds connection settings read from REDIS_* variables.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT or REDIS_ADDR (host:port
// pair wins when both are set), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    tlsEnv := envStr("REDIS_TLS", "")
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// NewRedisClient connects with cfg and pings the server.  The returned
// client is nil if a connection cannot be established.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    // Ping the server with a short timeout.  Return nil on failure.
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        logrus.WithError(err).WithField("addr", cfg.Addr).Warn("redis: unavailable, rate limiting and caching disabled")
        _ = client.Close()
        return nil
    }
    return client
}
