package config

import "time"

// RateLimitConfig drives the Redis token bucket.  Staff routes share one
// budget per user and route; the anonymous routes (prospect capture and
// login) get a smaller per-IP bucket through Public.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    PublicCapacity int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string        // underscore separated: ip, user, route
    Prefix         string
    Debug          bool // exposes the bucket key in X-RateLimit-Key
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps the result to usable
// values.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        PublicCapacity: envInt("RATE_LIMIT_PUBLIC_CAPACITY", 5),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "gymdesk:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    c.Capacity = max(c.Capacity, 1)
    c.PublicCapacity = max(c.PublicCapacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    // a bucket must outlive a few refills or it would reset to full
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
}

// Public returns the per-IP variant for anonymous routes.  Its keys live
// under their own prefix.
func (c RateLimitConfig) Public() RateLimitConfig {
    p := c
    p.Capacity = c.PublicCapacity
    p.KeyStrategy = "ip_route"
    p.Prefix = c.Prefix + ":public"
    return p
}
