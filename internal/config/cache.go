package config

import "time"

// CacheConfig drives the Redis response cache.  Every key lives under
// Prefix:<scope>, scope being the first path segment after /v1, so a
// write flushes either the whole namespace (Pattern) or a few scopes
// (ScopePattern).
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // cached request methods, upper-case
    TTL          time.Duration   // upper bound on staleness; writes flush earlier
    KeyStrategy  string          // route | method_route | method_route_query | route_query
    Prefix       string
    MaxBodyBytes int // larger responses are not stored
}

// LoadCacheConfig reads CACHE_*.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "gymdesk:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    return cfg
}

// Pattern matches every key of the cache namespace.
func (c CacheConfig) Pattern() string { return c.Prefix + ":*" }

// ScopePattern matches the keys of one scope, e.g. "dashboard".
func (c CacheConfig) ScopePattern(scope string) string { return c.Prefix + ":" + scope + ":*" }
