package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/gymdesk/internal/config"
)

// tokenBucket refills whole intervals since the last refill, takes one
// token if there is one and returns {allowed, remaining, retry_ms}.  The
// bucket is a hash so every API instance shares it.
var tokenBucket = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local cap      = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local every    = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local h = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(h[1]) or cap
local ts     = tonumber(h[2]) or now

local steps = math.floor(math.max(0, now - ts) / every)
if steps > 0 then
  tokens = math.min(cap, tokens + steps * refill)
  ts = ts + steps * every
end

local ok, retry = 0, 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
else
  retry = math.max(0, every - (now - ts))
end

redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', key, ttl)
return {ok, tokens, retry}
`)

// bucketResult is the decoded reply of tokenBucket.
type bucketResult struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (bucketResult, error) {
    vals, err := tokenBucket.Run(ctx, rdb, []string{key},
        now.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second)).Int64Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(vals) != 3 {
        return bucketResult{}, fmt.Errorf("unexpected reply %v", vals)
    }
    return bucketResult{
        Allowed:    vals[0] == 1,
        Remaining:  vals[1],
        RetryAfter: time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits requests per key (see buildRateKey).  Without
// Redis, or when disabled, it is a pass-through; a Redis error lets the
// request through and is logged.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := take(c.Request().Context(), rdb, cfg, key, time.Now())
            if err != nil {
                c.Logger().Warnf("[ratelimit] %s: %v", key, err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if res.Allowed {
                return next(c)
            }

            secs := int((res.RetryAfter + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":      "rate limit exceeded",
                "retryAfter": secs,
            })
        }
    }
}

// buildRateKey joins the parts named by cfg.KeyStrategy, an underscore
// separated list of ip, user and route.  Unknown strategies fall back to
// all three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    values := map[string]string{
        "ip":    ip,
        "user":  userKey(c),
        "route": c.Request().Method + " " + c.Path(),
    }

    parts := []string{cfg.Prefix}
    for _, name := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
        if v, ok := values[name]; ok {
            parts = append(parts, name, v)
        }
    }
    if len(parts) == 1 {
        parts = append(parts, "ip", values["ip"], "user", values["user"], "route", values["route"])
    }
    return strings.Join(parts, ":")
}
