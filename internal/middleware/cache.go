package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/gymdesk/internal/config"
)

// cachedResponse is what a cache entry holds.  Body is base64 in JSON.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    var r cachedResponse
    if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
        return 0, nil, nil, false
    }
    if r.Header == nil {
        r.Header = http.Header{}
    }
    return r.Status, r.Header, r.Body, true
}

// recorder tees the response into buf until limit bytes; past that the
// response is still written but no longer cacheable.
type recorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *recorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheScope is the first path segment after the API version, the unit
// a write can flush on its own.
func cacheScope(path string) string {
    p := strings.TrimPrefix(strings.TrimPrefix(path, "/"), "v1/")
    if i := strings.IndexByte(p, '/'); i >= 0 {
        p = p[:i]
    }
    if p == "" || p == "v1" {
        return "root"
    }
    return p
}

// cacheKeyFrom hashes the concrete path (not the route pattern) so
// /v1/users/1 and /v1/users/2 get separate entries.  The role is part of
// the key because coaches and admins can see different views.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", r.URL.Path}
    case "method_route":
        parts = []string{"method", r.Method, "route", r.URL.Path}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", r.URL.Path, "q", r.URL.RawQuery}
    default:
        parts = []string{"route", r.URL.Path, "q", r.URL.RawQuery}
    }
    parts = append(parts, "role", Role(c))
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%s:%x", cfg.Prefix, cacheScope(r.URL.Path), sum)
}

// replay writes a cached response.  Content-Length is left to echo.
func replay(c echo.Context, status int, hdr http.Header, body []byte) error {
    out := c.Response().Header()
    for k, vs := range hdr {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        out[k] = append([]string(nil), vs...)
    }
    out.Set("X-Cache", "HIT")
    c.Response().WriteHeader(status)
    _, err := c.Response().Write(body)
    return err
}

// NewRedisCache serves repeated reads (cfg.Methods, normally GET) from
// Redis.  Only 200 responses are stored.  Entries expire after cfg.TTL and
// are dropped earlier by InvalidateOnWrite.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    return replay(c, status, hdr, body)
                }
            } else if err != redis.Nil {
                c.Logger().Warnf("[cache] get %s: %v", key, err)
            }

            rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            payload, err := encodePayload(rec.status, c.Response().Header().Clone(), rec.buf.Bytes())
            if err != nil {
                return nil
            }
            // the request context may already be done once the body is sent
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                c.Logger().Warnf("[cache] set %s: %v", key, err)
            }
            return nil
        }
    }
}

// flushPatterns lists the SCAN patterns for scopes; none means the whole
// namespace.
func flushPatterns(cfg config.CacheConfig, scopes []string) []string {
    if len(scopes) == 0 {
        return []string{cfg.Pattern()}
    }
    out := make([]string, len(scopes))
    for i, s := range scopes {
        out[i] = cfg.ScopePattern(s)
    }
    return out
}

// FlushCache deletes the keys of scopes (all of them when none is given)
// with SCAN + DEL and returns how many keys went.
func FlushCache(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig, scopes ...string) (int, error) {
    if rdb == nil {
        return 0, nil
    }
    deleted := 0
    batch := make([]string, 0, 200)
    flush := func() error {
        if len(batch) == 0 {
            return nil
        }
        n, err := rdb.Del(ctx, batch...).Result()
        deleted += int(n)
        batch = batch[:0]
        return err
    }
    for _, pattern := range flushPatterns(cfg, scopes) {
        iter := rdb.Scan(ctx, 0, pattern, 200).Iterator()
        for iter.Next(ctx) {
            batch = append(batch, iter.Val())
            if len(batch) == cap(batch) {
                if err := flush(); err != nil {
                    return deleted, err
                }
            }
        }
        if err := iter.Err(); err != nil {
            return deleted, err
        }
    }
    return deleted, flush()
}

// InvalidateOnWrite flushes the response cache after every successful
// request whose method is not cached.  Without scopes the whole namespace
// goes, since a single staff write can change the dashboard, the plan
// list and any member view.
func InvalidateOnWrite(cfg config.CacheConfig, rdb *redis.Client, scopes ...string) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)
            if err != nil || cfg.Methods[c.Request().Method] || c.Response().Status >= http.StatusBadRequest {
                return err
            }
            ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
            defer cancel()
            if n, ferr := FlushCache(ctx, rdb, cfg, scopes...); ferr != nil {
                c.Logger().Warnf("[cache] flush failed: %v", ferr)
            } else if n > 0 {
                c.Logger().Debugf("[cache] flushed %d entries after %s %s", n, c.Request().Method, c.Path())
            }
            return nil
        }
    }
}
