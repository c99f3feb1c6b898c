package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Optional variables: unset, empty or unparsable values yield the default.

func envStr(k, def string) string {
    if v := strings.TrimSpace(os.Getenv(k)); v != "" {
        return v
    }
    return def
}

func envInt(k string, def int) int {
    if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
        return n
    }
    return def
}

func envBool(k string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envDur(k string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
        return d
    }
    return def
}

// envSet reads a comma separated list into an upper-cased set.
func envSet(k, def string) map[string]bool {
    set := map[string]bool{}
    for _, p := range strings.Split(envStr(k, def), ",") {
        if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
            set[p] = true
        }
    }
    return set
}
