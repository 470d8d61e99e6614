package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the parsed value of key, or def when the variable is
// unset, blank or does not parse.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, def string) string {
	return lookup(key, def, func(s string) (string, error) { return s, nil })
}

func getInt(key string, def int) int {
	return lookup(key, def, strconv.Atoi)
}

func getBool(key string, def bool) bool {
	return lookup(key, def, strconv.ParseBool)
}

func getFloat64(key string, def float64) float64 {
	return lookup(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// getDuration accepts Go durations ("1m30s") and bare integers, read as
// seconds, which is how the settings endpoint reports timeouts.
func getDuration(key string, def time.Duration) time.Duration {
	return lookup(key, def, func(s string) (time.Duration, error) {
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return time.ParseDuration(s)
	})
}
