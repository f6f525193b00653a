package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns def when key is unset or does not parse, so a typo in one
// ordering knob never stops the service from booting.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
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

func getEnvAsInt(key string, def int) int {
	return lookup(key, def, strconv.Atoi)
}

func getEnvAsBool(key string, def bool) bool {
	return lookup(key, def, strconv.ParseBool)
}

// getEnvAsDuration covers timeouts, retry spacing and session TTLs.
func getEnvAsDuration(key string, def time.Duration) time.Duration {
	return lookup(key, def, time.ParseDuration)
}

func getEnvAsFloat(key string, def float64) float64 {
	return lookup(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// getEnvAsStringSlice splits a comma list such as broker addresses. A list
// with only blanks falls back to def.
func getEnvAsStringSlice(key string, def []string) []string {
	return lookup(key, def, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, strconv.ErrSyntax
		}
		return out, nil
	})
}
