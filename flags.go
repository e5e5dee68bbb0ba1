package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pthm-cable/haze/airquality"
)

// readingFlags collects repeated -reading key=value flags.
type readingFlags map[string]float64

func (f readingFlags) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(f[k], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (f readingFlags) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	if !ok || key == "" {
		return fmt.Errorf("reading %q must be key=value", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("reading %q: %w", s, err)
	}
	f[key] = v
	return nil
}

// readings returns the collected values, or nil when none were given.
func (f readingFlags) readings() airquality.Readings {
	if len(f) == 0 {
		return nil
	}
	out := make(airquality.Readings, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// enableFlags collects repeated -enable key flags.
type enableFlags []string

func (f *enableFlags) String() string { return strings.Join(*f, ",") }

func (f *enableFlags) Set(s string) error {
	for _, key := range strings.Split(s, ",") {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return fmt.Errorf("empty pollutant key in %q", s)
		}
		*f = append(*f, key)
	}
	return nil
}

// buildEnabled merges the configured enabled set with -enable keys.
func buildEnabled(base map[string]bool, extra []string) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for _, k := range extra {
		out[k] = true
	}
	return out
}
