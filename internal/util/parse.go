package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseBool accepts the usual query spellings ("1", "true", "yes")
func ParseBool(s string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ParseSince parses a lookback window such as "24h" or "7d" into the start time
func ParseSince(s string, now time.Time, defaultWindow time.Duration) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Add(-defaultWindow)
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil && days > 0 {
			return now.AddDate(0, 0, -days)
		}
		return now.Add(-defaultWindow)
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d)
	}
	return now.Add(-defaultWindow)
}
