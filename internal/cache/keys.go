package cache

import (
	"strings"
	"time"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "coinsnap"

// DefaultLatestTTL applies when the mirror is enabled without a TTL.
const DefaultLatestTTL = 15 * time.Minute

// TTL converts a TTL in seconds from config. Zero selects fallback, negative
// disables expiry handling and yields zero.
func TTL(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// LatestRowKey addresses the most recent snapshot row of one entity, e.g.
// coinsnap:latest:contract.token_info:ethereum:0xa0b8.
func LatestRowKey(relation string, key ...string) string {
	return formatKey(append([]string{"latest", relation}, key...)...)
}

// RunLockKey names the guard of a source run.
func RunLockKey(source string) string {
	return formatKey("lock", "run", source)
}
