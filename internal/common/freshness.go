package common

import "time"

// Freshness TTLs for stored market data
const (
	FreshnessPriceSeries = 12 * time.Hour
	FreshnessFXSeries    = 12 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
