// Package common provides shared utilities for vin-stock-ai
package common

import "time"

// Freshness windows for cached data
const (
	FreshnessDashboard = 10 * time.Second
	FreshnessNews      = 7 * 24 * time.Hour // news lookback for feeds and sector pulse
	FreshnessQuotes    = 15 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, time.Now(), ttl)
}

// IsFreshAt is IsFresh against an explicit clock reading.
func IsFreshAt(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
