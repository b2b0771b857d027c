// Package cache memoizes statistics reports. Entries are keyed by the owning user's records
// version, which every write bumps, so invalidation never has to enumerate keys.
package cache

import (
	"fmt"
	"time"
)

// Backend names accepted by configuration.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// DefaultTTL bounds how long an unreachable entry lingers.
const DefaultTTL = 10 * time.Minute

// WindowGranularity is how coarsely a report window start is keyed. A memoized report may still
// count records that left its window less than this long ago.
const WindowGranularity = time.Minute

// StatisticsKey is the memo key of a period report for one records version, calendar day and
// window start.
func StatisticsKey(userID, period string, version int64, day string, windowStart time.Time) string {
	return fmt.Sprintf("stats:%s:%s:%d:%s:%d", userID, period, version, day, windowStart.Truncate(WindowGranularity).Unix())
}

func versionKey(userID string) string {
	return "records-version:" + userID
}
