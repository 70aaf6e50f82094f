package utils

import "time"

// NowRFC3339 returns the current time in UTC RFC3339 format, the timestamp
// format used across all persisted metadata documents
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
