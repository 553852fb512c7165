// Package period derives billing-period keys. A period is one calendar month,
// identified by a "YYYY-MM" key. All derivation uses UTC so that period
// boundaries are identical across environments regardless of server timezone.
package period

import (
	"fmt"
	"time"
)

const layout = "2006-01"

// Key returns the period key for the calendar month containing t, in UTC
func Key(t time.Time) string {
	return t.UTC().Format(layout)
}

// Current returns the period key for the current month
func Current() string {
	return Key(time.Now())
}

// Parse returns the first instant (UTC) of the month identified by key
func Parse(key string) (time.Time, error) {
	t, err := time.Parse(layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period key %q: %w", key, err)
	}
	return t, nil
}

// Trailing returns the n period keys ending at the month containing from,
// oldest first. n <= 0 returns an empty slice.
func Trailing(from time.Time, n int) []string {
	if n <= 0 {
		return []string{}
	}

	from = from.UTC()
	keys := make([]string, 0, n)
	// Anchor on the first of the month so AddDate never skips short months
	month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, month.AddDate(0, -i, 0).Format(layout))
	}
	return keys
}
