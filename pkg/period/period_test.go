package period

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{"mid month", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), "2025-06"},
		{"zero padded month", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025-01"},
		{"last instant of month", time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC), "2025-03"},
		{"december", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), "2024-12"},
	}

	for _, test := range tests {
		if got := Key(test.input); got != test.expected {
			t.Errorf("%s: Key(%v) = %q, expected %q", test.name, test.input, got, test.expected)
		}
	}
}

func TestKeyUsesUTC(t *testing.T) {
	// 2025-07-01 01:00 in UTC+2 is still 2025-06 in UTC
	east := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2025, 7, 1, 1, 0, 0, 0, east)

	if got := Key(local); got != "2025-06" {
		t.Errorf("Key(%v) = %q, expected %q (UTC boundary)", local, got, "2025-06")
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := time.Date(2025, 8, 29, 18, 30, 0, 0, time.UTC)
	key := Key(original)

	parsed, err := Parse(key)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", key, err)
	}

	if parsed.Year() != original.Year() || parsed.Month() != original.Month() {
		t.Errorf("round trip: got %d-%02d, expected %d-%02d",
			parsed.Year(), parsed.Month(), original.Year(), original.Month())
	}
}

func TestParseInvalid(t *testing.T) {
	for _, key := range []string{"", "2025", "2025-13", "garbage", "2025/06"} {
		if _, err := Parse(key); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", key)
		}
	}
}

func TestTrailing(t *testing.T) {
	from := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	got := Trailing(from, 4)
	expected := []string{"2024-11", "2024-12", "2025-01", "2025-02"}

	if len(got) != len(expected) {
		t.Fatalf("Trailing returned %d keys, expected %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Trailing[%d] = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestTrailingFromEndOfLongMonth(t *testing.T) {
	// Jan 31 minus one month must land in December, not skip it
	from := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	got := Trailing(from, 2)
	expected := []string{"2024-12", "2025-01"}

	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Trailing[%d] = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestTrailingZero(t *testing.T) {
	if got := Trailing(time.Now(), 0); len(got) != 0 {
		t.Errorf("Trailing(now, 0) returned %d keys, expected 0", len(got))
	}
}
