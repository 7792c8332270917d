package subscriptions

import (
	"testing"
	"time"
)

func TestNextBillingDate(t *testing.T) {
	cases := []struct {
		name string
		from string
		want string
	}{
		{"mid month", "2025-03-15T10:00:00Z", "2025-04-15T10:00:00Z"},
		{"jan 31 clamps to feb 28", "2025-01-31T00:00:00Z", "2025-02-28T00:00:00Z"},
		{"jan 31 leap year clamps to feb 29", "2024-01-31T00:00:00Z", "2024-02-29T00:00:00Z"},
		{"mar 31 clamps to apr 30", "2025-03-31T12:30:00Z", "2025-04-30T12:30:00Z"},
		{"dec rolls into january", "2025-12-10T08:00:00Z", "2026-01-10T08:00:00Z"},
		{"oct 31 clamps to nov 30", "2025-10-31T23:59:59Z", "2025-11-30T23:59:59Z"},
		{"feb 28 keeps day in march", "2025-02-28T06:00:00Z", "2025-03-28T06:00:00Z"},
		{"first of month", "2025-06-01T00:00:00Z", "2025-07-01T00:00:00Z"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, err := time.Parse(time.RFC3339, tc.from)
			if err != nil {
				t.Fatalf("parse from: %v", err)
			}
			want, err := time.Parse(time.RFC3339, tc.want)
			if err != nil {
				t.Fatalf("parse want: %v", err)
			}
			if got := NextBillingDate(from); !got.Equal(want) {
				t.Fatalf("NextBillingDate(%s) = %s, want %s", tc.from, got.Format(time.RFC3339), tc.want)
			}
		})
	}
}

func TestNextBillingDatePreservesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	from := time.Date(2025, 5, 31, 9, 0, 0, 0, loc)
	got := NextBillingDate(from)
	if got.Location() != loc {
		t.Fatalf("location not preserved: %v", got.Location())
	}
	if got.Day() != 30 || got.Month() != time.June {
		t.Fatalf("expected Jun 30, got %s", got.Format(time.RFC3339))
	}
}
