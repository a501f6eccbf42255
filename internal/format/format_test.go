package format

import (
	"testing"
	"time"
)

func TestCurrencyGroupsThousands(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{0, "UZS", "0.00 UZS"},
		{150, "UZS", "1.50 UZS"},
		{123456789, "so'm", "1 234 567.89 so'm"},
		{-5000, "UZS", "-50.00 UZS"},
		{100000000000, "UZS", "1 000 000 000.00 UZS"},
	}

	for _, tc := range cases {
		if got := Currency(tc.cents, tc.currency); got != tc.want {
			t.Fatalf("Currency(%d, %q) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}

func TestDateUsesDayFirstOrder(t *testing.T) {
	ts := time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

	if got := Date(ts); got != "05.03.2026" {
		t.Fatalf("Date = %q, want 05.03.2026", got)
	}
	if got := DateTime(ts); got != "05.03.2026 14:30" {
		t.Fatalf("DateTime = %q, want 05.03.2026 14:30", got)
	}
}
