// Package format renders currency and dates the way the shop displays them:
// amounts with exactly two decimals and a space thousands separator followed
// by the currency name, dates as DD.MM.YYYY.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Currency renders an int64 cents amount, e.g. Currency(123456789, "so'm")
// => "1 234 567.89 so'm".
func Currency(cents int64, currency string) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	major := cents / 100
	minor := cents % 100

	grouped := groupThousands(major)
	out := fmt.Sprintf("%s.%02d", grouped, minor)
	if negative {
		out = "-" + out
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}

func groupThousands(n int64) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func Date(t time.Time) string {
	return t.Format("02.01.2006")
}

func DateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}
