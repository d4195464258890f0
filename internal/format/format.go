// Package format renders HOA values for display.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const notAvailable = "N/A"

// Currency formats a dollar amount, showing cents only when present.
func Currency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	printer := message.NewPrinter(language.AmericanEnglish)
	if math.Abs(v-math.Round(v)) < 0.005 {
		return sign + printer.Sprintf("$%d", int64(math.Round(v)))
	}
	return sign + printer.Sprintf("$%.2f", v)
}

// MonthlyFee formats a nullable monthly fee as "$150/mo".
func MonthlyFee(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return Currency(*v) + "/mo"
}

// Date formats t as "January 2, 2006".
func Date(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Format("January 2, 2006")
}

// DateShort formats t as "Jan 2, 2006".
func DateShort(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Format("Jan 2, 2006")
}

// Since describes how long ago t was relative to now.
func Since(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return Plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return Plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return Plural(int(d/(24*time.Hour)), "day") + " ago"
	case d < 365*24*time.Hour:
		return Plural(int(d/(30*24*time.Hour)), "month") + " ago"
	default:
		return Plural(int(d/(365*24*time.Hour)), "year") + " ago"
	}
}

// Score renders a nullable 0-100 score; a nil score means analysis is pending.
func Score(v *float64) string {
	if v == nil {
		return "Pending"
	}
	return fmt.Sprintf("%d", int(math.Round(*v)))
}

func ScoreLabel(v float64) string {
	switch {
	case v >= 80:
		return "Excellent"
	case v >= 60:
		return "Good"
	case v >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

// ScoreTone maps a score to the color family used by the report badge.
func ScoreTone(v float64) string {
	switch {
	case v >= 80:
		return "green"
	case v >= 60:
		return "yellow"
	case v >= 40:
		return "orange"
	default:
		return "red"
	}
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimRightFunc(string(r[:n-1]), unicode.IsSpace) + "…"
}

// TitleCase normalizes names like "OAK RIDGE HOA" to "Oak Ridge Hoa".
func TitleCase(s string) string {
	return cases.Title(language.AmericanEnglish).String(strings.Join(strings.Fields(s), " "))
}

// Phone formats 10 or 11 digit US numbers as "(555) 123-4567" and returns
// anything else trimmed but unchanged.
func Phone(s string) string {
	var digits []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return strings.TrimSpace(s)
	}
	d := string(digits)
	return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
}

func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
