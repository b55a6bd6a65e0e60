package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	ruDateRe  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	junkRe    = regexp.MustCompile(`[^\d.]`)
)

// ParseNumber normalizes free-form numeric input: decimal comma becomes a
// dot, everything that is not a digit or dot is stripped, and anything that
// still fails to parse is 0.
func ParseNumber(v string) float64 {
	v = strings.ReplaceAll(v, ",", ".")
	v = junkRe.ReplaceAllString(v, "")
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	return n
}

// ParseQty coerces quantity input to an integer of at least 1.
func ParseQty(v string) int {
	n := int(math.Trunc(ParseNumber(v)))
	if n < 1 {
		return 1
	}
	return n
}

// ParsePrice coerces price input to a non-negative whole amount of currency
// units. Fractional input truncates toward zero.
func ParsePrice(v string) float64 {
	n := math.Trunc(ParseNumber(v))
	if n < 0 {
		return 0
	}
	return n
}

// ClampDateISO accepts "YYYY-MM-DD" or "DD.MM.YYYY" and returns ISO form.
// Anything else is kept as entered.
func ClampDateISO(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := ruDateRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
	}
	return s
}

func todayISO(now time.Time) string {
	return now.Format("2006-01-02")
}

// newID builds a collision-resistant id whose fixed-width hex timestamp
// prefix makes ids sort roughly chronologically.
func newID(now time.Time) string {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// nanosecond clock rather than panicking.
		return fmt.Sprintf("%012x%012x", now.UnixMilli(), now.UnixNano()%0xffffffffffff)
	}
	return fmt.Sprintf("%012x%s", now.UnixMilli(), hex.EncodeToString(suffix))
}
