package domain

import (
	"strconv"
	"strings"
	"time"
)

// CompareTS orders chat timestamps ("1700000000.000200").
// Empty sorts before everything else.
func CompareTS(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	as, af := splitTS(a)
	bs, bf := splitTS(b)
	if as != bs {
		if as < bs {
			return -1
		}
		return 1
	}
	// fractions compare lexically once right-padded to the same width
	for len(af) < len(bf) {
		af += "0"
	}
	for len(bf) < len(af) {
		bf += "0"
	}
	return strings.Compare(af, bf)
}

func splitTS(ts string) (int64, string) {
	sec, frac, _ := strings.Cut(strings.TrimSpace(ts), ".")
	n, _ := strconv.ParseInt(sec, 10, 64)
	return n, frac
}

// TSFloat converts a chat timestamp to seconds since the epoch.
func TSFloat(ts string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// TSTime converts a chat timestamp to a time.Time (microsecond precision).
func TSTime(ts string) (time.Time, bool) {
	f, ok := TSFloat(ts)
	if !ok {
		return time.Time{}, false
	}
	sec := int64(f)
	usec := int64((f - float64(sec)) * 1e6)
	return time.Unix(sec, usec*int64(time.Microsecond)), true
}
