package parser

import (
	"regexp"
	"strings"

	"reservation_ingest/internal/domain"
)

// Match tries one extraction pattern and returns the captured values.
type Match func(text string) ([]string, bool)

// Chain is an ordered fallback list; the first pattern that matches wins,
// so newer formats are registered ahead of the older ones they replace.
type Chain []Match

func (c Chain) First(text string) ([]string, bool) {
	for _, m := range c {
		if v, ok := m(text); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the first value of the first matching pattern, or "".
func (c Chain) String(text string) string {
	if v, ok := c.First(text); ok && len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// Capture matches expr and returns the listed groups (group 0 when none are given).
func Capture(expr string, groups ...int) Match {
	re := regexp.MustCompile(expr)
	if len(groups) == 0 {
		groups = []int{0}
	}
	return func(text string) ([]string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		out := make([]string, len(groups))
		for i, g := range groups {
			if g < len(m) {
				out[i] = m[g]
			}
		}
		return out, true
	}
}

// CaptureN requires at least n non-overlapping matches of expr and returns the first n.
func CaptureN(expr string, n int) Match {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		all := re.FindAllString(text, n)
		if len(all) < n {
			return nil, false
		}
		return all, true
	}
}

// Build matches expr and hands the submatches to fn.
func Build(expr string, fn func(m []string) []string) Match {
	re := regexp.MustCompile(expr)
	return func(text string) ([]string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		v := fn(m)
		return v, v != nil
	}
}

// statusRule maps marker substrings to a status; rules are checked in order.
type statusRule struct {
	markers []string
	status  domain.Status
}

func statusFrom(rules []statusRule, s string) domain.Status {
	for _, r := range rules {
		if containsAny(s, r.markers...) {
			return r.status
		}
	}
	return domain.StatusUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
