package domain

import "strings"

// Platform identifies the booking source a channel carries notifications for.
type Platform string

const (
	PlatformYanolja Platform = "yanolja"
	PlatformNaver   Platform = "naver"
	PlatformAirbnb  Platform = "airbnb"
	PlatformYeogi   Platform = "yeogi"
)

// Platforms lists every supported source in polling order.
var Platforms = []Platform{PlatformYanolja, PlatformNaver, PlatformAirbnb, PlatformYeogi}

var platformLabels = map[Platform]string{
	PlatformYanolja: "야놀자",
	PlatformNaver:   "네이버",
	PlatformAirbnb:  "에어비앤비",
	PlatformYeogi:   "여기어때",
}

// Label is the display name operators use for the channel.
func (p Platform) Label() string {
	if l, ok := platformLabels[p]; ok {
		return l
	}
	return string(p)
}

func (p Platform) Valid() bool {
	_, ok := platformLabels[p]
	return ok
}

// ParsePlatform accepts either the code ("airbnb") or the display label ("에어비앤비").
func ParsePlatform(s string) (Platform, bool) {
	s = strings.TrimSpace(s)
	if p := Platform(strings.ToLower(s)); p.Valid() {
		return p, true
	}
	for p, l := range platformLabels {
		if l == s {
			return p, true
		}
	}
	return "", false
}

// Status is the canonical reservation state.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusConfirmed, StatusPending, StatusCancelled, StatusUnknown:
		return st, true
	}
	return "", false
}
