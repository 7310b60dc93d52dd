package reservation

import (
	"fmt"
	"time"
)

// Period is the duration class of a reservation. It fixes both the initial
// span and the increment applied by every extension.
type Period int

const (
	OneHour Period = iota + 1
	EightHours
	OneDay
)

var periodNames = map[Period]string{
	OneHour:    "OneHour",
	EightHours: "EightHours",
	OneDay:     "OneDay",
}

// Duration returns the span of p, or 0 if p is not a known period.
func (p Period) Duration() time.Duration {
	switch p {
	case OneHour:
		return time.Hour
	case EightHours:
		return 8 * time.Hour
	case OneDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	_, ok := periodNames[p]
	return ok
}

func (p Period) String() string {
	if name, ok := periodNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ParsePeriod accepts the wire names OneHour, EightHours and OneDay.
func ParsePeriod(s string) (Period, error) {
	for p, name := range periodNames {
		if name == s {
			return p, nil
		}
	}
	return 0, invalidArgumentf("unknown period %q", s)
}

func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", p)
	}
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
