package aggregation

import (
	"errors"
	"fmt"
	"time"
)

type RangeKind string

const (
	Range30Min  RangeKind = "30min"
	Range1Hour  RangeKind = "1h"
	Range5Hours RangeKind = "5h"
	Range1Day   RangeKind = "1d"
	RangeCustom RangeKind = "custom"
)

var (
	ErrUnknownRange = errors.New("unknown time range")
	ErrInvalidRange = errors.New("invalid time range")
)

var presetRanges = map[RangeKind]time.Duration{
	Range30Min:  30 * time.Minute,
	Range1Hour:  time.Hour,
	Range5Hours: 5 * time.Hour,
	Range1Day:   24 * time.Hour,
}

// TimeRange is a closed interval used for history queries.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// PresetRange returns the interval of the given length ending at `at`.
func PresetRange(kind RangeKind, at time.Time) (TimeRange, error) {
	d, ok := presetRanges[kind]
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, kind)
	}
	return TimeRange{From: at.Add(-d), To: at}, nil
}

// CustomRange spans the calendar day of date, taken as written and placed in
// loc, between two HH:MM clock times. The end minute is included through its
// 59th second.
func CustomRange(date time.Time, start, end string, loc *time.Location) (TimeRange, error) {
	sh, sm, err := parseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	eh, em, err := parseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	y, m, d := date.Date()
	from := time.Date(y, m, d, sh, sm, 0, 0, loc)
	to := time.Date(y, m, d, eh, em, 59, 0, loc)
	if to.Before(from) {
		return TimeRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	return TimeRange{From: from, To: to}, nil
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock time %q: %v", ErrInvalidRange, s, err)
	}
	return t.Hour(), t.Minute(), nil
}
