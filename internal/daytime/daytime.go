package daytime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of the slider domain.
const MinutesPerDay = 1440

// Step is how far one keyboard press moves the time.
const Step = 10

var ErrInvalidClock = errors.New("invalid clock value")

// Minutes is a time of day expressed as minutes since local midnight.
type Minutes int

// Wrap folds any minute count into [0, MinutesPerDay).
func Wrap(m int) Minutes {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return Minutes(m)
}

// Add moves m by delta minutes, wrapping around midnight.
func (m Minutes) Add(delta int) Minutes {
	return Wrap(int(m) + delta)
}

func (m Minutes) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

func (m Minutes) Hour() int {
	return int(m) / 60
}

func (m Minutes) Minute() int {
	return int(m) % 60
}

func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour(), m.Minute())
}

// FromTime returns the minutes since midnight of t in its own location.
// Seconds are truncated.
func FromTime(t time.Time) Minutes {
	return Minutes(t.Hour()*60 + t.Minute())
}

// Now returns the current minutes since midnight in loc.
func Now(loc *time.Location) Minutes {
	return FromTime(time.Now().In(loc))
}

// CurrentMinutes returns the current minutes since midnight in the named zone.
func CurrentMinutes(timezone string) (Minutes, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return Now(loc), nil
}

// ParseClock accepts either a bare minute count ("420") or a 24-hour
// "HH:MM" clock value ("07:00").
func ParseClock(value string) (Minutes, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidClock)
	}

	if !strings.Contains(value, ":") {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
		}
		m := Minutes(n)
		if !m.Valid() {
			return 0, fmt.Errorf("%w: %d out of range", ErrInvalidClock, n)
		}
		return m, nil
	}

	hh, mm, _ := strings.Cut(value, ":")
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidClock, value)
	}
	return Minutes(hour*60 + minute), nil
}
