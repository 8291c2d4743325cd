package scheduling

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day in whole minutes since midnight.
type Clock int

// NoClock marks a time that was not supplied.
const NoClock Clock = -1

const minutesPerDay = 24 * 60

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockFromHours converts decimal hours (20.5) to a Clock (20:30).
func ClockFromHours(h float64) Clock {
	return Clock(math.Round(h * 60))
}

// ClockOf returns the wall-clock time of t in t's own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

// ParseClock accepts "15:04" and "15:04:05"; seconds must be zero.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return NoClock, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return NoClock, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return NoClock, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return NoClock, fmt.Errorf("invalid time %q: seconds are not supported", s)
	}
	return NewClock(h, m), nil
}

func (c Clock) IsSet() bool { return c >= 0 && c < minutesPerDay }

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Hours returns c in decimal hours.
func (c Clock) Hours() float64 { return float64(c) / 60 }

func (c Clock) Add(mins int) Clock { return c + Clock(mins) }

// On combines c with the civil date of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, date.Location())
}

func (c Clock) String() string {
	if c < 0 {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, durationMins int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(durationMins) * time.Minute)}
}

// Overlaps is false for intervals that only touch at an endpoint.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}
