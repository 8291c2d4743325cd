package scheduling

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
)

// NoClosedWeekday disables the weekly closed day.
const NoClosedWeekday = -1

// Policy holds the clinic's operating calendar. It is immutable after
// construction and safe for concurrent use.
type Policy struct {
	loc         *time.Location
	grid        int
	open        Clock
	close       Clock
	closedStart Clock
	closedEnd   Clock
	closedDay   int
	override    appointment.Category
	durations   []int
}

// NewPolicy validates cfg. Any error here is a deployment mistake and
// should stop the process.
func NewPolicy(cfg config.ClinicConfig) (*Policy, error) {
	var errs []string

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("unknown timezone %q", cfg.Timezone))
	}

	p := &Policy{
		loc:         loc,
		grid:        cfg.GridMinutes,
		open:        ClockFromHours(cfg.OpenHour),
		close:       ClockFromHours(cfg.CloseHour),
		closedStart: ClockFromHours(cfg.ClosedStartHour),
		closedEnd:   ClockFromHours(cfg.ClosedEndHour),
		closedDay:   cfg.ClosedWeekday,
		override:    appointment.Category(strings.TrimSpace(cfg.OverrideCategory)),
	}

	if p.grid <= 0 || 60%p.grid != 0 {
		errs = append(errs, fmt.Sprintf("grid of %d minutes must divide an hour", p.grid))
	} else {
		if int(p.open)%p.grid != 0 || int(p.close)%p.grid != 0 {
			errs = append(errs, "opening and closing hours must sit on the grid")
		}
		if int(p.closedStart)%p.grid != 0 || int(p.closedEnd)%p.grid != 0 {
			errs = append(errs, "closed interval bounds must sit on the grid")
		}
	}
	if p.open < 0 || p.close > minutesPerDay || p.close <= p.open {
		errs = append(errs, fmt.Sprintf("closing hour %s must be after opening hour %s", p.close, p.open))
	}
	if p.closedEnd < p.closedStart {
		errs = append(errs, "closed interval ends before it starts")
	} else if p.closedEnd > p.closedStart && (p.closedStart < p.open || p.closedEnd > p.close) {
		errs = append(errs, "closed interval must lie within operating hours")
	}
	if p.closedDay < NoClosedWeekday || p.closedDay > int(time.Saturday) {
		errs = append(errs, fmt.Sprintf("closed weekday %d out of range", p.closedDay))
	}

	if len(cfg.AllowedDurations) == 0 {
		errs = append(errs, "at least one allowed duration is required")
	}
	for _, d := range cfg.AllowedDurations {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("duration %d must be positive", d))
			continue
		}
		if !slices.Contains(p.durations, d) {
			p.durations = append(p.durations, d)
		}
	}
	slices.Sort(p.durations)

	if len(errs) > 0 {
		return nil, errors.New("invalid clinic calendar:\n  - " + strings.Join(errs, "\n  - "))
	}
	return p, nil
}

func (p *Policy) Location() *time.Location { return p.loc }
func (p *Policy) GridMinutes() int         { return p.grid }
func (p *Policy) Open() Clock              { return p.open }
func (p *Policy) Close() Clock             { return p.close }

// ClosedInterval returns the daily closed span; start == end means none.
func (p *Policy) ClosedInterval() (Clock, Clock) { return p.closedStart, p.closedEnd }

func (p *Policy) OverrideCategory() appointment.Category { return p.override }

// AllowedDurations returns the durations in ascending order.
func (p *Policy) AllowedDurations() []int { return slices.Clone(p.durations) }

func (p *Policy) IsAllowedDuration(mins int) bool {
	_, found := slices.BinarySearch(p.durations, mins)
	return found
}

func (p *Policy) IsOverride(c appointment.Category) bool {
	return p.override != "" && c == p.override
}

// Date returns midnight of d's civil date in the clinic timezone. The
// year, month and day are taken from d as given, not converted.
func (p *Policy) Date(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, p.loc)
}

func (p *Policy) IsGridAligned(t Clock) bool {
	return t.IsSet() && t.Minute()%p.grid == 0
}

// IsWithinOperatingHours applies to start times: closing time itself is out.
func (p *Policy) IsWithinOperatingHours(t Clock) bool {
	return p.open <= t && t < p.close
}

func (p *Policy) IsInClosedInterval(t Clock) bool {
	return p.closedStart <= t && t < p.closedEnd
}

// StartsInsideClosedInterval is IsInClosedInterval without the first
// minute. A start exactly at the closed start is treated as a crossing.
func (p *Policy) StartsInsideClosedInterval(t Clock) bool {
	return p.closedStart < t && t < p.closedEnd
}

// CrossesClosedInterval reports whether [start, start+mins) meets the closed interval.
func (p *Policy) CrossesClosedInterval(start Clock, mins int) bool {
	if p.closedEnd <= p.closedStart {
		return false
	}
	return start < p.closedEnd && start.Add(mins) > p.closedStart
}

// EndsByClose allows the end to coincide with closing time.
func (p *Policy) EndsByClose(start Clock, mins int) bool {
	return start.Add(mins) <= p.close
}

func (p *Policy) IsFullyClosedDay(date time.Time) bool {
	return p.closedDay != NoClosedWeekday && int(date.Weekday()) == p.closedDay
}

// GridSlots lists every grid start from opening (inclusive) to closing
// (exclusive). A fresh slice is built on each call.
func (p *Policy) GridSlots() []Clock {
	slots := make([]Clock, 0, int(p.close-p.open)/p.grid)
	for t := p.open; t < p.close; t = t.Add(p.grid) {
		slots = append(slots, t)
	}
	return slots
}
