package scheduling

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/google/uuid"
)

// Recommender searches one day's grid for bookings that would be accepted.
// The search is bounded by the number of grid slots in a day.
type Recommender struct {
	policy   *Policy
	index    *OverlapIndex
	date     time.Time
	category appointment.Category
	exclude  uuid.UUID
	now      time.Time
}

func NewRecommender(p *Policy, idx *OverlapIndex, date time.Time, category appointment.Category, exclude uuid.UUID, now time.Time) *Recommender {
	return &Recommender{
		policy:   p,
		index:    idx,
		date:     p.Date(date),
		category: category,
		exclude:  exclude,
		now:      now,
	}
}

// Fits reports whether a booking at start for mins would pass every
// calendar and overlap rule.
func (r *Recommender) Fits(start Clock, mins int) bool {
	p := r.policy
	if !p.IsGridAligned(start) || !p.IsWithinOperatingHours(start) || !p.EndsByClose(start, mins) {
		return false
	}
	if !p.IsOverride(r.category) {
		if p.IsFullyClosedDay(r.date) || p.CrossesClosedInterval(start, mins) {
			return false
		}
	}
	at := start.On(r.date)
	if at.Before(r.now) {
		return false
	}
	return !r.index.Overlaps(NewInterval(at, mins), r.exclude)
}

// NextAvailableSlot returns the earliest grid start strictly after after
// at which mins fits.
func (r *Recommender) NextAvailableSlot(after Clock, mins int) (Clock, bool) {
	return r.firstFit(after.Add(1), mins)
}

// firstFit scans grid starts at or after from.
func (r *Recommender) firstFit(from Clock, mins int) (Clock, bool) {
	for _, slot := range r.policy.GridSlots() {
		if slot < from {
			continue
		}
		if r.Fits(slot, mins) {
			return slot, true
		}
	}
	return NoClock, false
}

// MaxFittingDuration returns the longest allowed duration shorter than
// requested that fits at the same start.
func (r *Recommender) MaxFittingDuration(start Clock, requested int) (int, bool) {
	durations := r.policy.AllowedDurations()
	for i := len(durations) - 1; i >= 0; i-- {
		d := durations[i]
		if d >= requested {
			continue
		}
		if r.Fits(start, d) {
			return d, true
		}
	}
	return 0, false
}

// FreeSlots lists every grid start at which mins fits.
func (r *Recommender) FreeSlots(mins int) []Clock {
	var free []Clock
	for _, slot := range r.policy.GridSlots() {
		if r.Fits(slot, mins) {
			free = append(free, slot)
		}
	}
	return free
}
