package scheduling

import (
	"slices"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/google/uuid"
)

type booking struct {
	id       uuid.UUID
	interval Interval
}

// OverlapIndex answers interval intersection queries against one day's
// bookings. Cancelled appointments are dropped at construction.
type OverlapIndex struct {
	bookings []booking
}

// NewOverlapIndex copies what it needs; the caller keeps ownership of existing.
func NewOverlapIndex(existing []*appointment.Appointment) *OverlapIndex {
	idx := &OverlapIndex{bookings: make([]booking, 0, len(existing))}
	for _, a := range existing {
		if a == nil || !a.IsActive() {
			continue
		}
		idx.bookings = append(idx.bookings, booking{
			id:       a.ID,
			interval: Interval{Start: a.ScheduledAt, End: a.EndsAt()},
		})
	}
	slices.SortFunc(idx.bookings, func(x, y booking) int {
		return x.interval.Start.Compare(y.interval.Start)
	})
	return idx
}

// Overlaps reports whether iv intersects any booking other than exclude.
// Pass uuid.Nil to compare against every booking.
func (x *OverlapIndex) Overlaps(iv Interval, exclude uuid.UUID) bool {
	for _, b := range x.bookings {
		if !b.interval.Start.Before(iv.End) {
			// sorted by start: nothing later can intersect
			return false
		}
		if exclude != uuid.Nil && b.id == exclude {
			continue
		}
		if iv.Overlaps(b.interval) {
			return true
		}
	}
	return false
}

func (x *OverlapIndex) Len() int { return len(x.bookings) }
