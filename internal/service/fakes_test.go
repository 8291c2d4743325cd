package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/events"
	"github.com/google/uuid"
)

// memAppointments is an in-memory appointment.Repository. WithDateLock
// serializes on a single mutex, which is stricter than per-date locking.
type memAppointments struct {
	lock sync.Mutex

	mu        sync.Mutex
	rows      map[uuid.UUID]appointment.Appointment
	dayReads  int
	createErr error
}

func newMemAppointments() *memAppointments {
	return &memAppointments{rows: make(map[uuid.UUID]appointment.Appointment)}
}

func (m *memAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.startTaken(a) {
		return appointment.ErrSlotTaken
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	m.rows[a.ID] = *a
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memAppointments) Save(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	if m.startTaken(a) {
		return appointment.ErrSlotTaken
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memAppointments) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	return m.Save(ctx, a)
}

func (m *memAppointments) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*appointment.Appointment
	for _, a := range m.rows {
		if !q.IncludeCancelled && !a.IsActive() {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.Date != nil && !sameDay(a.Date, *q.Date) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })

	total := len(out)
	from := min((q.Page-1)*q.PageSize, total)
	to := min(from+q.PageSize, total)
	return &appointment.PagedAppointments{
		Appointments: out[from:to],
		TotalCount:   int64(total),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   (total + q.PageSize - 1) / q.PageSize,
	}, nil
}

func (m *memAppointments) ListActiveByDate(_ context.Context, date time.Time) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dayReads++

	var out []*appointment.Appointment
	for _, a := range m.rows {
		if a.IsActive() && sameDay(a.Date, date) {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memAppointments) WithDateLock(_ context.Context, _ time.Time, fn func(appointment.Repository) error) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return fn(m)
}

func (m *memAppointments) reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dayReads
}

// startTaken mirrors the partial unique index on active start times.
func (m *memAppointments) startTaken(a *appointment.Appointment) bool {
	if !a.IsActive() {
		return false
	}
	for id, other := range m.rows {
		if id != a.ID && other.IsActive() && other.ScheduledAt.Equal(a.ScheduledAt) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

type memPatients map[int64]*patient.Patient

func (m memPatients) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (m *memAudit) Create(_ context.Context, e *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var errBrokerDown = errors.New("broker unavailable")
