package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// ValidationError is malformed input caught before the scheduling rules run,
// such as an unparseable date.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Actor is the authenticated caller behind a service operation.
type Actor struct {
	UserID    uuid.UUID
	Role      domain.Role
	IPAddress string
	RequestID string
}

func (a Actor) canSchedule() error {
	if !a.Role.CanSchedule() {
		return ErrForbidden
	}
	return nil
}

type AuditEntry struct {
	Actor        Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      string
}
