package patient

import "context"

type Repository interface {
	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id int64) (*Patient, error)
}
