package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain/patient"
	"gorm.io/gorm"
)

var _ patient.Repository = (*PatientRepository)(nil)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// GetByID includes soft-deleted rows so the caller can tell inactive from missing.
func (r *PatientRepository) GetByID(ctx context.Context, id int64) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient %d: %w", id, err)
	}
	return &p, nil
}
