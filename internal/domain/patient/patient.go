package patient

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a patient record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Patient is the read model the scheduler needs. Registration and clinical
// history live in the records module, which owns this table.
type Patient struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft Delete

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`
	Phone     string `gorm:"column:phone;type:varchar(20)"`
	Email     string `gorm:"column:email;type:varchar(255)"`

	// Minors are booked through their tutor.
	TutorID *int64 `gorm:"column:tutor_id;index"`

	Status Status `gorm:"column:status;type:varchar(20);default:'active';index"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}
