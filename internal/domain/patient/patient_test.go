package patient

import (
	"testing"
	"time"
)

func TestPatient_IsActive(t *testing.T) {
	deleted := time.Now()
	tests := []struct {
		name string
		p    Patient
		want bool
	}{
		{"active", Patient{Status: StatusActive}, true},
		{"inactive", Patient{Status: StatusInactive}, false},
		{"soft deleted", Patient{Status: StatusActive, DeletedAt: &deleted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsActive(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPatient_FullName(t *testing.T) {
	p := Patient{FirstName: "Ana", LastName: " "}
	if got := p.FullName(); got != "Ana" {
		t.Errorf("expected trimmed name, got %q", got)
	}
}
