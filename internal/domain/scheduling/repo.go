package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/docslot/docslot/internal/domain/identity"
)

// DoctorStore is the part of the doctor repository the allocator needs.
type DoctorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
	Lock(ctx context.Context, id uuid.UUID, mode identity.LockMode) (*identity.Doctor, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, a identity.Availability) error
}

type AppointmentRepository interface {
	// Create fails with apperr.ErrSlotUnavailable when the slot is taken.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IsBooked(ctx context.Context, doctorID uuid.UUID, date, time string) (bool, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
	ListByDoctorWithPatient(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorAppointment, int, error)
	ListByPatientWithDoctor(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientAppointment, int, error)
}
