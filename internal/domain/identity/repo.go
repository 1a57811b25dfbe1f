package identity

import (
	"context"

	"github.com/google/uuid"
)

// LockMode selects the row lock taken by DoctorRepository.Lock.
type LockMode int

const (
	// LockShare blocks concurrent availability rewrites but not other bookings.
	LockShare LockMode = iota
	// LockUpdate excludes bookings and other rewrites for the same doctor.
	LockUpdate
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	// Lock reads the doctor row under a row lock. It must run inside a
	// transaction for the lock to outlive the statement.
	Lock(ctx context.Context, id uuid.UUID, mode LockMode) (*Doctor, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, a Availability) error
	Search(ctx context.Context, f SearchFilter) ([]*Doctor, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
}
