package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/auth"
)

// TokenIssuer mints bearer tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(id uuid.UUID, role auth.Role) (string, time.Time, error)
}

// Session is returned by a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ID        uuid.UUID `json:"id"`
	Role      auth.Role `json:"role"`
}

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	tokens   TokenIssuer
	logger   zerolog.Logger
}

func NewService(doctors DoctorRepository, patients PatientRepository, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{doctors: doctors, patients: patients, tokens: tokens, logger: logger}
}

// -- Registration --

// DoctorRegistration is the input for RegisterDoctor.
type DoctorRegistration struct {
	Name       string `json:"name"`
	Speciality string `json:"speciality"`
	Experience int    `json:"experience"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// PatientRegistration is the input for RegisterPatient.
type PatientRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", apperr.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email is not valid", apperr.ErrInvalidInput)
	}
	return nil
}

func (s *Service) RegisterDoctor(ctx context.Context, in DoctorRegistration) (*Doctor, error) {
	d := &Doctor{
		Name:       strings.TrimSpace(in.Name),
		Speciality: strings.TrimSpace(in.Speciality),
		Experience: in.Experience,
		Email:      NormalizeEmail(in.Email),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		Schedule:   Schedule{},
	}
	if d.Name == "" || d.Speciality == "" {
		return nil, fmt.Errorf("%w: name and speciality are required", apperr.ErrInvalidInput)
	}
	if d.Experience < 0 {
		return nil, fmt.Errorf("%w: experience cannot be negative", apperr.ErrInvalidInput)
	}
	if err := validateEmail(d.Email); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	d.PasswordHash = hash

	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Msg("doctor registered")
	return d, nil
}

func (s *Service) RegisterPatient(ctx context.Context, in PatientRegistration) (*Patient, error) {
	p := &Patient{
		Name:  strings.TrimSpace(in.Name),
		Email: NormalizeEmail(in.Email),
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	if err := validateEmail(p.Email); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p.PasswordHash = hash

	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return p, nil
}

// -- Login --

// Login verifies the credentials of a doctor or patient account and issues a
// token for it. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, role auth.Role, email, password string) (*Session, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, role)
	}

	var (
		id   uuid.UUID
		hash string
	)
	switch role {
	case auth.RoleDoctor:
		d, err := s.doctors.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if d != nil {
			id, hash = d.ID, d.PasswordHash
		}
	case auth.RolePatient:
		p, err := s.patients.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if p != nil {
			id, hash = p.ID, p.PasswordHash
		}
	}

	if hash == "" {
		auth.BurnCompare(password)
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	}
	if !auth.CheckPassword(hash, password) {
		s.logger.Warn().Str("role", string(role)).Str("account_id", id.String()).Msg("login rejected")
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	}

	token, exp, err := s.tokens.Issue(id, role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, ID: id, Role: role}, nil
}

// -- Profiles and directory --

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// SearchDoctors lists doctors matching every non-empty field of f, ordered by
// name. An empty filter lists the whole directory.
func (s *Service) SearchDoctors(ctx context.Context, f SearchFilter) ([]*Doctor, error) {
	items, err := s.doctors.Search(ctx, f.Trimmed())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Doctor{}
	}
	return items, nil
}
