package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/db"
)

type queryable = db.Querier

// =========== Doctor Repository ===========

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `id, name, speciality, experience, email, password_hash, city, state, schedule, created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var raw []byte
	err := row.Scan(&d.ID, &d.Name, &d.Speciality, &d.Experience, &d.Email, &d.PasswordHash,
		&d.City, &d.State, &raw, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Schedule = Schedule{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule for doctor %s: %w", d.ID, err)
		}
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.Email = NormalizeEmail(d.Email)
	if d.Schedule == nil {
		d.Schedule = Schedule{}
	}
	raw, err := json.Marshal(d.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, name, speciality, experience, email, password_hash, city, state, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.Name, d.Speciality, d.Experience, d.Email, d.PasswordHash,
		d.City, d.State, raw, d.CreatedAt, d.UpdatedAt)
	if db.IsUniqueViolation(err, "doctors_email_key") {
		return fmt.Errorf("%w: a doctor with this email already exists", apperr.ErrConflict)
	}
	return err
}

func (r *doctorRepoPG) get(ctx context.Context, query string, arg interface{}) (*Doctor, error) {
	d, err := r.scanDoctor(r.conn(ctx).QueryRow(ctx, query, arg))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("doctor: %w", apperr.ErrNotFound)
	}
	return d, err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.get(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id)
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.get(ctx, `SELECT `+doctorCols+` FROM doctors WHERE email = $1`, NormalizeEmail(email))
}

func (r *doctorRepoPG) Lock(ctx context.Context, id uuid.UUID, mode LockMode) (*Doctor, error) {
	clause := "FOR SHARE"
	if mode == LockUpdate {
		clause = "FOR UPDATE"
	}
	return r.get(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1 `+clause, id)
}

func (r *doctorRepoPG) UpdateAvailability(ctx context.Context, id uuid.UUID, a Availability) error {
	schedule := a.Schedule
	if schedule == nil {
		schedule = Schedule{}
	}
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET city = $2, state = $3, schedule = $4, updated_at = $5
		WHERE id = $1`,
		id, a.City, a.State, raw, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("doctor: %w", apperr.ErrNotFound)
	}
	return nil
}

func (r *doctorRepoPG) Search(ctx context.Context, f SearchFilter) ([]*Doctor, error) {
	q := buildDoctorSearch(f)
	rows, err := r.conn(ctx).Query(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// =========== Patient Repository ===========

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, name, email, password_hash, created_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.Email = NormalizeEmail(p.Email)
	p.CreatedAt = time.Now().UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Email, p.PasswordHash, p.CreatedAt)
	if db.IsUniqueViolation(err, "patients_email_key") {
		return fmt.Errorf("%w: a patient with this email already exists", apperr.ErrConflict)
	}
	return err
}

func (r *patientRepoPG) get(ctx context.Context, query string, arg interface{}) (*Patient, error) {
	p, err := r.scanPatient(r.conn(ctx).QueryRow(ctx, query, arg))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("patient: %w", apperr.ErrNotFound)
	}
	return p, err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.get(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return r.get(ctx, `SELECT `+patientCols+` FROM patients WHERE email = $1`, NormalizeEmail(email))
}
