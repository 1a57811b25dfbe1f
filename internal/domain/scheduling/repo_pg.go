package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/db"
)

const slotIndex = "appointments_slot_uniq"

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `a.id, a.doctor_id, a.patient_id, a.date, a.time, a.created_at`

func scanAppt(row pgx.Row, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	dest := append([]interface{}{&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time, &a.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.DoctorID, a.PatientID, a.Date, a.Time, a.CreatedAt)
	switch {
	case db.IsUniqueViolation(err, slotIndex):
		return fmt.Errorf("%w: %s %s is already booked", apperr.ErrSlotUnavailable, a.Date, a.Time)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("doctor or patient: %w", apperr.ErrNotFound)
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments a WHERE a.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("appointment: %w", apperr.ErrNotFound)
	}
	return a, err
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment: %w", apperr.ErrNotFound)
	}
	return nil
}

func (r *appointmentRepoPG) IsBooked(ctx context.Context, doctorID uuid.UUID, date, slot string) (bool, error) {
	var booked bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE doctor_id = $1 AND date = $2 AND time = $3)`,
		doctorID, date, slot).Scan(&booked)
	return booked, err
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments a
		WHERE a.doctor_id = $1 ORDER BY a.date, a.time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// pageTotal resolves the total for a page query that carries COUNT(*) OVER().
// An empty page past the end has no row to carry it, so it is counted
// separately.
func (r *appointmentRepoPG) pageTotal(ctx context.Context, total, rows, offset int, column string, id uuid.UUID) (int, error) {
	if rows > 0 || offset == 0 {
		return total, nil
	}
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE `+column+` = $1`, id).Scan(&total)
	return total, err
}

func (r *appointmentRepoPG) ListByDoctorWithPatient(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorAppointment, int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, p.name, COUNT(*) OVER()
		FROM appointments a JOIN patients p ON p.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.date, a.time LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		items []*DoctorAppointment
		total int
	)
	for rows.Next() {
		var name string
		a, err := scanAppt(rows, &name, &total)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, &DoctorAppointment{Appointment: *a, PatientName: name})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	total, err = r.pageTotal(ctx, total, len(items), offset, "doctor_id", doctorID)
	return items, total, err
}

func (r *appointmentRepoPG) ListByPatientWithDoctor(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientAppointment, int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, d.name, d.speciality, d.city, COUNT(*) OVER()
		FROM appointments a JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.date, a.time LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		items []*PatientAppointment
		total int
	)
	for rows.Next() {
		var pa PatientAppointment
		a, err := scanAppt(rows, &pa.DoctorName, &pa.Speciality, &pa.City, &total)
		if err != nil {
			return nil, 0, err
		}
		pa.Appointment = *a
		items = append(items, &pa)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	total, err = r.pageTotal(ctx, total, len(items), offset, "patient_id", patientID)
	return items, total, err
}
