package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docslot/docslot/internal/domain/identity"
	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/db"
	"github.com/docslot/docslot/internal/platform/websocket"
)

type Service struct {
	doctors      DoctorStore
	appointments AppointmentRepository
	tx           db.TxRunner
	events       websocket.EventPublisher
	logger       zerolog.Logger
}

func NewService(doctors DoctorStore, appts AppointmentRepository, tx db.TxRunner, events websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{doctors: doctors, appointments: appts, tx: tx, events: events, logger: logger}
}

// publish notifies watchers after a committed change. Delivery is best
// effort and never fails the request.
func (s *Service) publish(ctx context.Context, ev websocket.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", ev.Type).Str("doctor_id", ev.DoctorID.String()).Msg("publish failed")
	}
}

// -- Allocation --

// BookSlot reserves time on date with the doctor for the patient.
//
// The schedule read, occupancy check and insert share one transaction that
// holds a share lock on the doctor row, so the slot cannot be withdrawn
// underneath the booking. Concurrent bookings of the same slot are decided by
// the unique index: exactly one succeeds and the others get
// apperr.ErrSlotUnavailable.
func (s *Service) BookSlot(ctx context.Context, doctorID, patientID uuid.UUID, date, slot string) (*Appointment, error) {
	date, slot = strings.TrimSpace(date), strings.TrimSpace(slot)
	appt := &Appointment{DoctorID: doctorID, PatientID: patientID, Date: date, Time: slot}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.doctors.Lock(ctx, doctorID, identity.LockShare)
		if err != nil {
			return err
		}
		if !d.Schedule.Has(date, slot) {
			return fmt.Errorf("%w: %q on %q is not offered by this doctor", apperr.ErrInvalidSlot, slot, date)
		}
		booked, err := s.appointments.IsBooked(ctx, doctorID, date, slot)
		if err != nil {
			return err
		}
		if booked {
			return fmt.Errorf("%w: %s %s is already booked", apperr.ErrSlotUnavailable, date, slot)
		}
		return s.appointments.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("date", date).Str("time", slot).
		Msg("slot booked")
	s.publish(ctx, websocket.NewEvent(websocket.EventSlotBooked, doctorID, date, slot))
	return appt, nil
}

// CancelSlot deletes the appointment if it belongs to the requesting patient,
// returning the slot to the doctor's free set.
func (s *Service) CancelSlot(ctx context.Context, appointmentID, patientID uuid.UUID) error {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.PatientID != patientID {
		return fmt.Errorf("%w: appointment belongs to another patient", apperr.ErrForbidden)
	}
	if err := s.appointments.Delete(ctx, appointmentID); err != nil {
		return err
	}

	s.logger.Info().Str("appointment_id", appointmentID.String()).Msg("slot released")
	s.publish(ctx, websocket.NewEvent(websocket.EventSlotReleased, appt.DoctorID, appt.Date, appt.Time))
	return nil
}

// FreeSlots returns the doctor's declared schedule minus booked slots.
func (s *Service) FreeSlots(ctx context.Context, doctorID uuid.UUID) (identity.Schedule, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return ComputeFreeSlots(d, appts), nil
}

// -- Ledger views --

// DoctorAppointments lists the raw ledger entries for a doctor so clients
// can derive free slots themselves.
func (s *Service) DoctorAppointments(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	items, err := s.appointments.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return items, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorAppointment, int, error) {
	items, total, err := s.appointments.ListByDoctorWithPatient(ctx, doctorID, limit, offset)
	if items == nil && err == nil {
		items = []*DoctorAppointment{}
	}
	return items, total, err
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientAppointment, int, error) {
	items, total, err := s.appointments.ListByPatientWithDoctor(ctx, patientID, limit, offset)
	if items == nil && err == nil {
		items = []*PatientAppointment{}
	}
	return items, total, err
}
