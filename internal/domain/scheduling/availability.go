package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docslot/docslot/internal/domain/identity"
	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/websocket"
)

// SetAvailability replaces the doctor's city, state and schedule.
//
// A new schedule may not drop a slot that is already booked: the call fails
// with apperr.ErrConflict naming those slots, and nothing is written. The
// doctor row is locked for update so no booking can land between the check
// and the write.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, in identity.Availability) (identity.Availability, error) {
	schedule, err := in.Schedule.Normalize()
	if err != nil {
		return identity.Availability{}, err
	}
	next := identity.Availability{
		City:     strings.TrimSpace(in.City),
		State:    strings.TrimSpace(in.State),
		Schedule: schedule,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.doctors.Lock(ctx, doctorID, identity.LockUpdate); err != nil {
			return err
		}
		appts, err := s.appointments.ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		if orphans := orphanedBy(schedule, appts); len(orphans) > 0 {
			return fmt.Errorf("%w: schedule drops booked slots %s", apperr.ErrConflict, describeSlots(orphans))
		}
		return s.doctors.UpdateAvailability(ctx, doctorID, next)
	})
	if err != nil {
		return identity.Availability{}, err
	}

	s.logger.Info().Str("doctor_id", doctorID.String()).Int("dates", len(schedule)).Msg("availability updated")
	s.publish(ctx, websocket.NewEvent(websocket.EventAvailabilityChanged, doctorID, "", ""))
	return next, nil
}

// GetAvailability returns the doctor's declared city, state and schedule.
func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID) (identity.Availability, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return identity.Availability{}, err
	}
	return d.Availability(), nil
}

func describeSlots(appts []*Appointment) string {
	parts := make([]string, len(appts))
	for i, a := range appts {
		parts[i] = a.Date + " " + a.Time
	}
	return strings.Join(parts, ", ")
}
