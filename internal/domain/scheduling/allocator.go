package scheduling

import (
	"github.com/docslot/docslot/internal/domain/identity"
)

// ComputeFreeSlots subtracts the doctor's booked slots from the declared
// schedule. The result has exactly the declared dates as keys; a fully booked
// date maps to an empty list. Labels keep their declared order, and
// appointments belonging to other doctors are ignored.
func ComputeFreeSlots(d *identity.Doctor, appts []*Appointment) identity.Schedule {
	booked := make(map[slotKey]struct{}, len(appts))
	for _, a := range appts {
		if a.DoctorID == d.ID {
			booked[a.key()] = struct{}{}
		}
	}

	free := make(identity.Schedule, len(d.Schedule))
	for date, labels := range d.Schedule {
		open := make([]string, 0, len(labels))
		for _, label := range labels {
			if _, taken := booked[slotKey{date, label}]; !taken {
				open = append(open, label)
			}
		}
		free[date] = open
	}
	return free
}

// orphanedBy returns the appointments whose slot is not declared in s, in
// the order given.
func orphanedBy(s identity.Schedule, appts []*Appointment) []*Appointment {
	var out []*Appointment
	for _, a := range appts {
		if !s.Has(a.Date, a.Time) {
			out = append(out, a)
		}
	}
	return out
}
