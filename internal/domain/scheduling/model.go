package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is one consumed slot: the patient holds time on date with the
// doctor. Cancelling deletes the row, so every stored appointment is active.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	PatientID uuid.UUID `json:"patientId"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"createdAt"`
}

// slotKey identifies a slot within one doctor's schedule.
type slotKey struct {
	date, time string
}

func (a *Appointment) key() slotKey { return slotKey{a.Date, a.Time} }

// DoctorAppointment is an appointment as listed to its doctor.
type DoctorAppointment struct {
	Appointment
	PatientName string `json:"patientName"`
}

// PatientAppointment is an appointment as listed to its patient.
type PatientAppointment struct {
	Appointment
	DoctorName string `json:"doctorName"`
	Speciality string `json:"speciality"`
	City       string `json:"city"`
}

// BookingRequest is the body of POST /appointments/book.
type BookingRequest struct {
	DoctorID uuid.UUID `json:"doctorId"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
}
