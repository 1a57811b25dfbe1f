package identity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docslot/docslot/internal/platform/apperr"
)

// DateLayout is the ISO calendar date used for schedule keys and bookings.
const DateLayout = "2006-01-02"

const (
	maxScheduleDates = 400
	maxSlotsPerDate  = 48
	maxSlotLabelLen  = 32
)

// Schedule maps an ISO date to the slot labels a doctor offers on it, in the
// order the doctor declared them. Labels are opaque and unique per date.
type Schedule map[string][]string

// Has reports whether slot is declared on date.
func (s Schedule) Has(date, slot string) bool {
	for _, label := range s[date] {
		if label == slot {
			return true
		}
	}
	return false
}

// Dates returns the declared dates in ascending order.
func (s Schedule) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Clone returns a deep copy. A nil schedule clones to an empty one.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for d, labels := range s {
		out[d] = append([]string{}, labels...)
	}
	return out
}

// Normalize validates s and returns a cleaned copy: labels are trimmed and
// duplicates collapsed keeping the first occurrence. Dates must be ISO
// calendar dates. A date with no labels is kept with an empty list.
func (s Schedule) Normalize() (Schedule, error) {
	if len(s) > maxScheduleDates {
		return nil, fmt.Errorf("%w: schedule has %d dates, limit is %d", apperr.ErrInvalidInput, len(s), maxScheduleDates)
	}

	out := make(Schedule, len(s))
	for date, labels := range s {
		if !ValidDate(date) {
			return nil, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", apperr.ErrInvalidInput, date)
		}

		seen := make(map[string]struct{}, len(labels))
		clean := make([]string, 0, len(labels))
		for _, raw := range labels {
			label := strings.TrimSpace(raw)
			if label == "" {
				return nil, fmt.Errorf("%w: empty slot label on %s", apperr.ErrInvalidInput, date)
			}
			if len(label) > maxSlotLabelLen {
				return nil, fmt.Errorf("%w: slot label %q on %s is longer than %d characters", apperr.ErrInvalidInput, label, date, maxSlotLabelLen)
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			clean = append(clean, label)
		}
		if len(clean) > maxSlotsPerDate {
			return nil, fmt.Errorf("%w: %s has %d slots, limit is %d", apperr.ErrInvalidInput, date, len(clean), maxSlotsPerDate)
		}
		out[date] = clean
	}
	return out, nil
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

// Doctor is a bookable practitioner. The schedule is the declared capacity;
// which of its slots are free is derived from the appointment ledger.
type Doctor struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Speciality   string    `json:"speciality"`
	Experience   int       `json:"experience"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Schedule     Schedule  `json:"schedule"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Availability is the part of a doctor record the doctor rewrites in one go.
type Availability struct {
	City     string   `json:"city"`
	State    string   `json:"state"`
	Schedule Schedule `json:"schedule"`
}

// Availability returns the doctor's current availability.
func (d *Doctor) Availability() Availability {
	return Availability{City: d.City, State: d.State, Schedule: d.Schedule.Clone()}
}

// Listing is the public directory view of a doctor. It omits the login email.
type Listing struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Speciality string    `json:"speciality"`
	Experience int       `json:"experience"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Schedule   Schedule  `json:"schedule"`
}

func (d *Doctor) Listing() Listing {
	return Listing{
		ID: d.ID, Name: d.Name, Speciality: d.Speciality, Experience: d.Experience,
		City: d.City, State: d.State, Schedule: d.Schedule,
	}
}

type Patient struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
