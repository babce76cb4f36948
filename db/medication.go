package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMedication occurs when a medication's dosing rule is inconsistent
var ErrInvalidMedication = errors.New("invalid medication")

// Timing preference relative to meals, used only to pick default dose slots
type Timing string

// Timing values
const (
	TimingBeforeMeal Timing = "before_meal"
	TimingAfterMeal  Timing = "after_meal"
	TimingAnytime    Timing = "anytime"
)

// DoseSpecKind identifies which dose-time strategy a medication uses
type DoseSpecKind string

// DoseSpecKind values
const (
	// DoseSpecCustom uses the caller-chosen DoseTimes list verbatim
	DoseSpecCustom DoseSpecKind = "custom"
	// DoseSpecFixedSlots uses the canonical 08:00/14:00/20:00 slots
	DoseSpecFixedSlots DoseSpecKind = "fixed_slots"
	// DoseSpecInterval repeats every IntervalHours starting at 08:00
	DoseSpecInterval DoseSpecKind = "interval"
)

// MaxFrequency is the most doses per day a medication may schedule
const MaxFrequency = 10

// Medication dosing rule for a user. One active rule per medicine; edits that
// change the dosing shape force a destructive log resync.
type Medication struct {
	IDUser          uuid.UUID   `json:"id_user"`
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Frequency       int         `json:"frequency"`
	Timing          Timing      `json:"timing"`
	DoseTimes       []TimeOfDay `json:"dose_times,omitempty"`
	IntervalHours   float64     `json:"interval_hours,omitempty"`
	StartDate       Date        `json:"start_date"`
	DurationDays    int         `json:"duration_days"`
	Active          bool        `json:"active"`
	PushoverDevices []string    `json:"pushover_devices"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// SpecKind resolves which dose-time strategy applies. Exactly one strategy is
// in effect at a time: custom times win, fixed slots cover low-frequency
// meal-timed rules, everything else spaces doses by interval.
func (m *Medication) SpecKind() DoseSpecKind {
	if len(m.DoseTimes) > 0 {
		return DoseSpecCustom
	}

	if m.Frequency <= 3 && m.Timing != TimingAnytime {
		return DoseSpecFixedSlots
	}

	return DoseSpecInterval
}

// EffectiveIntervalHours returns the configured dose interval, defaulting to
// a 15-hour waking day split evenly across the frequency, never under 1h.
func (m *Medication) EffectiveIntervalHours() float64 {
	if m.IntervalHours > 0 {
		return m.IntervalHours
	}

	if m.Frequency <= 0 {
		return 1
	}

	hours := float64(15 / m.Frequency)
	if hours < 1 {
		hours = 1
	}

	return hours
}

// InWindow reports whether date falls inside the medication's validity
// window [StartDate, StartDate+DurationDays), date-only comparison.
func (m *Medication) InWindow(date Date) bool {
	return !date.Before(m.StartDate) && date.Before(m.StartDate.AddDays(m.DurationDays))
}

// SameShape reports whether other derives the same number of daily dose
// slots, meaning existing logs remain valid across the edit.
func (m *Medication) SameShape(other *Medication) bool {
	return m.Frequency == other.Frequency && len(m.DoseTimes) == len(other.DoseTimes)
}

// Validate the dosing rule. Rules that would derive a dose count different
// from Frequency, or interval doses starting at or past midnight, are
// rejected here so derivation never has to guard against them.
func (m *Medication) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("medication name must not be empty: %w", ErrInvalidMedication)
	}

	if m.Frequency < 1 || m.Frequency > MaxFrequency {
		return fmt.Errorf("frequency %d is outside 1..%d: %w", m.Frequency, MaxFrequency, ErrInvalidMedication)
	}

	switch m.Timing {
	case TimingBeforeMeal, TimingAfterMeal, TimingAnytime:
	default:
		return fmt.Errorf("unknown timing %q: %w", m.Timing, ErrInvalidMedication)
	}

	if m.DurationDays < 1 {
		return fmt.Errorf("duration of %d days is not positive: %w", m.DurationDays, ErrInvalidMedication)
	}

	if len(m.DoseTimes) > 0 {
		if len(m.DoseTimes) != m.Frequency {
			return fmt.Errorf(
				"%d custom dose times for frequency %d: %w",
				len(m.DoseTimes),
				m.Frequency,
				ErrInvalidMedication,
			)
		}

		for i := 1; i < len(m.DoseTimes); i++ {
			if !m.DoseTimes[i-1].Before(m.DoseTimes[i]) {
				return fmt.Errorf(
					"custom dose times must be strictly increasing, got %s then %s: %w",
					m.DoseTimes[i-1],
					m.DoseTimes[i],
					ErrInvalidMedication,
				)
			}
		}
	}

	if m.SpecKind() == DoseSpecInterval {
		last := 8 + float64(m.Frequency-1)*m.EffectiveIntervalHours()
		if last >= 24 {
			return fmt.Errorf(
				"last dose of %d every %.1fh would start at hour %.1f, past midnight: %w",
				m.Frequency,
				m.EffectiveIntervalHours(),
				last,
				ErrInvalidMedication,
			)
		}
	}

	return nil
}

func (m *Medication) badgerKey() []byte {
	return append(append([]byte("medication:"), m.IDUser[:]...), m.ID[:]...)
}

func badgerKeyForMedication(userID uuid.UUID, medicationID uuid.UUID) []byte {
	return append(append([]byte("medication:"), userID[:]...), medicationID[:]...)
}

func badgerPrefixKeyForMedicationUser(user *User) []byte {
	return append([]byte("medication:"), user.ID[:]...)
}
