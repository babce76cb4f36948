package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDoseLogNotFound occurs when a dose log id has no stored row
var ErrDoseLogNotFound = errors.New("dose log not found")

// DoseLogStatus lifecycle state. Transitions only move forward from pending;
// taken and skipped are terminal.
type DoseLogStatus string

// DoseLogStatus values
const (
	DoseLogPending DoseLogStatus = "pending"
	DoseLogTaken   DoseLogStatus = "taken"
	DoseLogSkipped DoseLogStatus = "skipped"
)

// DoseLog records one scheduled dose occurrence for a medication. The badger
// key is the (medication, date, time) triple, so at most one log can ever
// exist per slot regardless of how many times materialization runs.
type DoseLog struct {
	ID            uuid.UUID     `json:"id"`
	IDMedication  uuid.UUID     `json:"id_medication"`
	ScheduledDate Date          `json:"scheduled_date"`
	ScheduledTime TimeOfDay     `json:"scheduled_time"`
	Status        DoseLogStatus `json:"status"`
	TakenAt       *time.Time    `json:"taken_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ScheduledAt combines the log's date and time into a wall-clock instant in loc.
func (l *DoseLog) ScheduledAt(loc *time.Location) time.Time {
	return l.ScheduledTime.At(l.ScheduledDate, loc)
}

func (l *DoseLog) badgerKey() []byte {
	return badgerKeyForDoseLogSlot(l.IDMedication, l.ScheduledDate, l.ScheduledTime)
}

func (l *DoseLog) badgerIDKey() []byte {
	return badgerKeyForDoseLogID(l.ID)
}

func badgerKeyForDoseLogSlot(medicationID uuid.UUID, date Date, timeOfDay TimeOfDay) []byte {
	key := append([]byte("doselog:"), medicationID[:]...)
	key = append(key, []byte(date.String())...)

	return append(key, []byte(timeOfDay.String())...)
}

func badgerKeyForDoseLogID(id uuid.UUID) []byte {
	return append([]byte("doselogid:"), id[:]...)
}

func badgerPrefixKeyForDoseLogMedication(medicationID uuid.UUID) []byte {
	return append([]byte("doselog:"), medicationID[:]...)
}

func badgerPrefixKeyForDoseLogMedicationDate(medicationID uuid.UUID, date Date) []byte {
	return append(badgerPrefixKeyForDoseLogMedication(medicationID), []byte(date.String())...)
}
