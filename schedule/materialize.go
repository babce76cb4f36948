package schedule

import (
	"fmt"
	"time"

	"git.0xdad.com/tblyler/dosetrack/db"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the storage surface materialization needs. *db.Badger satisfies
// it; tests may substitute anything honoring insert-if-absent semantics on
// the (medication, date, time) slot.
type Store interface {
	ListDoseLogsForMedicationDate(medicationID uuid.UUID, date db.Date) ([]*db.DoseLog, error)
	InsertDoseLogIfAbsent(log *db.DoseLog) (bool, error)
	DeleteDoseLogsForMedication(medicationID uuid.UUID) error
}

// Plan computes the pending logs to insert for the medication on date, given
// the logs already stored for that date. Pure: existing logs are never
// mutated or removed, and a slot that already has a log yields nothing.
func Plan(medication *db.Medication, date db.Date, existing []*db.DoseLog, now time.Time) []*db.DoseLog {
	existingTimes := make(map[db.TimeOfDay]struct{}, len(existing))
	for _, log := range existing {
		if log.IDMedication == medication.ID {
			existingTimes[log.ScheduledTime] = struct{}{}
		}
	}

	var plan []*db.DoseLog

	for _, t := range DoseTimes(medication, date) {
		if _, ok := existingTimes[t]; ok {
			continue
		}

		plan = append(plan, &db.DoseLog{
			ID:            uuid.New(),
			IDMedication:  medication.ID,
			ScheduledDate: date,
			ScheduledTime: t,
			Status:        db.DoseLogPending,
			CreatedAt:     now,
		})
	}

	return plan
}

// Materializer turns derived dose times into stored dose logs, exactly once
// per slot
type Materializer struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewMaterializer for the given store
func NewMaterializer(store Store, logger *zap.Logger) *Materializer {
	return &Materializer{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// MaterializeDay ensures one pending log exists per derived dose time for
// the medication on date. Idempotent; a partial failure leaves a retryable
// state since the next pass inserts only what is still absent.
func (m *Materializer) MaterializeDay(medication *db.Medication, date db.Date) (int, error) {
	existing, err := m.store.ListDoseLogsForMedicationDate(medication.ID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to list dose logs for medication %s on %s: %w", medication.ID, date, err)
	}

	inserted := 0

	for _, log := range Plan(medication, date, existing, m.now()) {
		ok, err := m.store.InsertDoseLogIfAbsent(log)
		if err != nil {
			return inserted, fmt.Errorf(
				"failed to insert dose log for medication %s at %s %s: %w",
				medication.ID,
				log.ScheduledDate,
				log.ScheduledTime,
				err,
			)
		}

		if ok {
			inserted++
		}
	}

	if inserted > 0 {
		m.logger.Debug(
			"materialized dose logs",
			zap.String("medication_id", medication.ID.String()),
			zap.String("date", date.String()),
			zap.Int("inserted", inserted),
		)
	}

	return inserted, nil
}

// Resynchronize drops every log the medication owns and regenerates today's.
// Used when an edit changes the dosing shape, so stale slots cannot linger.
// Destructive by contract: taken history for the medication is discarded.
func (m *Materializer) Resynchronize(medication *db.Medication, today db.Date) (int, error) {
	err := m.store.DeleteDoseLogsForMedication(medication.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete dose logs for medication %s: %w", medication.ID, err)
	}

	m.logger.Info(
		"resynchronized dose logs after dosing shape change",
		zap.String("medication_id", medication.ID.String()),
	)

	return m.MaterializeDay(medication, today)
}
