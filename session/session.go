// Package session orchestrates the scheduling core against storage: it
// refreshes today's dose logs on every trigger, exposes the classified today
// view, and owns the only state transitions a dose log can make.
package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"git.0xdad.com/tblyler/dosetrack/db"
	"git.0xdad.com/tblyler/dosetrack/notify"
	"git.0xdad.com/tblyler/dosetrack/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyResolved occurs when marking a dose log that is no longer
// pending. Benign: the caller surfaces it and nothing changes.
var ErrAlreadyResolved = errors.New("dose log is no longer pending")

// reminders fire this long before the dose instant
const reminderLead = time.Hour

// Store is the storage surface the session consumes. *db.Badger satisfies it.
type Store interface {
	schedule.Store

	ListMedicationsForUser(user *db.User) ([]*db.Medication, error)
	GetMedication(userID uuid.UUID, medicationID uuid.UUID) (*db.Medication, error)
	UpdateMedication(medication *db.Medication) error
	GetDoseLog(id uuid.UUID) (*db.DoseLog, error)
	UpdateDoseLog(log *db.DoseLog) error
}

// Entry is one dose log with its classification for display
type Entry struct {
	Log    *db.DoseLog
	State  schedule.State
	Detail string
}

// MedicationDay groups one medication's entries for the day, ordered by
// scheduled time, with a running adherence count
type MedicationDay struct {
	Medication *db.Medication
	Entries    []Entry
	Taken      int
}

// TodayView is the UI-facing result of a refresh
type TodayView struct {
	Date        db.Date
	Medications []MedicationDay
}

// Session ties the deriver, materializer and classifier to one storage
// handle. All time math happens in loc's wall clock.
type Session struct {
	store        Store
	materializer *schedule.Materializer
	logger       *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

// New session over the given store
func New(store Store, logger *zap.Logger, loc *time.Location) *Session {
	if loc == nil {
		loc = time.Local
	}

	return &Session{
		store:        store,
		materializer: schedule.NewMaterializer(store, logger),
		logger:       logger,
		loc:          loc,
		now:          time.Now,
	}
}

// Refresh materializes today's dose logs for every active medication the
// user owns and returns the classified today view. Safe to call on every
// trigger; a redundant call inserts nothing.
func (s *Session) Refresh(user *db.User) (*TodayView, error) {
	now := s.now().In(s.loc)
	today := db.DateOf(now)

	medications, err := s.store.ListMedicationsForUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications for user %s: %w", user.Name, err)
	}

	view := &TodayView{Date: today}

	for _, medication := range medications {
		if !medication.Active {
			continue
		}

		_, err := s.materializer.MaterializeDay(medication, today)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize %s for %s: %w", medication.Name, today, err)
		}

		logs, err := s.store.ListDoseLogsForMedicationDate(medication.ID, today)
		if err != nil {
			return nil, fmt.Errorf("failed to list dose logs for %s on %s: %w", medication.Name, today, err)
		}

		if len(logs) == 0 {
			continue
		}

		sort.Slice(logs, func(i, j int) bool {
			return logs[i].ScheduledTime.Before(logs[j].ScheduledTime)
		})

		day := MedicationDay{Medication: medication}

		for _, log := range logs {
			classification := schedule.Classify(log, now)

			day.Entries = append(day.Entries, Entry{
				Log:    log,
				State:  classification.State,
				Detail: classification.Detail,
			})

			if log.Status == db.DoseLogTaken {
				day.Taken++
			}
		}

		view.Medications = append(view.Medications, day)
	}

	sort.Slice(view.Medications, func(i, j int) bool {
		return view.Medications[i].Medication.Name < view.Medications[j].Medication.Name
	})

	return view, nil
}

// MarkTaken transitions a pending dose log to taken. takenAt defaults to
// now. ErrAlreadyResolved when the log is already taken or skipped; nothing
// is written in that case.
func (s *Session) MarkTaken(logID uuid.UUID, takenAt *time.Time) (*db.DoseLog, error) {
	return s.resolve(logID, db.DoseLogTaken, takenAt)
}

// MarkSkipped transitions a pending dose log to skipped
func (s *Session) MarkSkipped(logID uuid.UUID) (*db.DoseLog, error) {
	return s.resolve(logID, db.DoseLogSkipped, nil)
}

func (s *Session) resolve(logID uuid.UUID, status db.DoseLogStatus, takenAt *time.Time) (*db.DoseLog, error) {
	log, err := s.store.GetDoseLog(logID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dose log %s: %w", logID, err)
	}

	if log.Status != db.DoseLogPending {
		return nil, fmt.Errorf("dose log %s is %s: %w", logID, log.Status, ErrAlreadyResolved)
	}

	log.Status = status

	if status == db.DoseLogTaken {
		if takenAt == nil {
			now := s.now().In(s.loc)
			takenAt = &now
		}

		log.TakenAt = takenAt
	}

	err = s.store.UpdateDoseLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to update dose log %s: %w", logID, err)
	}

	s.logger.Info(
		"resolved dose log",
		zap.String("dose_log_id", logID.String()),
		zap.String("status", string(status)),
	)

	return log, nil
}

// UpdateMedication validates and persists an edited dosing rule. When the
// edit changes the dosing shape (frequency or custom-time count), all of the
// medication's logs are dropped and today's regenerated; taken history for
// that medication is lost by design. Non-shape edits leave logs alone.
func (s *Session) UpdateMedication(updated *db.Medication) error {
	err := updated.Validate()
	if err != nil {
		return err
	}

	current, err := s.store.GetMedication(updated.IDUser, updated.ID)
	if err != nil {
		return fmt.Errorf("failed to get medication %s: %w", updated.ID, err)
	}

	if current == nil {
		return fmt.Errorf("medication %s does not exist for user %s", updated.ID, updated.IDUser)
	}

	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.now().In(s.loc)

	err = s.store.UpdateMedication(updated)
	if err != nil {
		return fmt.Errorf("failed to update medication %s: %w", updated.ID, err)
	}

	if current.SameShape(updated) {
		return nil
	}

	_, err = s.materializer.Resynchronize(updated, db.DateOf(s.now().In(s.loc)))
	if err != nil {
		return fmt.Errorf("failed to resynchronize dose logs for %s: %w", updated.Name, err)
	}

	return nil
}

// PlanReminders returns the reminders owed for the user's future dose
// instants today: one per (dose instant, channel), firing an hour before the
// dose, clamped to now when the dose is less than an hour out. Doses already
// past emit nothing.
func (s *Session) PlanReminders(user *db.User) ([]notify.Reminder, error) {
	now := s.now().In(s.loc)
	today := db.DateOf(now)

	medications, err := s.store.ListMedicationsForUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications for user %s: %w", user.Name, err)
	}

	var reminders []notify.Reminder

	for _, medication := range medications {
		for _, t := range schedule.DoseTimes(medication, today) {
			instant := t.At(today, s.loc)
			if !instant.After(now) {
				continue
			}

			fireAt := instant.Add(-reminderLead)
			if fireAt.Before(now) {
				fireAt = now
			}

			for _, channel := range medication.PushoverDevices {
				reminders = append(reminders, notify.Reminder{
					ID:      notify.ReminderID(medication.ID, instant, channel),
					Title:   medication.Name,
					Body:    fmt.Sprintf("%s is due at %s", medication.Name, t),
					FireAt:  fireAt,
					Channel: channel,
				})
			}
		}
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].FireAt.Before(reminders[j].FireAt)
	})

	return reminders, nil
}
