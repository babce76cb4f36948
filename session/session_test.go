package session

import (
	"testing"
	"time"

	"git.0xdad.com/tblyler/dosetrack/db"
	"git.0xdad.com/tblyler/dosetrack/schedule"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.March, 14, 7, 0, 0, 0, time.UTC)

func testSession(t *testing.T) (*Session, *db.Badger) {
	b, err := db.NewBadger(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	s := New(b, zap.NewNop(), time.UTC)
	s.now = func() time.Time { return testNow }

	return s, b
}

func seedUser(t *testing.T, b *db.Badger) *db.User {
	user := &db.User{
		ID:   uuid.New(),
		Name: "ted",
		PushoverDeviceTokens: map[string]string{
			"default": "token",
		},
		CreatedAt: testNow,
	}

	require.NoError(t, b.AddUser(user))

	return user
}

func seedMedication(t *testing.T, b *db.Badger, user *db.User) *db.Medication {
	medication := &db.Medication{
		IDUser:          user.ID,
		ID:              uuid.New(),
		Name:            "lisinopril",
		Frequency:       2,
		Timing:          db.TimingAfterMeal,
		StartDate:       db.DateOf(testNow),
		DurationDays:    7,
		Active:          true,
		PushoverDevices: []string{"default"},
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}

	require.NoError(t, medication.Validate())
	require.NoError(t, b.AddMedication(medication))

	return medication
}

func TestRefresh(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	medication := seedMedication(t, b, user)

	view, err := s.Refresh(user)
	require.NoError(t, err)
	assert.Equal(t, db.DateOf(testNow), view.Date)
	require.Len(t, view.Medications, 1)

	day := view.Medications[0]
	assert.Equal(t, medication.ID, day.Medication.ID)
	require.Len(t, day.Entries, 2)
	assert.Zero(t, day.Taken)

	// entries ordered by scheduled time, both before their slots at 07:00
	assert.Equal(t, "08:00:00", day.Entries[0].Log.ScheduledTime.String())
	assert.Equal(t, "14:00:00", day.Entries[1].Log.ScheduledTime.String())
	assert.Equal(t, schedule.StateUpcoming, day.Entries[0].State)
	assert.Equal(t, schedule.StateUpcoming, day.Entries[1].State)

	// a second refresh finds the same two logs, no duplicates
	view, err = s.Refresh(user)
	require.NoError(t, err)
	require.Len(t, view.Medications, 1)
	assert.Len(t, view.Medications[0].Entries, 2)
}

func TestRefreshSkipsInactive(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)

	medication := seedMedication(t, b, user)
	medication.Active = false
	require.NoError(t, b.UpdateMedication(medication))

	view, err := s.Refresh(user)
	require.NoError(t, err)
	assert.Empty(t, view.Medications)
}

func TestMarkTaken(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	seedMedication(t, b, user)

	view, err := s.Refresh(user)
	require.NoError(t, err)
	logID := view.Medications[0].Entries[0].Log.ID

	log, err := s.MarkTaken(logID, nil)
	require.NoError(t, err)
	assert.Equal(t, db.DoseLogTaken, log.Status)
	require.NotNil(t, log.TakenAt)
	assert.Equal(t, testNow, *log.TakenAt)

	// the transition is one way
	_, err = s.MarkTaken(logID, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = s.MarkSkipped(logID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	stored, err := b.GetDoseLog(logID)
	require.NoError(t, err)
	assert.Equal(t, db.DoseLogTaken, stored.Status)

	view, err = s.Refresh(user)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Medications[0].Taken)
}

func TestMarkTakenExplicitTimestamp(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	seedMedication(t, b, user)

	view, err := s.Refresh(user)
	require.NoError(t, err)
	logID := view.Medications[0].Entries[0].Log.ID

	takenAt := testNow.Add(90 * time.Minute)
	log, err := s.MarkTaken(logID, &takenAt)
	require.NoError(t, err)
	require.NotNil(t, log.TakenAt)
	assert.Equal(t, takenAt, *log.TakenAt)
}

func TestMarkTakenUnknownLog(t *testing.T) {
	s, _ := testSession(t)

	_, err := s.MarkTaken(uuid.New(), nil)
	assert.ErrorIs(t, err, db.ErrDoseLogNotFound)
}

func TestMarkSkipped(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	seedMedication(t, b, user)

	view, err := s.Refresh(user)
	require.NoError(t, err)
	logID := view.Medications[0].Entries[1].Log.ID

	log, err := s.MarkSkipped(logID)
	require.NoError(t, err)
	assert.Equal(t, db.DoseLogSkipped, log.Status)
	assert.Nil(t, log.TakenAt)
}

func TestUpdateMedicationShapeChangeDiscardsHistory(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	medication := seedMedication(t, b, user)

	view, err := s.Refresh(user)
	require.NoError(t, err)
	_, err = s.MarkTaken(view.Medications[0].Entries[0].Log.ID, nil)
	require.NoError(t, err)

	edited := *medication
	edited.Frequency = 3

	require.NoError(t, s.UpdateMedication(&edited))

	logs, err := b.ListDoseLogsForMedication(medication.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	for _, log := range logs {
		assert.Equal(t, db.DoseLogPending, log.Status, "taken history is discarded on shape change")
	}
}

func TestUpdateMedicationSameShapeKeepsLogs(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	medication := seedMedication(t, b, user)

	view, err := s.Refresh(user)
	require.NoError(t, err)
	takenID := view.Medications[0].Entries[0].Log.ID
	_, err = s.MarkTaken(takenID, nil)
	require.NoError(t, err)

	edited := *medication
	edited.Name = "lisinopril 20mg"

	require.NoError(t, s.UpdateMedication(&edited))

	stored, err := b.GetDoseLog(takenID)
	require.NoError(t, err)
	assert.Equal(t, db.DoseLogTaken, stored.Status)
}

func TestUpdateMedicationRejectsInvalid(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	medication := seedMedication(t, b, user)

	edited := *medication
	edited.Frequency = 0

	assert.ErrorIs(t, s.UpdateMedication(&edited), db.ErrInvalidMedication)

	unknown := *medication
	unknown.ID = uuid.New()
	assert.Error(t, s.UpdateMedication(&unknown))
}

func TestPlanReminders(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	medication := seedMedication(t, b, user)

	reminders, err := s.PlanReminders(user)
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	// the 08:00 dose is less than an hour out: fire time clamps to now
	assert.Equal(t, testNow, reminders[0].FireAt)
	assert.Equal(t, testNow.Add(6*time.Hour), reminders[1].FireAt)
	assert.Equal(t, medication.Name, reminders[0].Title)
	assert.Equal(t, "default", reminders[0].Channel)

	// deterministic ids across plans
	again, err := s.PlanReminders(user)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, reminders[0].ID, again[0].ID)
	assert.Equal(t, reminders[1].ID, again[1].ID)
}

func TestPlanRemindersSkipsPastDoses(t *testing.T) {
	s, b := testSession(t)
	user := seedUser(t, b)
	seedMedication(t, b, user)

	s.now = func() time.Time { return testNow.Add(8 * time.Hour) } // 15:00

	reminders, err := s.PlanReminders(user)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}
