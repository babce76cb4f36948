package schedule

import (
	"testing"
	"time"

	"git.0xdad.com/tblyler/dosetrack/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMaterializer(t *testing.T) (*Materializer, *db.Badger) {
	b, err := db.NewBadger(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	return NewMaterializer(b, zap.NewNop()), b
}

func TestPlanSkipsExistingSlots(t *testing.T) {
	medication := testMedication()
	date := medication.StartDate
	now := time.Now()

	plan := Plan(medication, date, nil, now)
	require.Len(t, plan, 2)
	assert.Equal(t, "08:00:00", plan[0].ScheduledTime.String())
	assert.Equal(t, db.DoseLogPending, plan[0].Status)
	assert.Nil(t, plan[0].TakenAt)

	// the 08:00 slot already has a log; only 14:00 is owed
	plan = Plan(medication, date, plan[:1], now)
	require.Len(t, plan, 1)
	assert.Equal(t, "14:00:00", plan[0].ScheduledTime.String())

	// other medications' logs don't count against this one's slots
	other := testMedication()
	foreign := Plan(other, date, nil, now)
	plan = Plan(medication, date, foreign, now)
	assert.Len(t, plan, 2)
}

func TestMaterializeDayIdempotent(t *testing.T) {
	m, b := testMaterializer(t)
	medication := testMedication()
	date := medication.StartDate

	inserted, err := m.MaterializeDay(medication, date)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = m.MaterializeDay(medication, date)
	require.NoError(t, err)
	assert.Zero(t, inserted, "second pass must insert nothing")

	logs, err := b.ListDoseLogsForMedicationDate(medication.ID, date)
	require.NoError(t, err)
	assert.Len(t, logs, medication.Frequency)
}

func TestMaterializeDayPreservesResolvedLogs(t *testing.T) {
	m, b := testMaterializer(t)
	medication := testMedication()
	date := medication.StartDate

	_, err := m.MaterializeDay(medication, date)
	require.NoError(t, err)

	logs, err := b.ListDoseLogsForMedicationDate(medication.ID, date)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	takenAt := time.Now()
	logs[0].Status = db.DoseLogTaken
	logs[0].TakenAt = &takenAt
	require.NoError(t, b.UpdateDoseLog(logs[0]))

	_, err = m.MaterializeDay(medication, date)
	require.NoError(t, err)

	logs, err = b.ListDoseLogsForMedicationDate(medication.ID, date)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, db.DoseLogTaken, logs[0].Status, "materialization must not touch resolved logs")
}

func TestMaterializeDayOutsideWindow(t *testing.T) {
	m, _ := testMaterializer(t)
	medication := testMedication()

	inserted, err := m.MaterializeDay(medication, medication.StartDate.AddDays(-1))
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestResynchronizeDiscardsHistory(t *testing.T) {
	m, b := testMaterializer(t)
	medication := testMedication()
	date := medication.StartDate

	_, err := m.MaterializeDay(medication, date)
	require.NoError(t, err)

	logs, err := b.ListDoseLogsForMedicationDate(medication.ID, date)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	takenAt := time.Now()
	logs[0].Status = db.DoseLogTaken
	logs[0].TakenAt = &takenAt
	require.NoError(t, b.UpdateDoseLog(logs[0]))

	// deleting alone leaves zero logs: taken history goes with them
	require.NoError(t, b.DeleteDoseLogsForMedication(medication.ID))
	logs, err = b.ListDoseLogsForMedication(medication.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	// a full resync after a shape change regenerates today's slots fresh
	medication.Frequency = 3
	_, err = m.Resynchronize(medication, date)
	require.NoError(t, err)

	logs, err = b.ListDoseLogsForMedicationDate(medication.ID, date)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	for _, log := range logs {
		assert.Equal(t, db.DoseLogPending, log.Status)
		assert.Nil(t, log.TakenAt)
	}
}
