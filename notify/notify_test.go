package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReminderIDDeterministic(t *testing.T) {
	medicationID := uuid.New()
	fireAt := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)

	first := ReminderID(medicationID, fireAt, "default")
	assert.Equal(t, first, ReminderID(medicationID, fireAt, "default"))

	assert.NotEqual(t, first, ReminderID(medicationID, fireAt, "watch"))
	assert.NotEqual(t, first, ReminderID(medicationID, fireAt.Add(time.Hour), "default"))
	assert.NotEqual(t, first, ReminderID(uuid.New(), fireAt, "default"))
}
