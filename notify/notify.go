// Package notify is the outbound reminder boundary: the core hands over a
// list of scheduled reminders and never hears back.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is one scheduled dose nudge. ID is deterministic for a given
// (medication, dose instant, channel) so re-planning the same reminder
// produces the same ID and dispatchers can deduplicate.
type Reminder struct {
	ID      uuid.UUID
	Title   string
	Body    string
	FireAt  time.Time
	Channel string
}

// ReminderID derives the deterministic ID for a reminder slot
func ReminderID(medicationID uuid.UUID, fireAt time.Time, channel string) uuid.UUID {
	name := append(medicationID[:], []byte(fireAt.UTC().Format(time.RFC3339))...)
	name = append(name, []byte(channel)...)

	return uuid.NewSHA1(uuid.NameSpaceOID, name)
}

// Sender delivers a reminder to one device. Best effort: failures are for
// the caller to log, not retry.
type Sender interface {
	Send(reminder Reminder, deviceToken string) error
}
