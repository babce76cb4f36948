package notify

import (
	"fmt"

	"github.com/gregdel/pushover"
	"go.uber.org/zap"
)

// Pushover delivers reminders through the pushover API
type Pushover struct {
	app    *pushover.Pushover
	logger *zap.Logger
}

// NewPushover sender with the given application API token
func NewPushover(apiToken string, logger *zap.Logger) *Pushover {
	return &Pushover{
		app:    pushover.New(apiToken),
		logger: logger,
	}
}

// Send the reminder to the device token
func (p *Pushover) Send(reminder Reminder, deviceToken string) error {
	message := pushover.NewMessageWithTitle(reminder.Body, reminder.Title)
	message.Timestamp = reminder.FireAt.Unix()

	_, err := p.app.SendMessage(message, pushover.NewRecipient(deviceToken))
	if err != nil {
		return fmt.Errorf("failed to send pushover reminder %s: %w", reminder.ID, err)
	}

	p.logger.Debug(
		"sent reminder",
		zap.String("reminder_id", reminder.ID.String()),
		zap.String("channel", reminder.Channel),
	)

	return nil
}
