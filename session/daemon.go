package session

import (
	"fmt"
	"sync"
	"time"

	"git.0xdad.com/tblyler/dosetrack/db"
	"git.0xdad.com/tblyler/dosetrack/notify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// UserLister enumerates the users the daemon serves
type UserLister interface {
	ListUsers() ([]*db.User, error)
}

// Daemon drives the session on recurring triggers: a midnight rollover that
// re-materializes every user's dose logs for the new date, and a minute tick
// that dispatches due reminders. Both passes are idempotent, so skipped or
// late ticks cost nothing.
type Daemon struct {
	session *Session
	users   UserLister
	sender  notify.Sender
	cron    *cron.Cron
	logger  *zap.Logger

	mu   sync.Mutex
	sent map[uuid.UUID]time.Time
}

// NewDaemon over the given session
func NewDaemon(session *Session, users UserLister, sender notify.Sender, logger *zap.Logger) *Daemon {
	return &Daemon{
		session: session,
		users:   users,
		sender:  sender,
		cron:    cron.New(cron.WithLocation(session.loc)),
		logger:  logger,
		sent:    make(map[uuid.UUID]time.Time),
	}
}

// Start the cron triggers. Runs one rollover pass immediately so a daemon
// started mid-day has today's logs before the first midnight.
func (d *Daemon) Start() error {
	_, err := d.cron.AddFunc("@midnight", d.rollover)
	if err != nil {
		return fmt.Errorf("failed to schedule rollover: %w", err)
	}

	_, err = d.cron.AddFunc("@every 1m", d.dispatch)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder dispatch: %w", err)
	}

	d.rollover()
	d.cron.Start()

	d.logger.Info("daemon started")

	return nil
}

// Stop the triggers and wait for any running pass to finish
func (d *Daemon) Stop() {
	<-d.cron.Stop().Done()
	d.logger.Info("daemon stopped")
}

// rollover refreshes every user so the new date's logs exist. Errors are
// logged and the pass moves on; the next trigger retries.
func (d *Daemon) rollover() {
	users, err := d.users.ListUsers()
	if err != nil {
		d.logger.Error("rollover failed to list users", zap.Error(err))
		return
	}

	for _, user := range users {
		_, err := d.session.Refresh(user)
		if err != nil {
			d.logger.Error(
				"rollover failed for user",
				zap.String("user", user.Name),
				zap.Error(err),
			)
		}
	}
}

// dispatch sends every reminder whose fire time has arrived, at most once
// per reminder id.
func (d *Daemon) dispatch() {
	users, err := d.users.ListUsers()
	if err != nil {
		d.logger.Error("dispatch failed to list users", zap.Error(err))
		return
	}

	now := d.session.now().In(d.session.loc)

	for _, user := range users {
		reminders, err := d.session.PlanReminders(user)
		if err != nil {
			d.logger.Error(
				"dispatch failed to plan reminders",
				zap.String("user", user.Name),
				zap.Error(err),
			)

			continue
		}

		for _, reminder := range reminders {
			if reminder.FireAt.After(now) {
				break
			}

			if !d.markSent(reminder.ID, now) {
				continue
			}

			token, ok := user.PushoverDeviceTokens[reminder.Channel]
			if !ok {
				d.logger.Warn(
					"reminder channel has no device token",
					zap.String("user", user.Name),
					zap.String("channel", reminder.Channel),
				)

				continue
			}

			err := d.sender.Send(reminder, token)
			if err != nil {
				d.logger.Error(
					"failed to send reminder",
					zap.String("reminder_id", reminder.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	d.pruneSent(now)
}

// markSent records the reminder id; false when it was already sent
func (d *Daemon) markSent(id uuid.UUID, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sent[id]; ok {
		return false
	}

	d.sent[id] = now

	return true
}

// pruneSent drops dedupe entries older than a day; their reminders can no
// longer replan
func (d *Daemon) pruneSent(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, at := range d.sent {
		if now.Sub(at) > 24*time.Hour {
			delete(d.sent, id)
		}
	}
}
