package schedule

import (
	"fmt"
	"time"

	"git.0xdad.com/tblyler/dosetrack/db"
)

// State is the display state of a dose log relative to the clock. It is
// recomputed on every read and never stored, so threshold changes never need
// a data migration.
type State string

// State values
const (
	// StateUpcoming means the dose is pending and its time has not arrived
	StateUpcoming State = "upcoming"
	// StateDue means the dose is pending and inside the grace window
	StateDue State = "due"
	// StateMissed means the dose is still pending past the grace window
	StateMissed State = "missed"
	// StateTakenOnTime means the dose was taken inside the schedule window
	StateTakenOnTime State = "taken_on_time"
	// StateTakenOffSchedule means the dose was taken but outside the window
	StateTakenOffSchedule State = "taken_off_schedule"
	// StateSkipped means the user deliberately skipped the dose
	StateSkipped State = "skipped"
)

const (
	// a dose taken up to this long before its slot still counts as on time
	earlyWindow = 2 * time.Hour
	// a dose taken or pending up to this long after its slot is on time /
	// still due; past it, pending doses are missed
	lateWindow = time.Hour
)

// Classification pairs a state with a human-readable relative-time detail
type Classification struct {
	State  State
	Detail string
}

// Classify a dose log against now. The scheduled instant is the log's date
// and time read as wall clock in now's location. Window boundaries are
// inclusive: taken exactly 1h late or 2h early is still on time, and a
// pending dose exactly 1h late is due, not missed.
func Classify(log *db.DoseLog, now time.Time) Classification {
	scheduled := log.ScheduledAt(now.Location())

	switch log.Status {
	case db.DoseLogTaken:
		takenAt := now
		if log.TakenAt != nil {
			takenAt = *log.TakenAt
		}

		delta := takenAt.Sub(scheduled)
		if delta < -earlyWindow || delta > lateWindow {
			return Classification{
				State:  StateTakenOffSchedule,
				Detail: fmt.Sprintf("taken %s", offsetDetail(delta)),
			}
		}

		return Classification{
			State:  StateTakenOnTime,
			Detail: fmt.Sprintf("taken %s", offsetDetail(delta)),
		}

	case db.DoseLogSkipped:
		return Classification{State: StateSkipped, Detail: "skipped"}
	}

	elapsed := now.Sub(scheduled)
	if elapsed > lateWindow {
		return Classification{
			State:  StateMissed,
			Detail: fmt.Sprintf("due %s ago", formatDuration(elapsed)),
		}
	}

	if elapsed >= 0 {
		return Classification{
			State:  StateDue,
			Detail: fmt.Sprintf("due %s ago", formatDuration(elapsed)),
		}
	}

	return Classification{
		State:  StateUpcoming,
		Detail: fmt.Sprintf("due in %s", formatDuration(-elapsed)),
	}
}

func offsetDetail(delta time.Duration) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("%s late", formatDuration(delta))

	case delta < 0:
		return fmt.Sprintf("%s early", formatDuration(-delta))
	}

	return "on time"
}

// formatDuration renders a duration as compact hours and minutes, rounding
// to the nearest minute.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)

	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60

	if hours == 0 && minutes == 0 {
		return "0m"
	}

	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}

	return fmt.Sprintf("%dh%02dm", hours, minutes)
}
