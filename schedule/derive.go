// Package schedule holds the dose-scheduling core: deriving dose times from
// a medication's dosing rule, materializing them as dose logs exactly once,
// and classifying a log against the clock. Everything except the
// Materializer's storage calls is pure.
package schedule

import (
	"math"

	"git.0xdad.com/tblyler/dosetrack/db"
)

// canonical meal-aligned slots, truncated to the medication's frequency
var fixedSlots = [...]db.TimeOfDay{
	{Hour: 8},
	{Hour: 14},
	{Hour: 20},
}

// interval dosing starts the day at 08:00
const intervalStartHour = 8

// DoseTimes derives the ordered wall-clock dose times the medication owes on
// the given date. Empty when the medication is inactive or the date is
// outside its validity window. Pure and deterministic, which is what lets
// materialization run on every trigger without bookkeeping.
func DoseTimes(medication *db.Medication, date db.Date) []db.TimeOfDay {
	if !medication.Active || !medication.InWindow(date) {
		return nil
	}

	switch medication.SpecKind() {
	case db.DoseSpecCustom:
		times := make([]db.TimeOfDay, len(medication.DoseTimes))
		copy(times, medication.DoseTimes)

		return times

	case db.DoseSpecFixedSlots:
		return append([]db.TimeOfDay(nil), fixedSlots[:medication.Frequency]...)

	default:
		return intervalTimes(medication.Frequency, medication.EffectiveIntervalHours())
	}
}

// intervalTimes spaces doses every intervalHours from the start hour,
// rounding fractional hours to the nearest minute.
func intervalTimes(frequency int, intervalHours float64) []db.TimeOfDay {
	times := make([]db.TimeOfDay, 0, frequency)

	for i := 0; i < frequency; i++ {
		totalMinutes := int(math.Round((intervalStartHour + float64(i)*intervalHours) * 60))

		times = append(times, db.TimeOfDay{
			Hour:   totalMinutes / 60,
			Minute: totalMinutes % 60,
		})
	}

	return times
}
