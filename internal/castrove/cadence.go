package castrove

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Slot is a single weekday+hour window in a slot-based cadence.
type Slot struct {
	Weekday time.Weekday `json:"weekday" yaml:"weekday"`
	Hour    int          `json:"hour" yaml:"hour"`
}

// Cadence determines when a workflow becomes due. Exactly one form is set:
// a fixed interval in minutes, or a set of weekday+hour slots.
type Cadence struct {
	IntervalMinutes int    `json:"interval_minutes,omitempty" yaml:"interval_minutes,omitempty"`
	Slots           []Slot `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// IsZero reports whether no cadence has been configured.
func (c Cadence) IsZero() bool {
	return c.IntervalMinutes == 0 && len(c.Slots) == 0
}

// Interval returns the fixed interval as a duration. Zero for slot cadences.
func (c Cadence) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Validate checks that exactly one cadence form is configured and that its
// values are in range.
func (c Cadence) Validate() error {
	if c.IsZero() {
		return &ValidationError{Field: "cadence", Reason: "cadence is empty"}
	}
	if c.IntervalMinutes != 0 && len(c.Slots) != 0 {
		return &ValidationError{Field: "cadence", Reason: "interval and slots are mutually exclusive"}
	}
	if c.IntervalMinutes < 0 {
		return &ValidationError{Field: "cadence.interval_minutes", Reason: "interval must be positive"}
	}
	seen := make(map[Slot]bool, len(c.Slots))
	for _, slot := range c.Slots {
		if slot.Hour < 0 || slot.Hour > 23 {
			return &ValidationError{Field: "cadence.slots", Reason: fmt.Sprintf("hour %d out of range", slot.Hour)}
		}
		if slot.Weekday < time.Sunday || slot.Weekday > time.Saturday {
			return &ValidationError{Field: "cadence.slots", Reason: fmt.Sprintf("weekday %d out of range", slot.Weekday)}
		}
		if seen[slot] {
			return &ValidationError{Field: "cadence.slots", Reason: fmt.Sprintf("duplicate slot %s %02d:00", slot.Weekday, slot.Hour)}
		}
		seen[slot] = true
	}
	return nil
}

// NextDue computes the next moment the workflow is due.
//
// Fixed interval: lastRun + interval, or now when no run has happened yet.
// Slots: the start of the next slot occurrence strictly after lastRun, so a
// slot fires at most once per occurrence. With no prior run, the current hour
// counts when it matches a slot.
func (c Cadence) NextDue(lastRun *time.Time, now time.Time) time.Time {
	if c.IntervalMinutes > 0 {
		if lastRun == nil {
			return now
		}
		return lastRun.Add(c.Interval())
	}

	if lastRun == nil {
		if c.SlotKeyAt(now) != "" {
			return hourStart(now)
		}
		return c.nextSlotStart(now)
	}
	return c.nextSlotStart(*lastRun)
}

// hourStart returns the wall-clock hour boundary containing t. Truncate
// rounds on absolute time and lands off the hour in fractional-offset zones.
func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// SlotKeyAt returns the identity of the slot occurrence containing t, or ""
// when t does not fall inside any configured slot. Two runs with the same
// non-empty slot key belong to the same occurrence.
func (c Cadence) SlotKeyAt(t time.Time) string {
	for _, slot := range c.Slots {
		if t.Weekday() == slot.Weekday && t.Hour() == slot.Hour {
			return t.Format("2006-01-02T15")
		}
	}
	return ""
}

// nextSlotStart returns the earliest slot start strictly after t, using
// robfig/cron to walk each slot's "minute hour * * weekday" schedule.
func (c Cadence) nextSlotStart(t time.Time) time.Time {
	var next time.Time
	for _, slot := range c.Slots {
		sched, err := slotSchedule(slot)
		if err != nil {
			continue // Validate rejects unparseable slots up front
		}
		n := sched.Next(t)
		if next.IsZero() || n.Before(next) {
			next = n
		}
	}
	return next
}

var slotParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func slotSchedule(slot Slot) (cron.Schedule, error) {
	return slotParser.Parse(fmt.Sprintf("0 %d * * %d", slot.Hour, int(slot.Weekday)))
}
