package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/castrove/castrove/internal/castrove"
)

// parseCadence normalizes the cadence field of a command payload into the
// stored representation. Accepted forms:
//
//	{"interval_minutes": 240}
//	{"interval": "4h"}                       Go duration string
//	{"slots": [{"weekday": "saturday", "hour": 9}, ...]}
//	"4h" / "every 4 hours" / "hourly"
//	"daily at 15" / "weekends at 10" / "weekdays at 7"
//
// Only the normalized Cadence is ever stored.
func parseCadence(raw any) (castrove.Cadence, error) {
	switch v := raw.(type) {
	case nil:
		return castrove.Cadence{}, &castrove.ValidationError{Field: "cadence", Reason: "cadence is missing"}
	case string:
		return parseCadencePhrase(v)
	case map[string]any:
		return parseCadenceObject(v)
	default:
		return castrove.Cadence{}, &castrove.ValidationError{Field: "cadence", Reason: fmt.Sprintf("unsupported cadence form %T", raw)}
	}
}

func parseCadenceObject(obj map[string]any) (castrove.Cadence, error) {
	var c castrove.Cadence

	if v, ok := obj["interval_minutes"]; ok {
		minutes, err := asInt(v)
		if err != nil || minutes <= 0 {
			return c, &castrove.ValidationError{Field: "cadence.interval_minutes", Reason: "interval must be a positive number of minutes"}
		}
		c.IntervalMinutes = minutes
	}

	if v, ok := obj["interval"].(string); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < time.Minute {
			return c, &castrove.ValidationError{Field: "cadence.interval", Reason: fmt.Sprintf("cannot parse interval %q", v)}
		}
		c.IntervalMinutes = int(d / time.Minute)
	}

	if v, ok := obj["slots"]; ok {
		items, ok := v.([]any)
		if !ok {
			return c, &castrove.ValidationError{Field: "cadence.slots", Reason: "slots must be a list"}
		}
		for _, item := range items {
			slotObj, ok := item.(map[string]any)
			if !ok {
				return c, &castrove.ValidationError{Field: "cadence.slots", Reason: "each slot must be an object"}
			}
			slot, err := parseSlot(slotObj)
			if err != nil {
				return c, err
			}
			c.Slots = append(c.Slots, slot)
		}
	}

	if err := c.Validate(); err != nil {
		return castrove.Cadence{}, err
	}
	return c, nil
}

func parseSlot(obj map[string]any) (castrove.Slot, error) {
	var slot castrove.Slot

	switch wd := obj["weekday"].(type) {
	case string:
		day, ok := weekdayByName(wd)
		if !ok {
			return slot, &castrove.ValidationError{Field: "cadence.slots", Reason: fmt.Sprintf("unknown weekday %q", wd)}
		}
		slot.Weekday = day
	default:
		n, err := asInt(wd)
		if err != nil {
			return slot, &castrove.ValidationError{Field: "cadence.slots", Reason: "slot weekday is missing"}
		}
		slot.Weekday = time.Weekday(n)
	}

	hour, err := asInt(obj["hour"])
	if err != nil {
		return slot, &castrove.ValidationError{Field: "cadence.slots", Reason: "slot hour is missing"}
	}
	slot.Hour = hour
	return slot, nil
}

// parseCadencePhrase handles the natural cadence shorthands the assistant
// layer is allowed to pass through without structuring them itself.
func parseCadencePhrase(phrase string) (castrove.Cadence, error) {
	s := strings.ToLower(strings.TrimSpace(phrase))
	s = strings.TrimPrefix(s, "every ")

	switch s {
	case "hourly":
		return castrove.Cadence{IntervalMinutes: 60}, nil
	case "daily":
		return dailySlots(9), nil
	}

	if day, at, found := strings.Cut(s, " at "); found {
		hour, err := parseHour(at)
		if err != nil {
			return castrove.Cadence{}, &castrove.ValidationError{Field: "cadence", Reason: fmt.Sprintf("cannot parse hour in %q", phrase)}
		}
		switch day {
		case "daily", "day", "every day":
			return dailySlots(hour), nil
		case "weekends", "weekend":
			return slotCadence(hour, time.Saturday, time.Sunday), nil
		case "weekdays", "weekday":
			return slotCadence(hour, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday), nil
		}
		if wd, ok := weekdayByName(strings.TrimSuffix(day, "s")); ok {
			return slotCadence(hour, wd), nil
		}
		return castrove.Cadence{}, &castrove.ValidationError{Field: "cadence", Reason: fmt.Sprintf("cannot parse cadence %q", phrase)}
	}

	// "4 hours", "90 minutes", or a plain Go duration like "4h".
	normalized := strings.NewReplacer(" hours", "h", " hour", "h", " minutes", "m", " minute", "m", " ", "").Replace(s)
	if d, err := time.ParseDuration(normalized); err == nil && d >= time.Minute {
		return castrove.Cadence{IntervalMinutes: int(d / time.Minute)}, nil
	}

	return castrove.Cadence{}, &castrove.ValidationError{Field: "cadence", Reason: fmt.Sprintf("cannot parse cadence %q", phrase)}
}

func dailySlots(hour int) castrove.Cadence {
	return slotCadence(hour, time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday)
}

func slotCadence(hour int, days ...time.Weekday) castrove.Cadence {
	var c castrove.Cadence
	for _, d := range days {
		c.Slots = append(c.Slots, castrove.Slot{Weekday: d, Hour: hour})
	}
	return c
}

func parseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":00")
	if h, err := strconv.Atoi(s); err == nil && h >= 0 && h <= 23 {
		return h, nil
	}
	return 0, fmt.Errorf("bad hour %q", s)
}

func weekdayByName(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
