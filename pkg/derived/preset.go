package derived

import (
	"time"

	"github.com/solixsync/solixsync/pkg/types"
)

// ResolveActivePreset locates the schedule slot containing the reference
// time, adjusted to site-local time by the stored UTC offset, and returns
// the effective preset. The boolean is false when no slot matches; callers
// then fall back to zero presets.
//
// Slot intervals are [start, end); an end of "24:00" includes the final
// minute of the day. For generation >= 2, the rate plan is chosen from the
// device's usage mode, weekday matching uses 0 = Sunday, and candidate
// day-groups are searched in list order with the first containing the
// current weekday winning.
func ResolveActivePreset(sch types.Schedule, generation, usageMode int, now time.Time, utcOffsetSec int) (types.Preset, bool) {
	ref := now.UTC().Add(time.Duration(utcOffsetSec) * time.Second)
	minutes := ref.Hour()*60 + ref.Minute()

	if generation < 2 {
		for _, slot := range sch.Slots {
			if slotContains(slot.Start, slot.End, minutes) {
				return types.Preset{
					OutputPower:         float64(slot.ApplianceLoad),
					AllowExport:         slot.AllowExport,
					ChargePriorityLimit: float64(slot.ChargePriorityLimit),
					DischargePriority:   slot.DischargePriority,
					SlotStart:           slot.Start,
					SlotEnd:             slot.End,
				}, true
			}
		}
		return types.Preset{}, false
	}

	weekday := int(ref.Weekday())
	planName := types.RatePlanNameForMode(usageMode)
	for _, plan := range sch.RatePlans {
		if plan.Name != planName {
			continue
		}
		for _, dr := range plan.Ranges {
			if !containsWeekday(dr.Weekdays, weekday) {
				continue
			}
			for _, slot := range dr.Slots {
				if slotContains(slot.Start, slot.End, minutes) {
					return types.Preset{
						OutputPower: float64(slot.Power),
						SlotStart:   slot.Start,
						SlotEnd:     slot.End,
					}, true
				}
			}
			// First day-group containing the weekday wins even when none of
			// its slots match the current time.
			return types.Preset{}, false
		}
	}
	return types.Preset{}, false
}

func slotContains(start, end types.DayTime, minutes int) bool {
	return minutes >= start.Minutes() && minutes < end.Minutes()
}

func containsWeekday(days []int, weekday int) bool {
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}
