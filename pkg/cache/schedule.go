package cache

import (
	"fmt"

	"github.com/solixsync/solixsync/pkg/types"
)

// Wire keys of the generation >= 2 rate plan lists inside a schedule
// payload. Each maps to a plan list of {index, week, ranges} objects.
var ratePlanKeys = []string{
	"custom_rate_plan",
	"blend_plan",
	"use_time",
	"smart_plan",
	"time_slot",
}

// ParseSchedule decodes a schedule payload into its typed form. Both wire
// shapes are handled: the first-generation flat slot list under "ranges"
// and the newer named rate plan lists. The second return value is the usage
// mode embedded in the payload, 0 when absent.
func ParseSchedule(m map[string]any) (*types.Schedule, int, error) {
	sch := &types.Schedule{
		MinLoad: types.GetInt(m, 0, "min_load"),
		MaxLoad: types.GetInt(m, 0, "max_load"),
	}
	mode := types.GetInt(m, 0, "mode_type")
	if mode == 0 {
		mode = types.GetInt(m, 0, "mode")
	}

	if ranges := types.GetSlice(m, "ranges"); ranges != nil {
		slots, err := parseTimeSlots(ranges)
		if err != nil {
			return nil, 0, err
		}
		sch.Slots = slots
	}

	for _, name := range ratePlanKeys {
		plans := types.GetSlice(m, name)
		if plans == nil {
			continue
		}
		for _, p := range plans {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			plan := types.RatePlan{
				Index: types.GetInt(pm, 0, "index"),
				Name:  name,
			}
			dr, err := parseDayRanges(pm)
			if err != nil {
				return nil, 0, fmt.Errorf("plan %s: %w", name, err)
			}
			plan.Ranges = dr
			sch.RatePlans = append(sch.RatePlans, plan)
		}
	}
	return sch, mode, nil
}

func parseTimeSlots(ranges []any) ([]types.TimeSlot, error) {
	slots := make([]types.TimeSlot, 0, len(ranges))
	for _, r := range ranges {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		start, err := types.ParseDayTime(types.GetString(rm, "", "start_time"))
		if err != nil {
			return nil, err
		}
		end, err := types.ParseDayTime(types.GetString(rm, "", "end_time"))
		if err != nil {
			return nil, err
		}
		slot := types.TimeSlot{
			Start:               start,
			End:                 end,
			AllowExport:         types.GetBool(rm, false, "turn_on"),
			ChargePriorityLimit: types.GetInt(rm, 0, "charge_priority"),
			DischargePriority:   types.GetInt(rm, 0, "priority_discharge_switch"),
		}
		// The appliance load may be flat or a per-appliance list to sum.
		if loads := types.GetSlice(rm, "appliance_loads"); loads != nil {
			total := 0
			for _, l := range loads {
				if lm, ok := l.(map[string]any); ok {
					total += types.GetInt(lm, 0, "power")
				}
			}
			slot.ApplianceLoad = total
		} else {
			slot.ApplianceLoad = types.GetInt(rm, 0, "appliance_load")
		}
		slot.DeviceLoad = types.GetInt(rm, 0, "device_load")
		slots = append(slots, slot)
	}
	return slots, nil
}

func parseDayRanges(pm map[string]any) ([]types.DayRange, error) {
	// Flat shape: one week list and one shared ranges list at the top level.
	if week := types.GetSlice(pm, "week"); week != nil {
		dr := types.DayRange{}
		for _, w := range week {
			if n, ok := types.AsInt(w); ok {
				dr.Weekdays = append(dr.Weekdays, n)
			}
		}
		slots, err := parseRateSlots(types.GetSlice(pm, "ranges"))
		if err != nil {
			return nil, err
		}
		dr.Slots = slots
		return []types.DayRange{dr}, nil
	}

	var out []types.DayRange
	for _, g := range types.GetSlice(pm, "ranges") {
		gm, ok := g.(map[string]any)
		if !ok {
			continue
		}
		// Grouped shape: each entry carries its own week list.
		if week := types.GetSlice(gm, "week"); week != nil {
			dr := types.DayRange{}
			for _, w := range week {
				if n, ok := types.AsInt(w); ok {
					dr.Weekdays = append(dr.Weekdays, n)
				}
			}
			slots, err := parseRateSlots(types.GetSlice(gm, "ranges"))
			if err != nil {
				return nil, err
			}
			dr.Slots = slots
			out = append(out, dr)
		}
	}
	return out, nil
}

func parseRateSlots(ranges []any) ([]types.RateSlot, error) {
	slots := make([]types.RateSlot, 0, len(ranges))
	for _, r := range ranges {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		start, err := types.ParseDayTime(types.GetString(rm, "", "start_time"))
		if err != nil {
			return nil, err
		}
		end, err := types.ParseDayTime(types.GetString(rm, "", "end_time"))
		if err != nil {
			return nil, err
		}
		slots = append(slots, types.RateSlot{
			Start: start,
			End:   end,
			Power: types.GetInt(rm, 0, "power"),
		})
	}
	return slots, nil
}
