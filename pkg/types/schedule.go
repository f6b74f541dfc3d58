package types

import (
	"fmt"
	"strconv"
	"strings"
)

// DayTime is a time of day as it appears in schedule slots ("HH:MM").
// "24:00" is a valid end marker meaning end of day.
type DayTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseDayTime parses "HH:MM". "24:00" is accepted as the end-of-day marker.
func ParseDayTime(s string) (DayTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return DayTime{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return DayTime{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return DayTime{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return DayTime{}, fmt.Errorf("time of day %q out of range", s)
	}
	return DayTime{Hour: h, Minute: m}, nil
}

// Minutes returns the minutes since midnight. "24:00" maps to 1440.
func (t DayTime) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats as "HH:MM".
func (t DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// IsEndOfDay reports whether the value is the "24:00" end marker.
func (t DayTime) IsEndOfDay() bool {
	return t.Hour == 24
}

// TimeSlot is one interval of a first-generation schedule. The interval is
// [Start, End); an End of 24:00 includes the final minute of the day.
type TimeSlot struct {
	Start DayTime `json:"start_time"`
	End   DayTime `json:"end_time"`

	ApplianceLoad       int  `json:"appliance_load"` // W
	DeviceLoad          int  `json:"device_load,omitempty"`
	AllowExport         bool `json:"turn_on"`
	ChargePriorityLimit int  `json:"charge_priority"` // SOC %
	DischargePriority   int  `json:"priority_discharge_switch,omitempty"`
}

// RateSlot is one interval inside a generation >= 2 rate plan day-range.
type RateSlot struct {
	Start DayTime `json:"start_time"`
	End   DayTime `json:"end_time"`
	Power int     `json:"power"` // W
}

// DayRange binds a set of weekdays (0 = Sunday) to an ordered slot list.
type DayRange struct {
	Weekdays []int      `json:"week"`
	Slots    []RateSlot `json:"ranges"`
}

// RatePlan is a named schedule variant for generation >= 2 devices, selected
// by the device's current usage mode.
type RatePlan struct {
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Ranges []DayRange `json:"ranges"`
}

// Schedule is the time-indexed preset table stored inside a device record.
// First-generation devices carry Slots; newer generations carry RatePlans.
type Schedule struct {
	Slots     []TimeSlot `json:"home_load_data,omitempty"`
	RatePlans []RatePlan `json:"rate_plans,omitempty"`
	MinLoad   int        `json:"min_load,omitempty"`
	MaxLoad   int        `json:"max_load,omitempty"`
}

// Clone returns a deep copy.
func (s Schedule) Clone() Schedule {
	c := s
	c.Slots = append([]TimeSlot(nil), s.Slots...)
	if s.RatePlans != nil {
		c.RatePlans = make([]RatePlan, len(s.RatePlans))
		for i, p := range s.RatePlans {
			cp := p
			cp.Ranges = make([]DayRange, len(p.Ranges))
			for j, r := range p.Ranges {
				cr := r
				cr.Weekdays = append([]int(nil), r.Weekdays...)
				cr.Slots = append([]RateSlot(nil), r.Slots...)
				cp.Ranges[j] = cr
			}
			c.RatePlans[i] = cp
		}
	}
	return c
}

// Preset is the currently effective operating parameters resolved from a
// schedule for a reference time.
type Preset struct {
	OutputPower         float64 `json:"output_power"`
	AllowExport         bool    `json:"allow_export"`
	ChargePriorityLimit float64 `json:"charge_priority_limit"`
	DischargePriority   int     `json:"discharge_priority"`
	SlotStart           DayTime `json:"slot_start"`
	SlotEnd             DayTime `json:"slot_end"`
}

// Usage modes for generation >= 2 devices. The mode picks which rate plan in
// the schedule is active.
const (
	UsageModeManual     = 1
	UsageModeSmartMeter = 2
	UsageModeSmartPlugs = 3
	UsageModeUseTime    = 4
	UsageModeSmart      = 5
	UsageModeTimeSlot   = 6
)

// RatePlanNameForMode maps a usage mode to the rate plan key used in
// schedule payloads. Unknown modes fall back to the manual plan.
func RatePlanNameForMode(mode int) string {
	switch mode {
	case UsageModeSmartMeter:
		return "blend_plan"
	case UsageModeSmartPlugs:
		return "blend_plan"
	case UsageModeUseTime:
		return "use_time"
	case UsageModeSmart:
		return "smart_plan"
	case UsageModeTimeSlot:
		return "time_slot"
	default:
		return "custom_rate_plan"
	}
}
