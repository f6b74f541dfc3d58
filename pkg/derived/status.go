// Package derived holds the pure functions that turn raw merged telemetry
// into named operating states, active schedule presets and dynamic prices.
// Nothing in here performs I/O or keeps state; everything is recomputed
// from the latest merged fields on demand.
package derived

import (
	"github.com/solixsync/solixsync/pkg/types"
)

// ClassifyStatus computes the named operating state for a device from its
// raw power and charge signals plus the already-resolved active preset.
// Branches are evaluated in priority order; ties resolve to the first
// matching branch. Raw statuses no branch refines pass through the generic
// description table.
func ClassifyStatus(d types.Device) types.SolixStatus {
	desc := types.ChargingStatusDescFor(d.ChargingStatus)
	preset := d.PresetOutputPower

	if d.Generation < 2 {
		if desc == "charge" {
			if d.OutputPower == 0 && d.InputPower > preset && d.ChargingPower > 0 {
				return types.StatusChargePriority
			}
			if d.OutputPower > 0 {
				return types.StatusChargeBypass
			}
		}
		return types.SolixStatus(desc)
	}

	switch desc {
	case "detection":
		switch {
		case d.ChargingPower > 0:
			switch {
			case d.OutputPower > 0:
				return types.StatusChargeBypass
			case d.ACInputPower > 0 || d.InputPower == 0:
				return types.StatusChargeAC
			case d.ToHomeLoad < preset:
				return types.StatusProtectionCharge
			default:
				return types.StatusCharge
			}
		case d.ChargingPower < 0:
			if d.InputPower > 0 {
				return types.StatusBypassDischarge
			}
			return types.StatusDischarge
		default:
			if d.BatterySOC == 100 {
				return types.StatusFullyCharged
			}
			if d.InputPower > 0 {
				return types.StatusBypass
			}
			return types.SolixStatus(desc)
		}
	case "bypass":
		if d.ChargingPower < 0 {
			return types.StatusBypassDischarge
		}
	}
	return types.SolixStatus(desc)
}
