package types

// Raw device status codes as reported by the bind-device endpoints.
const (
	DeviceStatusOffline = "0"
	DeviceStatusOnline  = "1"
)

// DeviceStatusDesc expands a raw device status code into its classification.
func DeviceStatusDesc(code string) string {
	switch code {
	case DeviceStatusOffline:
		return "offline"
	case DeviceStatusOnline:
		return "online"
	default:
		return "unknown"
	}
}

// Raw charging status codes as reported in solarbank telemetry.
const (
	ChargingStatusDetecting   = "0"
	ChargingStatusCharging    = "1"
	ChargingStatusDischarging = "2"
	ChargingStatusWakeup      = "3"
	ChargingStatusBypass      = "4"
	ChargingStatusFull        = "5"
	ChargingStatusStandby     = "7"
)

// ChargingStatusDescFor expands a raw charging status code into its plain
// description. Unmatched codes classify as unknown.
func ChargingStatusDescFor(code string) string {
	switch code {
	case ChargingStatusDetecting:
		return "detection"
	case ChargingStatusCharging:
		return "charge"
	case ChargingStatusDischarging:
		return "discharge"
	case ChargingStatusWakeup:
		return "wakeup"
	case ChargingStatusBypass:
		return "bypass"
	case ChargingStatusFull:
		return "full_bypass"
	case ChargingStatusStandby:
		return "standby"
	default:
		return "unknown"
	}
}

// SolixStatus is the named operating state computed from raw power and
// charge signals. It refines the raw charging status with context the
// device does not report directly.
type SolixStatus string

const (
	StatusUnknown          SolixStatus = "unknown"
	StatusCharge           SolixStatus = "charge"
	StatusChargePriority   SolixStatus = "charge_priority"
	StatusChargeBypass     SolixStatus = "charge_bypass"
	StatusChargeAC         SolixStatus = "charge_ac"
	StatusProtectionCharge SolixStatus = "protection_charge"
	StatusDischarge        SolixStatus = "discharge"
	StatusBypass           SolixStatus = "bypass"
	StatusBypassDischarge  SolixStatus = "bypass_discharge"
	StatusFullyCharged     SolixStatus = "fully_charged"
	StatusDetection        SolixStatus = "detection"
	StatusWakeup           SolixStatus = "wakeup"
	StatusStandby          SolixStatus = "standby"
	StatusOffline          SolixStatus = "offline"
)

// String implements fmt.Stringer.
func (s SolixStatus) String() string { return string(s) }
