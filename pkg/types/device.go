package types

import "maps"

// DeviceType is the enumerated category of a physical device.
type DeviceType string

const (
	DeviceTypeSolarbank   DeviceType = "solarbank"
	DeviceTypeInverter    DeviceType = "inverter"
	DeviceTypeSmartMeter  DeviceType = "smartmeter"
	DeviceTypeSmartPlug   DeviceType = "smartplug"
	DeviceTypePPS         DeviceType = "pps"
	DeviceTypePowerPanel  DeviceType = "powerpanel"
	DeviceTypePowerCooler DeviceType = "powercooler"
	DeviceTypeHES         DeviceType = "hes"
)

// Device is the merged record for one physical hardware unit, keyed by its
// serial number. Endpoints each supply only a handful of these fields; the
// cache merge rules decide which incoming keys may overwrite what.
type Device struct {
	SN          string     `json:"device_sn"`
	SiteID      string     `json:"site_id,omitempty"`
	Type        DeviceType `json:"type,omitempty"`
	Name        string     `json:"name,omitempty"`
	Alias       string     `json:"alias,omitempty"`
	ProductCode string     `json:"device_pn,omitempty"`
	Generation  int        `json:"generation,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`

	// IsAdmin is tri-state: nil until ownership has been determined by any
	// endpoint, then fixed to true/false. It never regresses to nil.
	IsAdmin *bool `json:"is_admin,omitempty"`

	SWVersion  string `json:"sw_version,omitempty"`
	HWVersion  string `json:"hw_version,omitempty"`
	MACAddr    string `json:"wireless_type,omitempty"`
	WifiSSID   string `json:"wifi_name,omitempty"`
	WifiSignal string `json:"wifi_signal,omitempty"`
	WifiOnline bool   `json:"wifi_online,omitempty"`
	BTMACAddr  string `json:"bt_ble_mac,omitempty"`

	// Raw status codes plus their expanded classifications.
	Status             string      `json:"status,omitempty"`
	StatusDesc         string      `json:"status_desc,omitempty"`
	ChargingStatus     string      `json:"charging_status,omitempty"`
	ChargingStatusDesc string      `json:"charging_status_desc,omitempty"`
	DerivedStatus      SolixStatus `json:"derived_status,omitempty"`

	BatterySOC      int     `json:"battery_soc,omitempty"`
	BatteryCapacity float64 `json:"battery_capacity,omitempty"` // Wh
	BatteryEnergy   float64 `json:"battery_energy,omitempty"`   // Wh, capacity x SOC
	SubPackageNum   int     `json:"sub_package_num,omitempty"`

	OutputPower   float64 `json:"output_power,omitempty"`       // W to appliances
	InputPower    float64 `json:"photovoltaic_power,omitempty"` // W from solar
	ChargingPower float64 `json:"charging_power,omitempty"`     // W, negative while discharging
	ToHomeLoad    float64 `json:"to_home_load,omitempty"`       // W measured home demand
	ACInputPower  float64 `json:"grid_to_battery_power,omitempty"`
	SolarPower1   float64 `json:"solar_power_1,omitempty"`
	SolarPower2   float64 `json:"solar_power_2,omitempty"`
	SolarPower3   float64 `json:"solar_power_3,omitempty"`
	SolarPower4   float64 `json:"solar_power_4,omitempty"`
	Temperature   int     `json:"temperature,omitempty"`

	PowerCutoff     int           `json:"power_cutoff,omitempty"` // output cutoff SOC %
	PowerCutoffData []PowerCutoff `json:"power_cutoff_data,omitempty"`

	InverterInfo map[string]any `json:"solar_info,omitempty"`
	Fittings     map[string]any `json:"fittings,omitempty"`

	Schedule  *Schedule `json:"schedule,omitempty"`
	UsageMode int       `json:"preset_usage_mode,omitempty"`

	// Active preset resolved from the schedule for "now".
	PresetOutputPower       float64 `json:"preset_system_output_power,omitempty"`
	PresetAllowExport       bool    `json:"preset_allow_export,omitempty"`
	PresetChargePriority    float64 `json:"preset_charge_priority,omitempty"`
	PresetDischargePriority int     `json:"preset_discharge_priority,omitempty"`

	// Customized carries UI-origin overrides that take precedence over
	// server data. Extra stores wire keys no rule claims.
	Customized map[string]any `json:"customized,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// PowerCutoff is one selectable output cutoff setting.
type PowerCutoff struct {
	ID         int  `json:"id"`
	OutputSOC  int  `json:"output_cutoff_data"`
	LowerLimit int  `json:"lowpower_input_data"`
	IsSelected bool `json:"is_selected"`
}

// Admin reports whether the device is known to be managed by this account.
// Unknown counts as not-admin for endpoint gating.
func (d *Device) Admin() bool {
	return d.IsAdmin != nil && *d.IsAdmin
}

// Clone returns a deep-enough copy for read-only snapshots. Nested maps are
// copied one level; callers must not mutate values inside them.
func (d *Device) Clone() Device {
	c := *d
	if d.IsAdmin != nil {
		v := *d.IsAdmin
		c.IsAdmin = &v
	}
	if d.Schedule != nil {
		s := d.Schedule.Clone()
		c.Schedule = &s
	}
	c.InverterInfo = maps.Clone(d.InverterInfo)
	c.Fittings = maps.Clone(d.Fittings)
	c.Customized = maps.Clone(d.Customized)
	c.Extra = maps.Clone(d.Extra)
	if d.PowerCutoffData != nil {
		c.PowerCutoffData = append([]PowerCutoff(nil), d.PowerCutoffData...)
	}
	return c
}
