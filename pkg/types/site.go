package types

import "maps"

// Site membership types as reported in site_info. Only the owner role may
// call admin-gated endpoints.
const (
	MemberTypeOwner  = 1
	MemberTypeMember = 2
)

// SiteInfo is the descriptor block from the site list endpoint.
type SiteInfo struct {
	SiteID        string `json:"site_id"`
	Name          string `json:"site_name"`
	ImageURL      string `json:"site_img,omitempty"`
	DeviceTypes   []int  `json:"device_type_list,omitempty"`
	PowerSiteType int    `json:"power_site_type,omitempty"`
	MemberType    int    `json:"ms_type,omitempty"`
	IsAllowDelete bool   `json:"is_allow_delete,omitempty"`
}

// SiteDetails carries pricing and station configuration for a site.
type SiteDetails struct {
	Price                float64 `json:"price,omitempty"`          // per kWh
	SiteCO2              float64 `json:"site_co2,omitempty"`       // g/kWh factor
	Currency             string  `json:"site_price_unit,omitempty"`
	PriceType            string  `json:"price_type,omitempty"` // fixed | use_time | dynamic
	DynamicPriceProvider string  `json:"dynamic_price_provider,omitempty"`
	DynamicPriceFee      float64 `json:"dynamic_price_fee,omitempty"` // per kWh on top of spot
	DynamicPriceVAT      float64 `json:"dynamic_price_vat,omitempty"` // percent
}

// DailyEnergy is one day's aggregated energy by category, in kWh.
type DailyEnergy struct {
	Date             string  `json:"date,omitempty"`
	SolarProduction  float64 `json:"solar_production"`
	SolarToBattery   float64 `json:"solar_to_battery"`
	SolarToHome      float64 `json:"solar_to_home"`
	SolarToGrid      float64 `json:"solar_to_grid"`
	BatteryDischarge float64 `json:"battery_discharge"`
	BatteryCharge    float64 `json:"battery_charge"`
	GridImport       float64 `json:"grid_import"`
	GridExport       float64 `json:"grid_export"`
	HomeUsage        float64 `json:"home_usage"`
	SmartplugUsage   float64 `json:"smartplug_usage"`
	AckSolarPercent  float64 `json:"solar_percentage,omitempty"`
}

// EnergyDetails groups the per-day aggregates merged from the energy cycle.
type EnergyDetails struct {
	Today     *DailyEnergy `json:"today,omitempty"`
	Yesterday *DailyEnergy `json:"yesterday,omitempty"`
}

// Site is the merged record for one physical installation, keyed by its
// server-assigned site ID. Device-type summary blocks keep the last-known
// sub-documents from the scene snapshot verbatim since their shape varies
// per product family.
type Site struct {
	ID    string   `json:"site_id"`
	Info  SiteInfo `json:"site_info"`
	Admin bool     `json:"site_admin"`

	Details       SiteDetails   `json:"site_details"`
	EnergyDetails EnergyDetails `json:"energy_details"`

	SolarbankInfo  map[string]any `json:"solarbank_info,omitempty"`
	PpsInfo        map[string]any `json:"pps_info,omitempty"`
	GridInfo       map[string]any `json:"grid_info,omitempty"`
	SmartplugInfo  map[string]any `json:"smart_plug_info,omitempty"`
	SolarInfo      map[string]any `json:"solar_list,omitempty"`
	PowerpanelList []any          `json:"powerpanel_list,omitempty"`
	HesInfo        map[string]any `json:"hes_info,omitempty"`

	// UTC offset of the site in seconds, from the scene snapshot.
	EnergyOffsetSeconds int `json:"energy_offset_seconds,omitempty"`

	// WifiFetched marks that the one-time-per-pass wifi list was already
	// retrieved for this site in the current detail cycle.
	WifiFetched bool `json:"-"`

	Customized map[string]any `json:"customized,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Clone returns a copy safe for read-only snapshots.
func (s *Site) Clone() Site {
	c := *s
	if s.EnergyDetails.Today != nil {
		v := *s.EnergyDetails.Today
		c.EnergyDetails.Today = &v
	}
	if s.EnergyDetails.Yesterday != nil {
		v := *s.EnergyDetails.Yesterday
		c.EnergyDetails.Yesterday = &v
	}
	c.SolarbankInfo = maps.Clone(s.SolarbankInfo)
	c.PpsInfo = maps.Clone(s.PpsInfo)
	c.GridInfo = maps.Clone(s.GridInfo)
	c.SmartplugInfo = maps.Clone(s.SmartplugInfo)
	c.SolarInfo = maps.Clone(s.SolarInfo)
	c.HesInfo = maps.Clone(s.HesInfo)
	c.PowerpanelList = append([]any(nil), s.PowerpanelList...)
	c.Customized = maps.Clone(s.Customized)
	c.Extra = maps.Clone(s.Extra)
	return c
}
