// Package metrics exposes the cached fleet state as a prometheus.Collector.
// Values are read from cache snapshots at scrape time; the collector never
// triggers a poll of its own.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/solixsync/solixsync/pkg/cache"
	"github.com/solixsync/solixsync/pkg/derived"
	"github.com/solixsync/solixsync/pkg/types"
)

// Collector implements prometheus.Collector over a merge cache.
type Collector struct {
	cache *cache.Cache

	batterySOC    *prometheus.Desc
	batteryEnergy *prometheus.Desc
	solarPower    *prometheus.Desc
	outputPower   *prometheus.Desc
	chargingPower *prometheus.Desc
	homeLoad      *prometheus.Desc
	presetOutput  *prometheus.Desc
	deviceOnline  *prometheus.Desc
	deviceInfo    *prometheus.Desc

	siteEnergyToday *prometheus.Desc
	sitePrice       *prometheus.Desc
	dynamicPrice    *prometheus.Desc

	requestsMinute *prometheus.Desc
	requestsHour   *prometheus.Desc
}

// NewCollector builds the metric descriptors over the given cache.
func NewCollector(c *cache.Cache) *Collector {
	deviceLabels := []string{"device_sn", "site_id", "device_type"}
	return &Collector{
		cache: c,
		batterySOC: prometheus.NewDesc(
			"solixsync_battery_soc_percent",
			"Battery state of charge in percent",
			deviceLabels, nil,
		),
		batteryEnergy: prometheus.NewDesc(
			"solixsync_battery_energy_wh",
			"Estimated battery energy in watt-hours (capacity x SOC)",
			deviceLabels, nil,
		),
		solarPower: prometheus.NewDesc(
			"solixsync_solar_power_w",
			"Current solar input power in watts",
			deviceLabels, nil,
		),
		outputPower: prometheus.NewDesc(
			"solixsync_output_power_w",
			"Current output power to appliances in watts",
			deviceLabels, nil,
		),
		chargingPower: prometheus.NewDesc(
			"solixsync_charging_power_w",
			"Current battery charging power in watts (negative=discharging)",
			deviceLabels, nil,
		),
		homeLoad: prometheus.NewDesc(
			"solixsync_home_load_w",
			"Measured home demand in watts",
			deviceLabels, nil,
		),
		presetOutput: prometheus.NewDesc(
			"solixsync_preset_output_power_w",
			"Scheduled output power preset in watts",
			deviceLabels, nil,
		),
		deviceOnline: prometheus.NewDesc(
			"solixsync_device_online",
			"Device wifi status (1=online, 0=offline)",
			deviceLabels, nil,
		),
		deviceInfo: prometheus.NewDesc(
			"solixsync_device_info",
			"Device identity and derived operating state",
			[]string{"device_sn", "site_id", "device_type", "device_pn", "name", "sw_version", "status"}, nil,
		),
		siteEnergyToday: prometheus.NewDesc(
			"solixsync_site_energy_today_kwh",
			"Today's site energy by category in kilowatt-hours",
			[]string{"site_id", "category"}, nil,
		),
		sitePrice: prometheus.NewDesc(
			"solixsync_site_price_per_kwh",
			"Configured fixed tariff of the site",
			[]string{"site_id", "currency"}, nil,
		),
		dynamicPrice: prometheus.NewDesc(
			"solixsync_dynamic_price_per_kwh",
			"Current dynamic retail price per kilowatt-hour",
			[]string{"provider", "currency"}, nil,
		),
		requestsMinute: prometheus.NewDesc(
			"solixsync_api_requests_last_minute",
			"Cloud API requests issued in the trailing minute",
			nil, nil,
		),
		requestsHour: prometheus.NewDesc(
			"solixsync_api_requests_last_hour",
			"Cloud API requests issued in the trailing hour",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.batterySOC
	ch <- c.batteryEnergy
	ch <- c.solarPower
	ch <- c.outputPower
	ch <- c.chargingPower
	ch <- c.homeLoad
	ch <- c.presetOutput
	ch <- c.deviceOnline
	ch <- c.deviceInfo
	ch <- c.siteEnergyToday
	ch <- c.sitePrice
	ch <- c.dynamicPrice
	ch <- c.requestsMinute
	ch <- c.requestsHour
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for sn, d := range c.cache.Devices() {
		labels := []string{sn, d.SiteID, string(d.Type)}
		ch <- prometheus.MustNewConstMetric(c.batterySOC, prometheus.GaugeValue, float64(d.BatterySOC), labels...)
		if d.BatteryEnergy > 0 {
			ch <- prometheus.MustNewConstMetric(c.batteryEnergy, prometheus.GaugeValue, d.BatteryEnergy, labels...)
		}
		ch <- prometheus.MustNewConstMetric(c.solarPower, prometheus.GaugeValue, d.InputPower, labels...)
		ch <- prometheus.MustNewConstMetric(c.outputPower, prometheus.GaugeValue, d.OutputPower, labels...)
		ch <- prometheus.MustNewConstMetric(c.chargingPower, prometheus.GaugeValue, d.ChargingPower, labels...)
		ch <- prometheus.MustNewConstMetric(c.homeLoad, prometheus.GaugeValue, d.ToHomeLoad, labels...)
		ch <- prometheus.MustNewConstMetric(c.presetOutput, prometheus.GaugeValue, d.PresetOutputPower, labels...)

		online := 0.0
		if d.Status == types.DeviceStatusOnline {
			online = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.deviceOnline, prometheus.GaugeValue, online, labels...)
		ch <- prometheus.MustNewConstMetric(c.deviceInfo, prometheus.GaugeValue, 1,
			sn, d.SiteID, string(d.Type), d.ProductCode, d.Name, d.SWVersion, string(d.DerivedStatus))
	}

	for id, s := range c.cache.Sites() {
		if today := s.EnergyDetails.Today; today != nil {
			for category, v := range map[string]float64{
				"solar_production":  today.SolarProduction,
				"solar_to_battery":  today.SolarToBattery,
				"solar_to_home":     today.SolarToHome,
				"solar_to_grid":     today.SolarToGrid,
				"battery_discharge": today.BatteryDischarge,
				"battery_charge":    today.BatteryCharge,
				"grid_import":       today.GridImport,
				"grid_export":       today.GridExport,
				"home_usage":        today.HomeUsage,
			} {
				ch <- prometheus.MustNewConstMetric(c.siteEnergyToday, prometheus.GaugeValue, v, id, category)
			}
		}
		if s.Details.Price > 0 {
			ch <- prometheus.MustNewConstMetric(c.sitePrice, prometheus.GaugeValue, s.Details.Price, id, s.Details.Currency)
		}
	}

	account := c.cache.Account()
	for provider, f := range account.DynamicPrices {
		if f == nil {
			continue
		}
		if slot, ok := currentSlot(*f); ok {
			ch <- prometheus.MustNewConstMetric(c.dynamicPrice, prometheus.GaugeValue, slot.TotalPerKWH, provider, f.Currency)
		}
	}
	ch <- prometheus.MustNewConstMetric(c.requestsMinute, prometheus.GaugeValue, float64(account.RequestsLastMinute))
	ch <- prometheus.MustNewConstMetric(c.requestsHour, prometheus.GaugeValue, float64(account.RequestsLastHour))
}

func currentSlot(f types.PriceForecast) (types.PriceSlot, bool) {
	return derived.CurrentPrice(f, time.Now())
}
