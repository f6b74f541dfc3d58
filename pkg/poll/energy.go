package poll

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

const energyDateLayout = "2006-01-02"

// UpdateDeviceEnergy runs the energy cycle: per-site daily aggregates from
// the energy analysis endpoint. Today's figures refresh on every cycle;
// yesterday's are fetched only once after each date rollover since they can
// no longer change. A site is skipped when every energy category relevant
// to its device fleet is excluded.
func (p *Poller) UpdateDeviceEnergy(ctx context.Context, fromFile bool, exclude map[string]bool) error {
	now := p.nowFunc()
	today := now.Format(energyDateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(energyDateLayout)

	categories := p.energyCategoriesBySite()
	for id, s := range p.cache.Sites() {
		if !anyEnabled(categories[id], exclude) {
			continue
		}
		ctx := log.WithAttrs(ctx, slog.String("siteID", id))

		day, err := p.fetchEnergy(ctx, id, today, fromFile, id)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "energy analysis failed", slog.Any("err", err))
			continue
		}
		p.cache.MergeSiteEnergy(ctx, id, day, true)

		have := s.EnergyDetails.Yesterday
		if have == nil || have.Date != yesterday {
			day, err := p.fetchEnergy(ctx, id, yesterday, fromFile, id+"_yesterday")
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "yesterday energy fetch failed", slog.Any("err", err))
				continue
			}
			p.cache.MergeSiteEnergy(ctx, id, day, false)
		}
	}

	p.syncRequestCounts()
	return nil
}

// energyCategoriesBySite maps each site to the exclusion categories its
// energy aggregates fall under, derived from the device types bound to it.
// Home usage is part of every site's aggregate.
func (p *Poller) energyCategoriesBySite() map[string][]string {
	out := make(map[string][]string)
	for id := range p.cache.Sites() {
		out[id] = []string{CategoryHomeEnergy}
	}
	for _, d := range p.cache.Devices() {
		if d.SiteID == "" {
			continue
		}
		switch d.Type {
		case types.DeviceTypeSolarbank:
			out[d.SiteID] = append(out[d.SiteID], CategorySolarbankEnergy)
		case types.DeviceTypeSmartPlug:
			out[d.SiteID] = append(out[d.SiteID], CategorySmartplugEnergy)
		case types.DeviceTypeSmartMeter:
			out[d.SiteID] = append(out[d.SiteID], CategoryGridEnergy)
		}
	}
	return out
}

func anyEnabled(categories []string, exclude map[string]bool) bool {
	for _, c := range categories {
		if !exclude[c] {
			return true
		}
	}
	return false
}

func (p *Poller) fetchEnergy(ctx context.Context, siteID, date string, fromFile bool, entityID string) (types.DailyEnergy, error) {
	payload := map[string]any{
		"site_id":    siteID,
		"device_sn":  "",
		"type":       "day",
		"start_time": date,
		"end_time":   date,
	}
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointEnergyAnalysis, payload, fromFile, entityID)
	if err != nil {
		return types.DailyEnergy{}, err
	}
	return parseDailyEnergy(data, date), nil
}

// parseDailyEnergy reads the aggregate kWh categories from an energy
// analysis response. Missing categories stay zero; values arrive as decimal
// strings as often as numbers.
func parseDailyEnergy(data map[string]any, date string) types.DailyEnergy {
	return types.DailyEnergy{
		Date:             date,
		SolarProduction:  types.GetFloat(data, 0, "solar_production"),
		SolarToBattery:   types.GetFloat(data, 0, "solar_to_battery"),
		SolarToHome:      types.GetFloat(data, 0, "solar_to_home"),
		SolarToGrid:      types.GetFloat(data, 0, "solar_to_grid"),
		BatteryDischarge: types.GetFloat(data, 0, "battery_discharge"),
		BatteryCharge:    types.GetFloat(data, 0, "battery_charge"),
		GridImport:       types.GetFloat(data, 0, "grid_import"),
		GridExport:       types.GetFloat(data, 0, "grid_export"),
		HomeUsage:        types.GetFloat(data, 0, "home_usage"),
		SmartplugUsage:   types.GetFloat(data, 0, "smartplug_usage"),
		AckSolarPercent:  types.GetFloat(data, 0, "solar_percentage"),
	}
}
