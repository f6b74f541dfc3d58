package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// UpdateDeviceDetails runs the detail cycle: per-device configuration that
// changes rarely and costs extra requests. Admin-gated endpoints are only
// called for devices the account owns, and each failing fetch is logged and
// skipped so the cycle always completes.
func (p *Poller) UpdateDeviceDetails(ctx context.Context, fromFile bool, exclude map[string]bool) error {
	p.cache.ResetWifiFetched()

	// The account-wide bind list is the discovery source for standalone
	// devices that belong to no site, so it runs before the device walk.
	if _, err := p.updateBindDevices(ctx, "", fromFile); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "bind device list failed", slog.Any("err", err))
	}

	devices := p.cache.Devices()
	serials := make([]string, 0, len(devices))
	for sn := range devices {
		serials = append(serials, sn)
	}
	sort.Strings(serials)

	for _, sn := range serials {
		d := devices[sn]
		ctx := log.WithAttrs(ctx, slog.String("sn", sn))

		if !exclude[CategoryWifi] && d.SiteID != "" {
			if err := p.updateWifiOnce(ctx, d.SiteID, fromFile); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "wifi list failed", slog.Any("err", err))
			}
		}
		if d.Type == types.DeviceTypeSolarbank {
			if !exclude[CategorySchedules] && d.Admin() {
				if err := p.updateSchedule(ctx, d, fromFile); err != nil {
					log.Ctx(ctx).WarnContext(ctx, "schedule fetch failed", slog.Any("err", err))
				}
			}
			if !exclude[CategoryPowerCutoff] && d.Admin() && d.Generation < 2 {
				if err := p.updatePowerCutoff(ctx, d, fromFile); err != nil {
					log.Ctx(ctx).WarnContext(ctx, "power cutoff fetch failed", slog.Any("err", err))
				}
			}
			if !exclude[CategorySolarInfo] {
				if err := p.updateSolarInfo(ctx, d, fromFile); err != nil {
					log.Ctx(ctx).WarnContext(ctx, "solar info fetch failed", slog.Any("err", err))
				}
			}
		}
	}

	for id, s := range p.cache.Sites() {
		ctx := log.WithAttrs(ctx, slog.String("siteID", id))
		if !exclude[CategorySitePrices] && s.Admin {
			if err := p.updateSitePrice(ctx, id, fromFile); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "site price fetch failed", slog.Any("err", err))
			}
		}
		if !exclude[CategoryDynamicPrice] && s.Details.PriceType == "dynamic" {
			if err := p.RefreshDynamicPrice(ctx, id, fromFile, false); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "dynamic price refresh failed", slog.Any("err", err))
			}
		}
	}

	p.syncRequestCounts()
	return nil
}

// updateWifiOnce fetches the wifi info list for a site at most once per
// detail cycle and distributes the entries to their devices.
func (p *Poller) updateWifiOnce(ctx context.Context, siteID string, fromFile bool) error {
	site := p.cache.Site(siteID)
	if site == nil || site.WifiFetched {
		return nil
	}
	site.WifiFetched = true

	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointWifiList,
		map[string]any{"site_id": siteID}, fromFile, siteID)
	if err != nil {
		return err
	}
	for _, e := range types.GetSlice(data, "wifi_info_list") {
		frag, ok := e.(map[string]any)
		if !ok {
			continue
		}
		p.cache.MergeDevice(ctx, frag)
	}
	return nil
}

func (p *Poller) updateSchedule(ctx context.Context, d types.Device, fromFile bool) error {
	paramType := "4"
	if d.Generation >= 2 {
		paramType = "6"
	}
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointDeviceParm,
		map[string]any{"site_id": d.SiteID, "param_type": paramType}, fromFile, d.SiteID)
	if err != nil {
		return err
	}
	sched, err := decodeParamData(data["param_data"])
	if err != nil {
		return err
	}
	p.cache.MergeDevice(ctx, map[string]any{"device_sn": d.SN, "schedule": sched})
	return nil
}

// decodeParamData unwraps the schedule payload, which arrives either as an
// embedded object or as a JSON-encoded string.
func decodeParamData(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return nil, fmt.Errorf("failed to decode param_data: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unexpected param_data type %T", v)
}

func (p *Poller) updatePowerCutoff(ctx context.Context, d types.Device, fromFile bool) error {
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointPowerCutoff,
		map[string]any{"site_id": d.SiteID, "device_sn": d.SN}, fromFile, d.SN)
	if err != nil {
		return err
	}
	if list := types.GetSlice(data, "power_cutoff_data"); list != nil {
		p.cache.MergeDevice(ctx, map[string]any{"device_sn": d.SN, "power_cutoff_data": list})
	}
	return nil
}

func (p *Poller) updateSolarInfo(ctx context.Context, d types.Device, fromFile bool) error {
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointSolarInfo,
		map[string]any{"site_id": d.SiteID, "solarbank_sn": d.SN}, fromFile, d.SN)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		p.cache.MergeDevice(ctx, map[string]any{"device_sn": d.SN, "solar_info": data})
	}
	return nil
}

func (p *Poller) updateSitePrice(ctx context.Context, siteID string, fromFile bool) error {
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointSitePrice,
		map[string]any{"site_id": siteID}, fromFile, siteID)
	if err != nil {
		return err
	}
	p.cache.MergeSitePrice(ctx, siteID, data)
	return nil
}
