package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SetDeviceParm writes a schedule to a solarbank and re-reads it so the
// cache reflects what the server actually accepted rather than what was
// sent. The owning account is required; the server rejects member writes.
func (p *Poller) SetDeviceParm(ctx context.Context, siteID, deviceSN string, paramData map[string]any) error {
	d := p.cache.Device(deviceSN)
	if d == nil {
		return fmt.Errorf("unknown device %s", deviceSN)
	}
	if !d.Admin() {
		return fmt.Errorf("device %s is not managed by this account", deviceSN)
	}

	paramType := "4"
	if d.Generation >= 2 {
		paramType = "6"
	}
	encoded, err := json.Marshal(paramData)
	if err != nil {
		return fmt.Errorf("failed to encode param_data: %w", err)
	}
	payload := map[string]any{
		"site_id":    siteID,
		"param_type": paramType,
		"cmd":        17,
		"param_data": string(encoded),
	}
	if _, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointSetDeviceParm, payload, false, ""); err != nil {
		return err
	}
	return p.updateSchedule(ctx, d.Clone(), false)
}

// SetSitePrice writes a site's fixed tariff settings and merges them back
// into the cached details on success.
func (p *Poller) SetSitePrice(ctx context.Context, siteID string, price, co2 float64, unit string) error {
	s := p.cache.Site(siteID)
	if s == nil {
		return fmt.Errorf("unknown site %s", siteID)
	}
	if !s.Admin {
		return fmt.Errorf("site %s is not managed by this account", siteID)
	}

	payload := map[string]any{
		"site_id":         siteID,
		"price":           price,
		"site_co2":        co2,
		"site_price_unit": unit,
	}
	if _, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointSetSitePrice, payload, false, ""); err != nil {
		return err
	}
	p.cache.MergeSitePrice(ctx, siteID, map[string]any{
		"price": price, "site_co2": co2, "site_price_unit": unit,
	})
	return nil
}
