package poll

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solixsync/solixsync/pkg/derived"
	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// RefreshDynamicPrice updates the spot price forecast for a site's dynamic
// tariff provider. Without force, a fetch only happens once per wall-clock
// hour; within the hour the cached forecast is authoritative.
func (p *Poller) RefreshDynamicPrice(ctx context.Context, siteID string, fromFile, force bool) error {
	site := p.cache.Site(siteID)
	if site == nil {
		return fmt.Errorf("unknown site %s", siteID)
	}
	provider := site.Details.DynamicPriceProvider
	if provider == "" {
		return nil
	}

	now := p.nowFunc()
	if !derived.ForecastDue(p.cache.PriceForecast(provider), now, force) {
		return nil
	}

	company, area, _ := strings.Cut(provider, "/")
	payload := map[string]any{
		"company": company,
		"area":    area,
		"date":    now.Format(energyDateLayout),
	}
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointDynamicPrice, payload, fromFile, siteID)
	if err != nil {
		return err
	}

	fee, vat, currency := derived.FeeAndVAT(site.Clone(), p.country)
	forecast := &types.PriceForecast{
		Provider:   provider,
		Currency:   currency,
		FeePerKWH:  fee,
		VATPercent: vat,
		PolledAt:   now,
	}
	for _, e := range types.GetSlice(data, "price_list") {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		ts := types.GetInt(m, 0, "timestamp")
		spot, ok := types.AsFloat(types.GetNested(m, nil, "spot_price"))
		if ts == 0 || !ok {
			continue
		}
		forecast.Slots = append(forecast.Slots, types.PriceSlot{
			Start:      time.Unix(int64(ts), 0).UTC(),
			SpotPerMWH: spot,
		})
	}
	derived.ApplyRetail(forecast)
	p.cache.SetPriceForecast(provider, forecast)

	log.Ctx(ctx).DebugContext(ctx, "refreshed dynamic price forecast",
		slog.String("provider", provider), slog.Int("slots", len(forecast.Slots)))
	return nil
}
