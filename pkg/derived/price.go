package derived

import (
	"time"

	"github.com/solixsync/solixsync/pkg/types"
)

// SpotToRetail converts a spot market price (per MWh) into the total retail
// price per kWh: (spot/1000 + fee) * (1 + vat/100).
func SpotToRetail(spotPerMWH, feePerKWH, vatPercent float64) float64 {
	return (spotPerMWH/1000 + feePerKWH) * (1 + vatPercent/100)
}

// ApplyRetail recomputes the total retail price of every forecast slot from
// its spot price and the forecast's fee/VAT.
func ApplyRetail(f *types.PriceForecast) {
	for i := range f.Slots {
		f.Slots[i].TotalPerKWH = SpotToRetail(f.Slots[i].SpotPerMWH, f.FeePerKWH, f.VATPercent)
	}
}

// CurrentPrice returns the last forecast slot whose timestamp is at or
// before now, which is the price in effect right now. The boolean is false
// when the forecast holds no applicable slot.
func CurrentPrice(f types.PriceForecast, now time.Time) (types.PriceSlot, bool) {
	var cur types.PriceSlot
	var found bool
	for _, slot := range f.Slots {
		if slot.Start.After(now) {
			break
		}
		cur = slot
		found = true
	}
	return cur, found
}

// ForecastDue reports whether the forecast should be refreshed: either on
// forced refresh or when the wall-clock hour changed since the stored poll
// timestamp.
func ForecastDue(f *types.PriceForecast, now time.Time, force bool) bool {
	if force || f == nil || f.PolledAt.IsZero() {
		return true
	}
	return f.PolledAt.Truncate(time.Hour) != now.Truncate(time.Hour)
}

// FeeAndVAT resolves the fee/VAT for a site's dynamic price: explicit site
// overrides first, then the per-country defaults, then zero.
func FeeAndVAT(site types.Site, country string) (fee, vat float64, currency string) {
	def, _ := types.PriceDefaultsForCountry(country)
	fee = def.FeePerKWH
	vat = def.VATPercent
	currency = def.Currency
	if site.Details.DynamicPriceFee > 0 {
		fee = site.Details.DynamicPriceFee
	}
	if site.Details.DynamicPriceVAT > 0 {
		vat = site.Details.DynamicPriceVAT
	}
	if site.Details.Currency != "" {
		currency = site.Details.Currency
	}
	return fee, vat, currency
}
