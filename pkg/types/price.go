package types

import "time"

// PriceSlot is one forecast hour of the dynamic electricity price.
type PriceSlot struct {
	Start      time.Time `json:"start"`
	SpotPerMWH float64   `json:"spot_per_mwh"`
	TotalPerKWH float64  `json:"total_per_kwh"`
}

// PriceForecast is the cached today+tomorrow hourly spot price forecast for
// one dynamic price provider, with the fee/VAT used to derive retail totals.
type PriceForecast struct {
	Provider   string      `json:"provider"`
	Currency   string      `json:"currency,omitempty"`
	FeePerKWH  float64     `json:"fee_per_kwh"`
	VATPercent float64     `json:"vat_percent"`
	Slots      []PriceSlot `json:"slots,omitempty"`

	// PolledAt is when the forecast was last fetched; a refresh is only due
	// once the wall-clock hour has changed since then.
	PolledAt time.Time `json:"polled_at"`
}

// Clone returns a copy with its own slot list.
func (f PriceForecast) Clone() PriceForecast {
	c := f
	c.Slots = append([]PriceSlot(nil), f.Slots...)
	return c
}

// CountryPriceDefault is the fallback fee and VAT applied to spot prices
// when a site has no explicit override.
type CountryPriceDefault struct {
	FeePerKWH  float64
	VATPercent float64
	Currency   string
}

// countryPriceDefaults covers the markets the platform ships dynamic
// tariffs for. Values are flat defaults, not authoritative tariff data.
var countryPriceDefaults = map[string]CountryPriceDefault{
	"DE": {FeePerKWH: 0.1537, VATPercent: 19, Currency: "€"},
	"AT": {FeePerKWH: 0.1332, VATPercent: 20, Currency: "€"},
	"NL": {FeePerKWH: 0.1420, VATPercent: 21, Currency: "€"},
	"BE": {FeePerKWH: 0.1250, VATPercent: 21, Currency: "€"},
	"FR": {FeePerKWH: 0.1150, VATPercent: 20, Currency: "€"},
	"ES": {FeePerKWH: 0.1050, VATPercent: 21, Currency: "€"},
	"IT": {FeePerKWH: 0.1280, VATPercent: 22, Currency: "€"},
	"PL": {FeePerKWH: 0.3100, VATPercent: 23, Currency: "zł"},
	"SE": {FeePerKWH: 0.4500, VATPercent: 25, Currency: "kr"},
	"NO": {FeePerKWH: 0.3900, VATPercent: 25, Currency: "kr"},
	"DK": {FeePerKWH: 0.9500, VATPercent: 25, Currency: "kr"},
}

// PriceDefaultsForCountry returns the per-country fee/VAT defaults and
// whether the country is known.
func PriceDefaultsForCountry(country string) (CountryPriceDefault, bool) {
	d, ok := countryPriceDefaults[country]
	return d, ok
}
