package types

import "maps"

// Account is the singleton record for the authenticated session. It is
// created on first successful login and mutated on every poll.
type Account struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Country  string `json:"country,omitempty"`
	Region   string `json:"server_region,omitempty"`

	// Products maps model codes to catalog entries, refreshed from the
	// product categories endpoint and seeded with the built-in catalog.
	Products map[string]ProductInfo `json:"products,omitempty"`

	// DynamicPrices caches the spot-price forecast per provider identifier.
	DynamicPrices map[string]*PriceForecast `json:"dynamic_prices,omitempty"`

	// Trailing-window request counts copied from the session counter at
	// snapshot time; purely observational.
	RequestsLastMinute int `json:"requests_last_minute,omitempty"`
	RequestsLastHour   int `json:"requests_last_hour,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Clone returns a copy safe for read-only snapshots.
func (a *Account) Clone() Account {
	c := *a
	c.Products = maps.Clone(a.Products)
	if a.DynamicPrices != nil {
		c.DynamicPrices = make(map[string]*PriceForecast, len(a.DynamicPrices))
		for k, v := range a.DynamicPrices {
			fc := v.Clone()
			c.DynamicPrices[k] = &fc
		}
	}
	c.Extra = maps.Clone(a.Extra)
	return c
}
