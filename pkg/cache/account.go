package cache

import (
	"context"
	"strings"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// MergeAccount folds login and session metadata into the account record.
// Identity fields only change on non-empty input.
func (c *Cache) MergeAccount(ctx context.Context, fragment map[string]any) {
	claimed := map[string]bool{
		"email": true, "nickname": true, "user_id": true,
		"country": true, "server_region": true,
	}
	if v := types.GetString(fragment, "", "email"); v != "" {
		c.account.Email = v
	}
	if v := types.GetString(fragment, "", "nickname"); v != "" {
		c.account.Nickname = v
	}
	if v := types.GetString(fragment, "", "user_id"); v != "" {
		c.account.UserID = v
	}
	if v := types.GetString(fragment, "", "country"); v != "" {
		c.account.Country = v
	}
	if v := types.GetString(fragment, "", "server_region"); v != "" {
		c.account.Region = v
	}
	for k, v := range fragment {
		if claimed[k] {
			continue
		}
		if c.account.Extra == nil {
			c.account.Extra = make(map[string]any)
		}
		c.account.Extra[k] = v
	}
	log.Ctx(ctx).DebugContext(ctx, "merged account metadata")
}

// MergeProducts layers live catalog entries from the product categories
// endpoint over the built-in catalog. Existing generation and capacity data
// is kept when the live entry lacks it. Devices are recomputed afterwards so
// refreshed typing and capacity reach their derived fields.
func (c *Cache) MergeProducts(ctx context.Context, list []any) int {
	merged := 0
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		code := types.GetString(m, "", "product_code")
		if code == "" {
			continue
		}
		info := c.account.Products[code]
		if v := types.GetString(m, "", "product_name"); v != "" {
			info.Name = v
		}
		if info.Type == "" {
			info.Type = types.TypeForModel(code)
		}
		if info.Generation == 0 {
			info.Generation = types.GenerationForModel(code)
		}
		if v, ok := types.AsFloat(types.GetNested(m, nil, "capacity")); ok && v > 0 {
			info.CapacityWH = v
		}
		c.account.Products[code] = info
		merged++
	}
	if merged > 0 {
		for _, d := range c.devices {
			c.recomputeDevice(ctx, d)
		}
	}
	return merged
}

// lookupProduct resolves a model code against the merged live catalog,
// matching the 5-character family prefix when the exact code is unknown and
// falling back to the built-in table.
func (c *Cache) lookupProduct(code string) (types.ProductInfo, bool) {
	norm := strings.ToUpper(strings.TrimSpace(code))
	if norm == "" {
		return types.ProductInfo{}, false
	}
	if p, ok := c.account.Products[norm]; ok {
		return p, true
	}
	if len(norm) > 5 {
		if p, ok := c.account.Products[norm[:5]]; ok {
			return p, true
		}
	}
	return types.LookupProduct(code)
}

// SetPriceForecast replaces the cached forecast for a provider identifier.
func (c *Cache) SetPriceForecast(provider string, f *types.PriceForecast) {
	c.account.DynamicPrices[provider] = f
}

// PriceForecast returns the live forecast record for a provider, or nil.
func (c *Cache) PriceForecast(provider string) *types.PriceForecast {
	return c.account.DynamicPrices[provider]
}

// SetRequestCounts copies the session's trailing request counters into the
// account snapshot.
func (c *Cache) SetRequestCounts(lastMinute, lastHour int) {
	c.account.RequestsLastMinute = lastMinute
	c.account.RequestsLastHour = lastHour
}
