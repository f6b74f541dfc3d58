// Package cache is the merge target for poll results. It turns partial,
// key-sparse response fragments into durable Site/Device/Account records
// with merge-patch semantics: only keys present in a fragment may change a
// record, and several field classes additionally require non-empty values.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// Cache holds the merged entity collections. It is not internally
// synchronized: the engine assumes at most one poll cycle in flight per
// session, and callers serialize access (including Customize calls).
type Cache struct {
	account types.Account
	sites   map[string]*types.Site
	devices map[string]*types.Device

	// nowFunc is swapped in tests so preset resolution is deterministic.
	nowFunc func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		account: types.Account{
			Products:      types.CatalogProducts(),
			DynamicPrices: make(map[string]*types.PriceForecast),
		},
		sites:   make(map[string]*types.Site),
		devices: make(map[string]*types.Device),
		nowFunc: time.Now,
	}
}

// Sites returns a copied snapshot of the site map.
func (c *Cache) Sites() map[string]types.Site {
	out := make(map[string]types.Site, len(c.sites))
	for id, s := range c.sites {
		out[id] = s.Clone()
	}
	return out
}

// Devices returns a copied snapshot of the device map.
func (c *Cache) Devices() map[string]types.Device {
	out := make(map[string]types.Device, len(c.devices))
	for sn, d := range c.devices {
		out[sn] = d.Clone()
	}
	return out
}

// Account returns a copied snapshot of the account record.
func (c *Cache) Account() types.Account {
	return c.account.Clone()
}

// Site returns the live record for a site ID, or nil.
func (c *Cache) Site(id string) *types.Site {
	return c.sites[id]
}

// Device returns the live record for a serial, or nil.
func (c *Cache) Device(sn string) *types.Device {
	return c.devices[sn]
}

// Customize applies a UI-origin override to the site or device with the
// given ID. Overrides are layered over server data with precedence and
// trigger the same derived-state recomputation as a live merge.
func (c *Cache) Customize(ctx context.Context, id, key string, value any) error {
	if d, ok := c.devices[id]; ok {
		if d.Customized == nil {
			d.Customized = make(map[string]any)
		}
		d.Customized[key] = value
		log.Ctx(ctx).DebugContext(ctx, "customized device field",
			slog.String("sn", id), slog.String("key", key))
		c.recomputeDevice(ctx, d)
		return nil
	}
	if s, ok := c.sites[id]; ok {
		if s.Customized == nil {
			s.Customized = make(map[string]any)
		}
		s.Customized[key] = value
		log.Ctx(ctx).DebugContext(ctx, "customized site field",
			slog.String("siteID", id), slog.String("key", key))
		return nil
	}
	return fmt.Errorf("no cached site or device with id %s", id)
}

// RecycleDevices removes devices whose serial was neither observed in the
// latest full poll (active) nor allow-listed (extra, e.g. known-passive
// auxiliary devices bound to an active site). This is the only deletion
// path for devices; merges never delete.
func (c *Cache) RecycleDevices(ctx context.Context, extra, active []string) {
	keep := make(map[string]bool, len(extra)+len(active))
	for _, sn := range extra {
		keep[sn] = true
	}
	for _, sn := range active {
		keep[sn] = true
	}
	for sn := range c.devices {
		if !keep[sn] {
			log.Ctx(ctx).InfoContext(ctx, "recycling stale device", slog.String("sn", sn))
			delete(c.devices, sn)
		}
	}
}

// RecycleSites removes sites not observed in the latest full poll.
func (c *Cache) RecycleSites(ctx context.Context, active []string) {
	keep := make(map[string]bool, len(active))
	for _, id := range active {
		keep[id] = true
	}
	for id := range c.sites {
		if !keep[id] {
			log.Ctx(ctx).InfoContext(ctx, "recycling stale site", slog.String("siteID", id))
			delete(c.sites, id)
		}
	}
}

// ResetWifiFetched clears the one-fetch-per-site wifi marker at the start
// of a device-detail cycle.
func (c *Cache) ResetWifiFetched() {
	for _, s := range c.sites {
		s.WifiFetched = false
	}
}
