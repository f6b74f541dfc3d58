// Package client is the top-level facade: one Client per account, composing
// the authenticated session, the merge cache and the poll cycles behind a
// single mutex so callers get the serialized access the cache requires.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/solixsync/solixsync/pkg/cache"
	"github.com/solixsync/solixsync/pkg/poll"
	"github.com/solixsync/solixsync/pkg/session"
	"github.com/solixsync/solixsync/pkg/types"
)

// Client owns all per-account state. Poll cycles, set calls and cache
// customization are serialized by its mutex; snapshot reads copy data out
// under the same lock and are safe to use without it afterwards.
type Client struct {
	mu      sync.Mutex
	session *session.Session
	cache   *cache.Cache
	poller  *poll.Poller
}

// New builds a Client for one account. No network calls happen until the
// first Authenticate or poll cycle.
func New(cfg session.Config) (*Client, error) {
	s, err := session.New(cfg)
	if err != nil {
		return nil, err
	}
	c := cache.New()
	return &Client{
		session: s,
		cache:   c,
		poller:  poll.New(s, c, cfg.Country),
	}, nil
}

// Session exposes the underlying session, primarily for hosts that need
// login metadata.
func (c *Client) Session() *session.Session { return c.session }

// Cache exposes the merge cache for read-side integrations such as the
// metrics collector. Its snapshot methods are internally copy-safe.
func (c *Client) Cache() *cache.Cache { return c.cache }

// Authenticate logs in, or validates the cached token when restart is
// false. Returns whether a fresh login happened.
func (c *Client) Authenticate(ctx context.Context, restart bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh, err := c.session.Authenticate(ctx, restart)
	if err != nil {
		return false, err
	}
	c.cache.MergeAccount(ctx, map[string]any{
		"email":         c.session.Email(),
		"nickname":      c.session.Nickname(),
		"user_id":       c.session.UserID(),
		"country":       c.session.Country(),
		"server_region": c.session.Region(),
	})
	return fresh, nil
}

// Request issues a raw API call through the session. Escape hatch for
// endpoints the poll cycles do not cover.
func (c *Client) Request(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error) {
	return c.session.Request(ctx, method, endpoint, payload)
}

// UpdateSites runs the status cycle. An empty siteID refreshes everything
// and recycles records that disappeared.
func (c *Client) UpdateSites(ctx context.Context, siteID string, fromFile bool, exclude ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller.UpdateSites(ctx, siteID, fromFile, excludeSet(exclude))
}

// UpdateDeviceDetails runs the detail cycle.
func (c *Client) UpdateDeviceDetails(ctx context.Context, fromFile bool, exclude ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller.UpdateDeviceDetails(ctx, fromFile, excludeSet(exclude))
}

// UpdateDeviceEnergy runs the energy cycle.
func (c *Client) UpdateDeviceEnergy(ctx context.Context, fromFile bool, exclude ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller.UpdateDeviceEnergy(ctx, fromFile, excludeSet(exclude))
}

// RefreshDynamicPrice refreshes one site's spot price forecast, bypassing
// the hourly gate when force is set.
func (c *Client) RefreshDynamicPrice(ctx context.Context, siteID string, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller.RefreshDynamicPrice(ctx, siteID, false, force)
}

// SetDeviceParm writes a schedule to a solarbank and refreshes the cached
// copy from the server.
func (c *Client) SetDeviceParm(ctx context.Context, siteID, deviceSN string, paramData map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller.SetDeviceParm(ctx, siteID, deviceSN, paramData)
}

// SetSitePrice writes a site's fixed tariff settings.
func (c *Client) SetSitePrice(ctx context.Context, siteID string, price, co2 float64, unit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller.SetSitePrice(ctx, siteID, price, co2, unit)
}

// Sites returns a copied snapshot of the merged sites.
func (c *Client) Sites() map[string]types.Site {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Sites()
}

// Devices returns a copied snapshot of the merged devices.
func (c *Client) Devices() map[string]types.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Devices()
}

// Account returns a copied snapshot of the account record with the current
// request counters filled in.
func (c *Client) Account() types.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	minute, hour := c.session.RequestCounts()
	c.cache.SetRequestCounts(minute, hour)
	return c.cache.Account()
}

// CustomizeCacheID layers a caller-supplied override onto a cached site or
// device and recomputes its derived state.
func (c *Client) CustomizeCacheID(ctx context.Context, id, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Customize(ctx, id, key, value)
}

// SetRequestDelay adjusts the per-request throttle, clamped to the
// supported range.
func (c *Client) SetRequestDelay(d time.Duration) {
	c.session.SetRequestDelay(d)
}

// SetTestDir points file-replay mode at a fixture directory.
func (c *Client) SetTestDir(dir string) {
	c.session.SetTestDir(dir)
}

func excludeSet(categories []string) map[string]bool {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[string]bool, len(categories))
	for _, e := range categories {
		set[e] = true
	}
	return set
}
