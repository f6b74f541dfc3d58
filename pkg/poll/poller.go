// Package poll drives the three refresh cycles against the cloud API and
// feeds every response fragment through the cache merge rules. Cycles
// degrade per endpoint: a failing detail fetch logs and moves on so one bad
// response cannot abort a whole pass.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/solixsync/solixsync/pkg/cache"
	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// Fetcher is the transport the poller runs on. Live sessions and the
// file-replay adapter both satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, method, endpoint string, payload map[string]any, fromFile bool, entityID string) (map[string]any, error)
}

// Poller owns the cycle logic. It holds no synchronization of its own;
// callers run at most one cycle at a time, matching the cache's contract.
type Poller struct {
	fetcher Fetcher
	cache   *cache.Cache
	country string

	// nowFunc is swapped in tests.
	nowFunc func() time.Time
}

// New returns a poller bound to a transport and a merge target.
func New(f Fetcher, c *cache.Cache, country string) *Poller {
	return &Poller{fetcher: f, cache: c, country: country, nowFunc: time.Now}
}

// UpdateSites runs the status cycle: the site list, each site's scene
// snapshot with its embedded device telemetry, and the bound-device list.
// When siteID is non-empty only that site is refreshed and no recycling
// happens; a targeted refresh of an already-cached site reuses its stored
// descriptor and skips the list call entirely. A full pass recycles sites
// and devices that disappeared.
func (p *Poller) UpdateSites(ctx context.Context, siteID string, fromFile bool, exclude map[string]bool) error {
	var activeSites []string
	var activeDevices []string

	if siteID != "" && p.cache.Site(siteID) != nil {
		activeSites = []string{siteID}
	} else {
		data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointSiteList, map[string]any{}, fromFile, "")
		if err != nil {
			return fmt.Errorf("site list: %w", err)
		}
		for _, e := range types.GetSlice(data, "site_list") {
			info, ok := e.(map[string]any)
			if !ok {
				continue
			}
			id := types.GetString(info, "", "site_id")
			if id == "" || (siteID != "" && id != siteID) {
				continue
			}
			p.cache.MergeSite(ctx, map[string]any{"site_id": id, "site_info": info})
			activeSites = append(activeSites, id)
		}
	}

	for _, id := range activeSites {
		serials, err := p.updateScene(ctx, id, fromFile)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "scene snapshot failed",
				slog.String("siteID", id), slog.Any("err", err))
			continue
		}
		activeDevices = append(activeDevices, serials...)
	}

	bound, err := p.updateBindDevices(ctx, siteID, fromFile)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "bind device list failed", slog.Any("err", err))
	} else {
		activeDevices = append(activeDevices, bound...)
	}

	if !exclude[CategoryProducts] {
		if err := p.updateProducts(ctx, fromFile); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "product catalog refresh failed", slog.Any("err", err))
		}
	}

	if siteID == "" {
		p.cache.RecycleSites(ctx, activeSites)
		p.cache.RecycleDevices(ctx, nil, activeDevices)
	}
	p.syncRequestCounts()
	return nil
}

// Device list blocks inside a scene snapshot, by the sub-document that
// carries them.
var sceneDeviceLists = [][2]string{
	{"solarbank_info", "solarbank_list"},
	{"pps_info", "pps_list"},
	{"grid_info", "grid_list"},
	{"smart_plug_info", "smartplug_list"},
	{"hes_info", "hes_list"},
}

func (p *Poller) updateScene(ctx context.Context, siteID string, fromFile bool) ([]string, error) {
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointSceneInfo,
		map[string]any{"site_id": siteID}, fromFile, siteID)
	if err != nil {
		return nil, err
	}
	data["site_id"] = siteID
	p.cache.MergeSite(ctx, data)

	admin := false
	if s := p.cache.Site(siteID); s != nil {
		admin = s.Admin
	}

	var serials []string
	var solarbanks []string
	for _, lists := range sceneDeviceLists {
		for _, e := range types.GetSlice(data, lists[0], lists[1]) {
			frag, ok := e.(map[string]any)
			if !ok {
				continue
			}
			frag["site_id"] = siteID
			if _, has := frag["is_admin"]; !has {
				frag["is_admin"] = admin
			}
			sn, merged := p.cache.MergeDevice(ctx, frag)
			if !merged {
				continue
			}
			serials = append(serials, sn)
			if lists[0] == "solarbank_info" {
				solarbanks = append(solarbanks, sn)
			}
		}
	}

	// Sites with several solarbanks report one combined charging power; the
	// per-device figures are reconstructed from it.
	if len(solarbanks) > 1 {
		if total, ok := types.AsFloat(types.GetNested(data, nil, "solarbank_info", "total_charging_power")); ok {
			p.cache.RedistributeCharging(ctx, total, solarbanks)
		}
	}
	return serials, nil
}

func (p *Poller) updateBindDevices(ctx context.Context, siteID string, fromFile bool) ([]string, error) {
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointBindDevices, map[string]any{}, fromFile, "")
	if err != nil {
		return nil, err
	}
	var serials []string
	for _, e := range types.GetSlice(data, "data") {
		frag, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if siteID != "" && types.GetString(frag, "", "site_id") != siteID {
			continue
		}
		if sn, merged := p.cache.MergeDevice(ctx, frag); merged {
			serials = append(serials, sn)
		}
	}
	return serials, nil
}

func (p *Poller) updateProducts(ctx context.Context, fromFile bool) error {
	data, err := p.fetcher.Fetch(ctx, http.MethodPost, endpointProductList, map[string]any{}, fromFile, "")
	if err != nil {
		return err
	}
	n := p.cache.MergeProducts(ctx, types.GetSlice(data, "product_list"))
	log.Ctx(ctx).DebugContext(ctx, "refreshed product catalog", slog.Int("products", n))
	return nil
}

// syncRequestCounts copies the transport's trailing request counters into
// the account record when the transport exposes them.
func (p *Poller) syncRequestCounts() {
	if c, ok := p.fetcher.(interface{ RequestCounts() (int, int) }); ok {
		minute, hour := c.RequestCounts()
		p.cache.SetRequestCounts(minute, hour)
	}
}
