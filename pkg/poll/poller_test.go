package poll

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/solixsync/solixsync/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher scripts responses per endpoint and records every call.
type fakeFetcher struct {
	responses map[string]map[string]any
	calls     []string
	errs      map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]map[string]any),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) key(endpoint, entityID string) string {
	if entityID == "" {
		return endpoint
	}
	return endpoint + "#" + entityID
}

func (f *fakeFetcher) set(endpoint, entityID string, data map[string]any) {
	f.responses[f.key(endpoint, entityID)] = data
}

func (f *fakeFetcher) Fetch(_ context.Context, _, endpoint string, _ map[string]any, _ bool, entityID string) (map[string]any, error) {
	key := f.key(endpoint, entityID)
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if data, ok := f.responses[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no scripted response for %s", key)
}

func (f *fakeFetcher) count(endpoint, entityID string) int {
	n := 0
	for _, c := range f.calls {
		if c == f.key(endpoint, entityID) {
			n++
		}
	}
	return n
}

func scriptStatusCycle(f *fakeFetcher) {
	f.set(endpointSiteList, "", map[string]any{
		"site_list": []any{
			map[string]any{"site_id": "site-1", "site_name": "Home", "ms_type": float64(1)},
		},
	})
	f.set(endpointSceneInfo, "site-1", map[string]any{
		"solarbank_info": map[string]any{
			"total_charging_power": "600",
			"solarbank_list": []any{
				map[string]any{"device_sn": "SB1", "device_pn": "A17C1", "battery_power": "70", "charging_power": "600"},
			},
		},
	})
	f.set(endpointBindDevices, "", map[string]any{
		"data": []any{
			map[string]any{"device_sn": "SB1", "site_id": "site-1", "alias_name": "Balkon"},
		},
	})
	f.set(endpointProductList, "", map[string]any{"product_list": []any{}})
}

func TestUpdateSites(t *testing.T) {
	ctx := context.Background()

	t.Run("Full Pass Merges And Recycles", func(t *testing.T) {
		c := cache.New()
		// A device from an earlier pass that the cloud no longer reports.
		c.MergeDevice(ctx, map[string]any{"device_sn": "GONE"})

		f := newFakeFetcher()
		scriptStatusCycle(f)
		p := New(f, c, "DE")

		require.NoError(t, p.UpdateSites(ctx, "", false, nil))

		sites := c.Sites()
		require.Contains(t, sites, "site-1")
		assert.True(t, sites["site-1"].Admin)

		devs := c.Devices()
		require.Contains(t, devs, "SB1")
		assert.NotContains(t, devs, "GONE", "a full pass recycles unseen devices")
		sb := devs["SB1"]
		assert.Equal(t, 70, sb.BatterySOC)
		assert.Equal(t, "Balkon", sb.Alias, "bind list data merges onto the same record")
		assert.True(t, sb.Admin(), "site ownership propagates to its devices")
	})

	t.Run("Scoped Refresh Reuses Cached Site", func(t *testing.T) {
		c := cache.New()
		f := newFakeFetcher()
		scriptStatusCycle(f)
		p := New(f, c, "DE")

		require.NoError(t, p.UpdateSites(ctx, "", false, nil))
		require.NoError(t, p.UpdateSites(ctx, "site-1", false, nil))
		assert.Equal(t, 1, f.count(endpointSiteList, ""), "a cached descriptor skips the list call")
		assert.Equal(t, 2, f.count(endpointSceneInfo, "site-1"))
	})

	t.Run("Single Site Pass Does Not Recycle", func(t *testing.T) {
		c := cache.New()
		c.MergeDevice(ctx, map[string]any{"device_sn": "OTHER"})

		f := newFakeFetcher()
		scriptStatusCycle(f)
		p := New(f, c, "DE")

		require.NoError(t, p.UpdateSites(ctx, "site-1", false, nil))
		assert.Contains(t, c.Devices(), "OTHER", "targeted refreshes never delete")
	})

	t.Run("Site List Failure Is Fatal", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs[endpointSiteList] = fmt.Errorf("boom")
		p := New(f, cache.New(), "DE")
		require.Error(t, p.UpdateSites(ctx, "", false, nil))
	})

	t.Run("Scene Failure Degrades", func(t *testing.T) {
		c := cache.New()
		f := newFakeFetcher()
		scriptStatusCycle(f)
		f.errs[f.key(endpointSceneInfo, "site-1")] = fmt.Errorf("boom")
		p := New(f, c, "DE")

		require.NoError(t, p.UpdateSites(ctx, "", false, nil), "one bad scene must not abort the pass")
		assert.Contains(t, c.Sites(), "site-1")
	})

	t.Run("Products Can Be Excluded", func(t *testing.T) {
		f := newFakeFetcher()
		scriptStatusCycle(f)
		p := New(f, cache.New(), "DE")

		require.NoError(t, p.UpdateSites(ctx, "", false, map[string]bool{CategoryProducts: true}))
		assert.Zero(t, f.count(endpointProductList, ""))
	})
}

func TestRedistributionAcrossSolarbanks(t *testing.T) {
	ctx := context.Background()
	c := cache.New()
	// Prior readings to split proportionally against.
	c.MergeDevice(ctx, map[string]any{"device_sn": "SB1", "charging_power": float64(300)})
	c.MergeDevice(ctx, map[string]any{"device_sn": "SB2", "charging_power": float64(100)})

	f := newFakeFetcher()
	f.set(endpointSiteList, "", map[string]any{
		"site_list": []any{map[string]any{"site_id": "site-1"}},
	})
	f.set(endpointSceneInfo, "site-1", map[string]any{
		"solarbank_info": map[string]any{
			"total_charging_power": "800",
			"solarbank_list": []any{
				map[string]any{"device_sn": "SB1"},
				map[string]any{"device_sn": "SB2"},
			},
		},
	})
	f.set(endpointBindDevices, "", map[string]any{"data": []any{}})
	f.set(endpointProductList, "", map[string]any{"product_list": []any{}})

	p := New(f, c, "DE")
	require.NoError(t, p.UpdateSites(ctx, "", false, nil))

	devs := c.Devices()
	assert.Equal(t, 600.0, devs["SB1"].ChargingPower)
	assert.Equal(t, 200.0, devs["SB2"].ChargingPower)
}

func TestUpdateDeviceDetails(t *testing.T) {
	ctx := context.Background()

	setup := func() (*cache.Cache, *fakeFetcher, *Poller) {
		c := cache.New()
		c.MergeSite(ctx, map[string]any{
			"site_id":   "site-1",
			"site_info": map[string]any{"ms_type": float64(1)},
		})
		c.MergeDevice(ctx, map[string]any{
			"device_sn": "SB1", "device_pn": "A17C1", "site_id": "site-1", "is_admin": true,
		})

		f := newFakeFetcher()
		f.set(endpointBindDevices, "", map[string]any{"data": []any{}})
		f.set(endpointWifiList, "site-1", map[string]any{
			"wifi_info_list": []any{
				map[string]any{"device_sn": "SB1", "wifi_name": "HomeNet", "wifi_signal": "80"},
			},
		})
		f.set(endpointDeviceParm, "site-1", map[string]any{
			"param_data": `{"mode_type":1,"custom_rate_plan":[{"index":0,"week":[0,1,2,3,4,5,6],"ranges":[{"start_time":"00:00","end_time":"24:00","power":350}]}]}`,
		})
		f.set(endpointSolarInfo, "SB1", map[string]any{"solar_brand": "anker"})
		f.set(endpointSitePrice, "site-1", map[string]any{"price": 0.31, "site_price_unit": "€"})
		return c, f, New(f, c, "DE")
	}

	t.Run("Admin Device Gets Schedule And Wifi", func(t *testing.T) {
		c, _, p := setup()
		require.NoError(t, p.UpdateDeviceDetails(ctx, false, nil))

		d := c.Devices()["SB1"]
		assert.Equal(t, "HomeNet", d.WifiSSID)
		require.NotNil(t, d.Schedule)
		require.Len(t, d.Schedule.RatePlans, 1)
		assert.Equal(t, 1, d.UsageMode)
		assert.Equal(t, 350.0, d.PresetOutputPower, "merging a schedule resolves the active preset")
		assert.Equal(t, "anker", d.InverterInfo["solar_brand"])

		assert.Equal(t, 0.31, c.Sites()["site-1"].Details.Price)
	})

	t.Run("Wifi Fetched Once Per Site", func(t *testing.T) {
		c, f, p := setup()
		c.MergeDevice(ctx, map[string]any{
			"device_sn": "SB2", "device_pn": "A17C1", "site_id": "site-1", "is_admin": true,
		})
		f.set(endpointSolarInfo, "SB2", map[string]any{})
		require.NoError(t, p.UpdateDeviceDetails(ctx, false, nil))
		assert.Equal(t, 1, f.count(endpointWifiList, "site-1"))
	})

	t.Run("Non Admin Skips Gated Endpoints", func(t *testing.T) {
		c, f, p := setup()
		c.MergeDevice(ctx, map[string]any{"device_sn": "SB1", "is_admin": false})
		require.NoError(t, p.UpdateDeviceDetails(ctx, false, nil))
		assert.Zero(t, f.count(endpointDeviceParm, "site-1"))
	})

	t.Run("Exclusions Skip Categories", func(t *testing.T) {
		_, f, p := setup()
		require.NoError(t, p.UpdateDeviceDetails(ctx, false, map[string]bool{
			CategorySchedules:  true,
			CategoryWifi:       true,
			CategorySitePrices: true,
			CategorySolarInfo:  true,
		}))
		assert.Equal(t, []string{endpointBindDevices}, f.calls, "only the discovery fetch remains")
	})

	t.Run("Discovers Devices From Bind List", func(t *testing.T) {
		c, f, p := setup()
		f.set(endpointBindDevices, "", map[string]any{
			"data": []any{map[string]any{"device_sn": "PLUG1", "device_pn": "A17X9"}},
		})
		require.NoError(t, p.UpdateDeviceDetails(ctx, false, nil))
		assert.Contains(t, c.Devices(), "PLUG1", "standalone devices appear through the bind list")
	})
}

func TestUpdateDeviceEnergyExclusions(t *testing.T) {
	ctx := context.Background()

	setup := func() (*cache.Cache, *fakeFetcher, *Poller) {
		c := cache.New()
		c.MergeSite(ctx, map[string]any{"site_id": "site-1"})
		c.MergeDevice(ctx, map[string]any{"device_sn": "SB1", "device_pn": "A17C1", "site_id": "site-1"})
		f := newFakeFetcher()
		f.set(endpointEnergyAnalysis, "site-1", map[string]any{"solar_production": "1.0"})
		f.set(endpointEnergyAnalysis, "site-1_yesterday", map[string]any{})
		return c, f, New(f, c, "DE")
	}

	t.Run("All Relevant Categories Excluded Skips The Site", func(t *testing.T) {
		_, f, p := setup()
		require.NoError(t, p.UpdateDeviceEnergy(ctx, false, map[string]bool{
			CategoryHomeEnergy:      true,
			CategorySolarbankEnergy: true,
			CategorySmartplugEnergy: true,
			CategoryGridEnergy:      true,
		}))
		assert.Empty(t, f.calls)
	})

	t.Run("One Enabled Category Keeps The Fetch", func(t *testing.T) {
		c, f, p := setup()
		require.NoError(t, p.UpdateDeviceEnergy(ctx, false, map[string]bool{
			CategoryHomeEnergy: true,
		}))
		assert.Equal(t, 1, f.count(endpointEnergyAnalysis, "site-1"), "the solarbank category stays enabled")
		require.NotNil(t, c.Sites()["site-1"].EnergyDetails.Today)
	})
}

func TestUpdateDeviceEnergy(t *testing.T) {
	ctx := context.Background()

	c := cache.New()
	c.MergeSite(ctx, map[string]any{"site_id": "site-1"})

	f := newFakeFetcher()
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	f.set(endpointEnergyAnalysis, "site-1", map[string]any{
		"solar_production": "12.5",
		"home_usage":       "9.1",
	})
	f.set(endpointEnergyAnalysis, "site-1_yesterday", map[string]any{
		"solar_production": "10.0",
	})

	p := New(f, c, "DE")
	p.nowFunc = func() time.Time { return now }

	require.NoError(t, p.UpdateDeviceEnergy(ctx, false, nil))

	s := c.Sites()["site-1"]
	require.NotNil(t, s.EnergyDetails.Today)
	assert.Equal(t, "2026-08-30", s.EnergyDetails.Today.Date)
	assert.Equal(t, 12.5, s.EnergyDetails.Today.SolarProduction)
	require.NotNil(t, s.EnergyDetails.Yesterday)
	assert.Equal(t, "2026-08-29", s.EnergyDetails.Yesterday.Date)

	// The second cycle refreshes today but not yesterday.
	require.NoError(t, p.UpdateDeviceEnergy(ctx, false, nil))
	assert.Equal(t, 2, f.count(endpointEnergyAnalysis, "site-1"))
	assert.Equal(t, 1, f.count(endpointEnergyAnalysis, "site-1_yesterday"))
}

func TestRefreshDynamicPrice(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 14, 10, 0, 0, time.UTC)

	setup := func() (*cache.Cache, *fakeFetcher, *Poller) {
		c := cache.New()
		c.MergeSite(ctx, map[string]any{"site_id": "site-1"})
		c.MergeSitePrice(ctx, "site-1", map[string]any{
			"price_type":    "dynamic",
			"dynamic_price": map[string]any{"company": "Nordpool", "area": "GER"},
		})
		f := newFakeFetcher()
		f.set(endpointDynamicPrice, "site-1", map[string]any{
			"price_list": []any{
				map[string]any{"timestamp": float64(now.Truncate(time.Hour).Unix()), "spot_price": 81.76},
				map[string]any{"timestamp": float64(now.Truncate(time.Hour).Add(time.Hour).Unix()), "spot_price": 90.0},
			},
		})
		p := New(f, c, "DE")
		p.nowFunc = func() time.Time { return now }
		return c, f, p
	}

	t.Run("Fetches And Derives Retail", func(t *testing.T) {
		c, _, p := setup()
		require.NoError(t, p.RefreshDynamicPrice(ctx, "site-1", false, false))

		fc := c.PriceForecast("Nordpool/GER")
		require.NotNil(t, fc)
		require.Len(t, fc.Slots, 2)
		// German defaults: (81.76/1000 + 0.1537) * 1.19
		assert.InDelta(t, 0.2802, fc.Slots[0].TotalPerKWH, 0.0001)
		assert.Equal(t, now, fc.PolledAt)
	})

	t.Run("Hourly Gate", func(t *testing.T) {
		_, f, p := setup()
		require.NoError(t, p.RefreshDynamicPrice(ctx, "site-1", false, false))
		require.NoError(t, p.RefreshDynamicPrice(ctx, "site-1", false, false))
		assert.Equal(t, 1, f.count(endpointDynamicPrice, "site-1"), "same hour, no refetch")

		require.NoError(t, p.RefreshDynamicPrice(ctx, "site-1", false, true))
		assert.Equal(t, 2, f.count(endpointDynamicPrice, "site-1"), "force bypasses the gate")
	})

	t.Run("No Provider Is A NoOp", func(t *testing.T) {
		c := cache.New()
		c.MergeSite(ctx, map[string]any{"site_id": "site-2"})
		f := newFakeFetcher()
		p := New(f, c, "DE")
		require.NoError(t, p.RefreshDynamicPrice(ctx, "site-2", false, false))
		assert.Empty(t, f.calls)
	})

	t.Run("Unknown Site", func(t *testing.T) {
		_, _, p := setup()
		require.Error(t, p.RefreshDynamicPrice(ctx, "missing", false, false))
	})
}

func TestSetters(t *testing.T) {
	ctx := context.Background()

	t.Run("SetSitePrice", func(t *testing.T) {
		c := cache.New()
		c.MergeSite(ctx, map[string]any{
			"site_id":   "site-1",
			"site_info": map[string]any{"ms_type": float64(1)},
		})
		f := newFakeFetcher()
		f.set(endpointSetSitePrice, "", map[string]any{})

		p := New(f, c, "DE")
		require.NoError(t, p.SetSitePrice(ctx, "site-1", 0.29, 350, "€"))
		s := c.Sites()["site-1"]
		assert.Equal(t, 0.29, s.Details.Price)
		assert.Equal(t, "€", s.Details.Currency)
	})

	t.Run("SetSitePrice Requires Admin", func(t *testing.T) {
		c := cache.New()
		c.MergeSite(ctx, map[string]any{
			"site_id":   "site-1",
			"site_info": map[string]any{"ms_type": float64(2)},
		})
		p := New(newFakeFetcher(), c, "DE")
		require.Error(t, p.SetSitePrice(ctx, "site-1", 0.29, 350, "€"))
	})

	t.Run("SetDeviceParm Writes And Rereads", func(t *testing.T) {
		c := cache.New()
		c.MergeDevice(ctx, map[string]any{
			"device_sn": "SB1", "device_pn": "A17C0", "site_id": "site-1", "is_admin": true,
		})
		f := newFakeFetcher()
		f.set(endpointSetDeviceParm, "", map[string]any{})
		f.set(endpointDeviceParm, "site-1", map[string]any{
			"param_data": `{"ranges":[{"start_time":"00:00","end_time":"24:00","appliance_load":200}]}`,
		})

		p := New(f, c, "DE")
		require.NoError(t, p.SetDeviceParm(ctx, "site-1", "SB1", map[string]any{"ranges": []any{}}))
		require.Equal(t, 1, f.count(endpointDeviceParm, "site-1"), "the accepted schedule is read back")

		d := c.Devices()["SB1"]
		require.NotNil(t, d.Schedule)
		assert.Equal(t, 200, d.Schedule.Slots[0].ApplianceLoad)
	})

	t.Run("SetDeviceParm Requires Admin", func(t *testing.T) {
		c := cache.New()
		c.MergeDevice(ctx, map[string]any{"device_sn": "SB1", "is_admin": false})
		p := New(newFakeFetcher(), c, "DE")
		require.Error(t, p.SetDeviceParm(ctx, "site-1", "SB1", map[string]any{}))
	})
}
