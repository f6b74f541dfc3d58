package cache

import (
	"context"
	"testing"

	"github.com/solixsync/solixsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSite(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires ID", func(t *testing.T) {
		c := New()
		_, ok := c.MergeSite(ctx, map[string]any{"site_info": map[string]any{"site_name": "x"}})
		assert.False(t, ok)
	})

	t.Run("ID From Info Block", func(t *testing.T) {
		c := New()
		id, ok := c.MergeSite(ctx, map[string]any{
			"site_info": map[string]any{"site_id": "site-1", "site_name": "Home"},
		})
		require.True(t, ok)
		assert.Equal(t, "site-1", id)
		assert.Equal(t, "Home", c.Sites()["site-1"].Info.Name)
	})

	t.Run("Admin From Member Type", func(t *testing.T) {
		c := New()
		c.MergeSite(ctx, map[string]any{
			"site_id":   "site-1",
			"site_info": map[string]any{"ms_type": float64(types.MemberTypeOwner)},
		})
		assert.True(t, c.Sites()["site-1"].Admin)

		c.MergeSite(ctx, map[string]any{
			"site_id":   "site-1",
			"site_info": map[string]any{"ms_type": float64(types.MemberTypeMember)},
		})
		assert.False(t, c.Sites()["site-1"].Admin, "membership downgrades apply")
	})

	t.Run("Sub Documents Replace Only When Non Empty", func(t *testing.T) {
		c := New()
		c.MergeSite(ctx, map[string]any{
			"site_id":        "site-1",
			"solarbank_info": map[string]any{"total_charging_power": "500"},
		})
		c.MergeSite(ctx, map[string]any{
			"site_id":        "site-1",
			"solarbank_info": map[string]any{},
		})
		s := c.Sites()["site-1"]
		assert.Equal(t, "500", s.SolarbankInfo["total_charging_power"], "empty blocks must not wipe data")
	})

	t.Run("Unknown Keys Land In Extra", func(t *testing.T) {
		c := New()
		c.MergeSite(ctx, map[string]any{
			"site_id":      "site-1",
			"future_field": "value",
		})
		assert.Equal(t, "value", c.Sites()["site-1"].Extra["future_field"])
	})

	t.Run("Energy Offset", func(t *testing.T) {
		c := New()
		c.MergeSite(ctx, map[string]any{
			"site_id":          "site-1",
			"energy_offset_tz": float64(7200),
		})
		assert.Equal(t, 7200, c.Sites()["site-1"].EnergyOffsetSeconds)
	})
}

func TestMergeSitePrice(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.MergeSite(ctx, map[string]any{"site_id": "site-1"})

	ok := c.MergeSitePrice(ctx, "site-1", map[string]any{
		"price":           0.32,
		"site_co2":        float64(400),
		"site_price_unit": "€",
		"price_type":      "dynamic",
		"dynamic_price":   map[string]any{"company": "Nordpool", "area": "GER"},
	})
	require.True(t, ok)

	s := c.Sites()["site-1"]
	assert.Equal(t, 0.32, s.Details.Price)
	assert.Equal(t, 400.0, s.Details.SiteCO2)
	assert.Equal(t, "€", s.Details.Currency)
	assert.Equal(t, "dynamic", s.Details.PriceType)
	assert.Equal(t, "Nordpool/GER", s.Details.DynamicPriceProvider)

	assert.False(t, c.MergeSitePrice(ctx, "missing", map[string]any{}))
}

func TestMergeSiteEnergy(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.MergeSite(ctx, map[string]any{"site_id": "site-1"})

	today := types.DailyEnergy{Date: "2026-08-30", SolarProduction: 12.5, HomeUsage: 9.1}
	require.True(t, c.MergeSiteEnergy(ctx, "site-1", today, true))

	yesterday := types.DailyEnergy{Date: "2026-08-29", SolarProduction: 10.0}
	require.True(t, c.MergeSiteEnergy(ctx, "site-1", yesterday, false))

	s := c.Sites()["site-1"]
	require.NotNil(t, s.EnergyDetails.Today)
	assert.Equal(t, 12.5, s.EnergyDetails.Today.SolarProduction)
	require.NotNil(t, s.EnergyDetails.Yesterday)
	assert.Equal(t, "2026-08-29", s.EnergyDetails.Yesterday.Date)

	assert.False(t, c.MergeSiteEnergy(ctx, "missing", today, true))
}

func TestMergeAccountAndProducts(t *testing.T) {
	ctx := context.Background()
	c := New()

	c.MergeAccount(ctx, map[string]any{
		"email":    "user@example.com",
		"nickname": "tester",
		"country":  "DE",
		"extra1":   "kept",
	})
	a := c.Account()
	assert.Equal(t, "user@example.com", a.Email)
	assert.Equal(t, "tester", a.Nickname)
	assert.Equal(t, "kept", a.Extra["extra1"])

	// Empty identity fields do not regress.
	c.MergeAccount(ctx, map[string]any{"nickname": ""})
	assert.Equal(t, "tester", c.Account().Nickname)

	n := c.MergeProducts(ctx, []any{
		map[string]any{"product_code": "A17C0", "product_name": "Solarbank E1600 Gen 1"},
		map[string]any{"product_code": "NEW01", "product_name": "Future Device", "capacity": float64(2000)},
		map[string]any{"product_name": "no code"},
	})
	assert.Equal(t, 2, n)

	a = c.Account()
	assert.Equal(t, "Solarbank E1600 Gen 1", a.Products["A17C0"].Name)
	assert.Equal(t, 1, a.Products["A17C0"].Generation, "catalog generation survives the live merge")
	assert.Equal(t, 2000.0, a.Products["NEW01"].CapacityWH)
}
