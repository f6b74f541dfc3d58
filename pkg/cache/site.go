package cache

import (
	"context"
	"log/slog"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// Sub-document blocks from the scene snapshot kept verbatim per site. Their
// shape varies by product family, so they merge as whole maps and are only
// replaced by non-empty incoming blocks.
var siteSubDocs = map[string]func(*types.Site, map[string]any){
	"solarbank_info":  func(s *types.Site, m map[string]any) { s.SolarbankInfo = m },
	"pps_info":        func(s *types.Site, m map[string]any) { s.PpsInfo = m },
	"grid_info":       func(s *types.Site, m map[string]any) { s.GridInfo = m },
	"smart_plug_info": func(s *types.Site, m map[string]any) { s.SmartplugInfo = m },
	"solar_info":      func(s *types.Site, m map[string]any) { s.SolarInfo = m },
	"hes_info":        func(s *types.Site, m map[string]any) { s.HesInfo = m },
}

// siteClaimedKeys are wire keys the merge consumes explicitly; everything
// else lands in Extra.
var siteClaimedKeys = map[string]bool{
	"site_id": true, "site_info": true, "energy_offset_tz": true,
	"powerpanel_list": true, "site_details": true, "statistics": true,
}

// MergeSite folds one response fragment into the site keyed by the
// fragment's site ID, creating the record on first sight. The ID may sit at
// the top level or inside the site_info block.
func (c *Cache) MergeSite(ctx context.Context, fragment map[string]any) (string, bool) {
	id := types.GetString(fragment, "", "site_id")
	if id == "" {
		id = types.GetString(fragment, "", "site_info", "site_id")
	}
	if id == "" {
		log.Ctx(ctx).DebugContext(ctx, "ignoring site fragment without id")
		return "", false
	}

	s, ok := c.sites[id]
	if !ok {
		s = &types.Site{ID: id}
		c.sites[id] = s
	}

	if info := types.GetMap(fragment, "site_info"); info != nil {
		c.mergeSiteInfo(s, info)
	}
	if off := types.GetInt(fragment, 0, "energy_offset_tz"); off != 0 {
		s.EnergyOffsetSeconds = off
	}
	for key, set := range siteSubDocs {
		if m := types.GetMap(fragment, key); len(m) > 0 {
			set(s, m)
		}
	}
	if list := types.GetSlice(fragment, "powerpanel_list"); len(list) > 0 {
		s.PowerpanelList = list
	}
	if details := types.GetMap(fragment, "site_details"); details != nil {
		c.MergeSitePrice(ctx, id, details)
	}

	for k, v := range fragment {
		if siteClaimedKeys[k] || siteSubDocs[k] != nil {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = v
	}
	return id, true
}

func (c *Cache) mergeSiteInfo(s *types.Site, info map[string]any) {
	if v := types.GetString(info, "", "site_name"); v != "" {
		s.Info.Name = v
	}
	if v := types.GetString(info, "", "site_img"); v != "" {
		s.Info.ImageURL = v
	}
	if v := types.GetInt(info, 0, "power_site_type"); v != 0 {
		s.Info.PowerSiteType = v
	}
	if list := types.GetSlice(info, "device_type_list"); list != nil {
		dt := make([]int, 0, len(list))
		for _, e := range list {
			if n, ok := types.AsInt(e); ok {
				dt = append(dt, n)
			}
		}
		s.Info.DeviceTypes = dt
	}
	if v, ok := types.AsBool(types.GetNested(info, nil, "is_allow_delete")); ok {
		s.Info.IsAllowDelete = v
	}
	if ms := types.GetInt(info, 0, "ms_type"); ms != 0 {
		s.Info.MemberType = ms
		s.Admin = ms == types.MemberTypeOwner
	}
	s.Info.SiteID = s.ID
}

// MergeSitePrice merges a pricing fragment (site details or the price
// endpoint response) into the site's details block.
func (c *Cache) MergeSitePrice(ctx context.Context, siteID string, fragment map[string]any) bool {
	s, ok := c.sites[siteID]
	if !ok {
		log.Ctx(ctx).DebugContext(ctx, "price fragment for unknown site",
			slog.String("siteID", siteID))
		return false
	}
	if v, ok := types.AsFloat(types.GetNested(fragment, nil, "price")); ok {
		s.Details.Price = v
	}
	if v, ok := types.AsFloat(types.GetNested(fragment, nil, "site_co2")); ok {
		s.Details.SiteCO2 = v
	}
	if v := types.GetString(fragment, "", "site_price_unit"); v != "" {
		s.Details.Currency = v
	}
	if v := types.GetString(fragment, "", "price_type"); v != "" {
		s.Details.PriceType = v
	}
	if dyn := types.GetMap(fragment, "dynamic_price"); dyn != nil {
		if v := types.GetString(dyn, "", "company"); v != "" {
			provider := v
			if area := types.GetString(dyn, "", "area"); area != "" {
				provider += "/" + area
			}
			s.Details.DynamicPriceProvider = provider
		}
	}
	if v, ok := types.AsFloat(types.GetNested(fragment, nil, "dynamic_price_fee")); ok {
		s.Details.DynamicPriceFee = v
	}
	if v, ok := types.AsFloat(types.GetNested(fragment, nil, "dynamic_price_vat")); ok {
		s.Details.DynamicPriceVAT = v
	}
	return true
}

// MergeSiteEnergy stores one day's aggregated energy for a site. Today's
// figures are replaced on every energy cycle; yesterday's only change when
// the date rolls over, which the poller uses to fetch them once per day.
func (c *Cache) MergeSiteEnergy(ctx context.Context, siteID string, day types.DailyEnergy, today bool) bool {
	s, ok := c.sites[siteID]
	if !ok {
		return false
	}
	d := day
	if today {
		s.EnergyDetails.Today = &d
	} else {
		s.EnergyDetails.Yesterday = &d
	}
	return true
}
