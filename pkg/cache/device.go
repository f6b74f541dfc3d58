package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/solixsync/solixsync/pkg/derived"
	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// deviceRule decides how one wire key merges into a device record.
// Rules with allowEmpty=false ignore empty incoming values so a sparse
// endpoint can never blank out data a richer endpoint already supplied.
type deviceRule struct {
	allowEmpty bool
	apply      func(d *types.Device, v any) error
}

func errBadValue(v any) error {
	return fmt.Errorf("unusable value %v (%T)", v, v)
}

var deviceRules = map[string]deviceRule{
	"site_id": {apply: func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		d.SiteID = s
		return nil
	}},
	// Catalog side effects (type, generation, default name) happen in the
	// recompute step so they read the merged live catalog.
	"device_pn": {apply: stringField(func(d *types.Device, s string) { d.ProductCode = s })},
	"device_name": {apply: func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		d.Name = s
		return nil
	}},
	"alias_name": {apply: func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		d.Alias = s
		return nil
	}},
	"img_url": {apply: func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		d.ImageURL = s
		return nil
	}},
	// Ownership is tri-state and never regresses to unknown. A definite
	// false is valid data, but nil and empty strings count as absent rather
	// than coercing to false.
	"is_admin": {allowEmpty: true, apply: func(d *types.Device, v any) error {
		if types.IsEmptyValue(v) {
			return nil
		}
		b, ok := types.AsBool(v)
		if !ok {
			return errBadValue(v)
		}
		d.IsAdmin = &b
		return nil
	}},
	"sw_version": {apply: stringField(func(d *types.Device, s string) { d.SWVersion = s })},
	"hw_version": {apply: stringField(func(d *types.Device, s string) { d.HWVersion = s })},
	"wifi_name":  {apply: stringField(func(d *types.Device, s string) { d.WifiSSID = s })},
	"wifi_signal": {apply: stringField(func(d *types.Device, s string) {
		d.WifiSignal = s
	})},
	"bt_ble_mac":    {apply: stringField(func(d *types.Device, s string) { d.BTMACAddr = s })},
	"wireless_type": {apply: stringField(func(d *types.Device, s string) { d.MACAddr = s })},
	"wifi_online": {allowEmpty: true, apply: func(d *types.Device, v any) error {
		b, ok := types.AsBool(v)
		if !ok {
			return errBadValue(v)
		}
		d.WifiOnline = b
		return nil
	}},
	"status": {apply: func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		d.Status = s
		d.StatusDesc = types.DeviceStatusDesc(s)
		return nil
	}},
	"charging_status": {apply: func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		d.ChargingStatus = s
		d.ChargingStatusDesc = types.ChargingStatusDescFor(s)
		return nil
	}},
	"battery_power": {apply: func(d *types.Device, v any) error {
		n, ok := types.AsInt(v)
		if !ok {
			return errBadValue(v)
		}
		d.BatterySOC = n
		return nil
	}},
	"sub_package_num": {allowEmpty: true, apply: intField(func(d *types.Device, n int) {
		d.SubPackageNum = n
	})},
	"temperature":        {apply: intField(func(d *types.Device, n int) { d.Temperature = n })},
	"photovoltaic_power": {apply: floatField(func(d *types.Device, f float64) { d.InputPower = f })},
	"output_power":       {apply: floatField(func(d *types.Device, f float64) { d.OutputPower = f })},
	// Charging power is signed; zero and negative are meaningful readings.
	"charging_power": {allowEmpty: true, apply: func(d *types.Device, v any) error {
		f, ok := types.AsFloat(v)
		if !ok {
			return errBadValue(v)
		}
		d.ChargingPower = f
		return nil
	}},
	"to_home_load":          {apply: floatField(func(d *types.Device, f float64) { d.ToHomeLoad = f })},
	"grid_to_battery_power": {apply: floatField(func(d *types.Device, f float64) { d.ACInputPower = f })},
	"solar_power_1":         {apply: floatField(func(d *types.Device, f float64) { d.SolarPower1 = f })},
	"solar_power_2":         {apply: floatField(func(d *types.Device, f float64) { d.SolarPower2 = f })},
	"solar_power_3":         {apply: floatField(func(d *types.Device, f float64) { d.SolarPower3 = f })},
	"solar_power_4":         {apply: floatField(func(d *types.Device, f float64) { d.SolarPower4 = f })},
	"output_cutoff_data":    {apply: intField(func(d *types.Device, n int) { d.PowerCutoff = n })},
	"power_cutoff_data": {apply: func(d *types.Device, v any) error {
		items, ok := v.([]any)
		if !ok {
			return errBadValue(v)
		}
		cutoffs := make([]types.PowerCutoff, 0, len(items))
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			cutoffs = append(cutoffs, types.PowerCutoff{
				ID:         types.GetInt(m, 0, "id"),
				OutputSOC:  types.GetInt(m, 0, "output_cutoff_data"),
				LowerLimit: types.GetInt(m, 0, "lowpower_input_data"),
				IsSelected: types.GetInt(m, 0, "is_selected") != 0,
			})
			if cutoffs[len(cutoffs)-1].IsSelected {
				d.PowerCutoff = cutoffs[len(cutoffs)-1].OutputSOC
			}
		}
		d.PowerCutoffData = cutoffs
		return nil
	}},
	"solar_info": {apply: func(d *types.Device, v any) error {
		m, ok := v.(map[string]any)
		if !ok {
			return errBadValue(v)
		}
		d.InverterInfo = m
		return nil
	}},
	"fittings": {apply: func(d *types.Device, v any) error {
		m, ok := v.(map[string]any)
		if !ok {
			return errBadValue(v)
		}
		d.Fittings = m
		return nil
	}},
	"schedule": {apply: func(d *types.Device, v any) error {
		m, ok := v.(map[string]any)
		if !ok {
			return errBadValue(v)
		}
		sch, mode, err := ParseSchedule(m)
		if err != nil {
			return err
		}
		d.Schedule = sch
		if mode != 0 {
			d.UsageMode = mode
		}
		return nil
	}},
	"preset_usage_mode": {apply: intField(func(d *types.Device, n int) { d.UsageMode = n })},
}

func stringField(set func(*types.Device, string)) func(*types.Device, any) error {
	return func(d *types.Device, v any) error {
		s, ok := types.AsString(v)
		if !ok {
			return errBadValue(v)
		}
		set(d, s)
		return nil
	}
}

func intField(set func(*types.Device, int)) func(*types.Device, any) error {
	return func(d *types.Device, v any) error {
		n, ok := types.AsInt(v)
		if !ok {
			return errBadValue(v)
		}
		set(d, n)
		return nil
	}
}

func floatField(set func(*types.Device, float64)) func(*types.Device, any) error {
	return func(d *types.Device, v any) error {
		f, ok := types.AsFloat(v)
		if !ok {
			return errBadValue(v)
		}
		set(d, f)
		return nil
	}
}

// MergeDevice folds one response fragment into the device keyed by the
// fragment's device_sn, creating the record on first sight. Only keys
// present in the fragment are touched; a failing key is logged and skipped
// without aborting the rest. Returns the serial and whether a record was
// merged.
func (c *Cache) MergeDevice(ctx context.Context, fragment map[string]any) (string, bool) {
	sn := types.GetString(fragment, "", "device_sn")
	if sn == "" {
		log.Ctx(ctx).DebugContext(ctx, "ignoring device fragment without serial")
		return "", false
	}

	d, ok := c.devices[sn]
	if !ok {
		d = &types.Device{SN: sn}
		c.devices[sn] = d
	}

	keys := make([]string, 0, len(fragment))
	for k := range fragment {
		if k != "device_sn" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := fragment[k]
		rule, claimed := deviceRules[k]
		if !claimed {
			if d.Extra == nil {
				d.Extra = make(map[string]any)
			}
			d.Extra[k] = v
			continue
		}
		if !rule.allowEmpty && types.IsEmptyValue(v) {
			continue
		}
		if err := rule.apply(d, v); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping device field",
				slog.String("sn", sn), slog.String("key", k), slog.Any("err", err))
		}
	}

	c.recomputeDevice(ctx, d)
	return sn, true
}

// recomputeDevice refreshes all derived fields after any merge or
// customization: catalog typing first (preset resolution reads the
// generation), then the active schedule preset, then battery energy, then
// the named operating state.
func (c *Cache) recomputeDevice(ctx context.Context, d *types.Device) {
	capacity := 0.0
	if info, ok := c.lookupProduct(d.ProductCode); ok {
		if info.Type != "" {
			d.Type = info.Type
		}
		if info.Generation > 0 {
			d.Generation = info.Generation
		}
		if d.Name == "" {
			d.Name = info.Name
		}
		capacity = info.CapacityWH
	}

	if d.Schedule != nil {
		offset := 0
		if site, ok := c.sites[d.SiteID]; ok {
			offset = site.EnergyOffsetSeconds
		}
		preset, ok := derived.ResolveActivePreset(*d.Schedule, d.Generation, d.UsageMode, c.nowFunc(), offset)
		if ok {
			d.PresetOutputPower = preset.OutputPower
			d.PresetAllowExport = preset.AllowExport
			d.PresetChargePriority = preset.ChargePriorityLimit
			d.PresetDischargePriority = preset.DischargePriority
		} else {
			d.PresetOutputPower = 0
			d.PresetAllowExport = false
			d.PresetChargePriority = 0
			d.PresetDischargePriority = 0
		}
	}

	if v, ok := d.Customized["battery_capacity"]; ok {
		if f, ok := types.AsFloat(v); ok && f > 0 {
			capacity = f
		}
	}
	if capacity > 0 {
		d.BatteryCapacity = capacity
		d.BatteryEnergy = capacity * float64(d.BatterySOC) / 100
	}

	d.DerivedStatus = derived.ClassifyStatus(*d)
}

// RedistributeCharging splits a site-level total charging power across the
// site's solarbanks. The split is proportional to each unit's previous
// charging reading; when the previous readings sum to zero the total is
// split equally.
func (c *Cache) RedistributeCharging(ctx context.Context, total float64, serials []string) {
	if len(serials) == 0 {
		return
	}
	var prior float64
	for _, sn := range serials {
		if d, ok := c.devices[sn]; ok && d.ChargingPower > 0 {
			prior += d.ChargingPower
		}
	}
	for _, sn := range serials {
		d, ok := c.devices[sn]
		if !ok {
			continue
		}
		if prior > 0 {
			share := 0.0
			if d.ChargingPower > 0 {
				share = d.ChargingPower / prior
			}
			d.ChargingPower = total * share
		} else {
			d.ChargingPower = total / float64(len(serials))
		}
		c.recomputeDevice(ctx, d)
	}
}
