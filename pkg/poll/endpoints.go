package poll

// Cloud API endpoints driven by the poll cycles. All are POST under the
// regional base URL.
const (
	endpointSiteList       = "power_service/v1/site/get_site_list"
	endpointSceneInfo      = "power_service/v1/site/get_scen_info"
	endpointBindDevices    = "power_service/v1/app/get_relate_and_bind_devices"
	endpointWifiList       = "power_service/v1/site/get_wifi_info_list"
	endpointDeviceParm     = "power_service/v1/app/device/get_device_parm"
	endpointSetDeviceParm  = "power_service/v1/app/device/set_device_parm"
	endpointPowerCutoff    = "power_service/v1/app/compatible/get_power_cutoff"
	endpointSolarInfo      = "power_service/v1/app/compatible/get_compatible_solar_info"
	endpointSitePrice      = "power_service/v1/site/get_site_price"
	endpointSetSitePrice   = "power_service/v1/site/update_site_price"
	endpointEnergyAnalysis = "power_service/v1/site/energy_analysis"
	endpointDynamicPrice   = "power_service/v1/get_dynamic_price_details"
	endpointProductList    = "power_service/v1/app/get_product_categories"
)

// Exclusion categories callers may pass to skip optional detail fetches and
// keep request budgets down.
const (
	CategorySitePrices   = "site_prices"
	CategorySchedules    = "schedules"
	CategoryPowerCutoff  = "power_cutoff"
	CategorySolarInfo    = "solar_info"
	CategoryWifi         = "wifi"
	CategoryDynamicPrice = "dynamic_price"
	CategoryProducts     = "products"
)

// Energy exclusion categories. A site's energy analysis is fetched only
// while at least one category relevant to its device fleet stays enabled.
const (
	CategoryHomeEnergy      = "home_energy"
	CategorySolarbankEnergy = "solarbank_energy"
	CategorySmartplugEnergy = "smartplug_energy"
	CategoryGridEnergy      = "grid_energy"
)
