package types

import "strings"

// ProductInfo is one entry of the model-code catalog.
type ProductInfo struct {
	Name       string     `json:"name"`
	Type       DeviceType `json:"type"`
	Generation int        `json:"generation"`
	CapacityWH float64    `json:"capacity_wh,omitempty"`
}

// productCatalog seeds the model-code lookup. The live catalog from the
// product categories endpoint is merged over it at poll time; entries here
// only cover models the sync logic needs generation inference for.
var productCatalog = map[string]ProductInfo{
	// Solarbank generation 1
	"A17C0": {Name: "Solarbank E1600", Type: DeviceTypeSolarbank, Generation: 1, CapacityWH: 1600},
	// Solarbank generation 2
	"A17C1": {Name: "Solarbank 2 E1600 Pro", Type: DeviceTypeSolarbank, Generation: 2, CapacityWH: 1600},
	"A17C2": {Name: "Solarbank 2 E1600 AC", Type: DeviceTypeSolarbank, Generation: 2, CapacityWH: 1600},
	"A17C3": {Name: "Solarbank 2 E1600 Plus", Type: DeviceTypeSolarbank, Generation: 2, CapacityWH: 1600},
	// Solarbank generation 3
	"A17C5": {Name: "Solarbank 3 E2700 Pro", Type: DeviceTypeSolarbank, Generation: 3, CapacityWH: 2688},
	// Expansion battery
	"A17X7": {Name: "Solarbank Expansion E1600", Type: DeviceTypeSolarbank, Generation: 2, CapacityWH: 1600},
	// Inverters
	"A5140": {Name: "MI60 Microinverter", Type: DeviceTypeInverter, Generation: 1},
	"A5143": {Name: "MI80 Microinverter", Type: DeviceTypeInverter, Generation: 1},
	// Smart meters
	"A17X8": {Name: "Smart Meter", Type: DeviceTypeSmartMeter, Generation: 1},
	"AE1R0": {Name: "Smart Meter 3-Phase", Type: DeviceTypeSmartMeter, Generation: 1},
	// Smart plugs
	"A17X9": {Name: "Smart Plug", Type: DeviceTypeSmartPlug, Generation: 1},
	// Portable power stations
	"A1753": {Name: "PPS C800X", Type: DeviceTypePPS, Generation: 1, CapacityWH: 768},
	"A1761": {Name: "PPS C1000", Type: DeviceTypePPS, Generation: 1, CapacityWH: 1056},
	"A1770": {Name: "PPS F1200", Type: DeviceTypePPS, Generation: 1, CapacityWH: 1229},
	"A1771": {Name: "PPS F1500", Type: DeviceTypePPS, Generation: 1, CapacityWH: 1536},
	"A1772": {Name: "PPS F2000", Type: DeviceTypePPS, Generation: 1, CapacityWH: 2048},
	"A1780": {Name: "PPS F2600", Type: DeviceTypePPS, Generation: 1, CapacityWH: 2560},
	"A1790": {Name: "PPS F3800", Type: DeviceTypePPS, Generation: 1, CapacityWH: 3840},
	// Home power panels
	"A17B1": {Name: "Home Power Panel", Type: DeviceTypePowerPanel, Generation: 1},
	// Home energy systems
	"A5101": {Name: "X1 Energy System", Type: DeviceTypeHES, Generation: 1},
	"A5102": {Name: "X1 Battery Module", Type: DeviceTypeHES, Generation: 1},
	"A5103": {Name: "X1 Hybrid Inverter", Type: DeviceTypeHES, Generation: 1},
}

// CatalogProducts returns a copy of the built-in model catalog.
func CatalogProducts() map[string]ProductInfo {
	out := make(map[string]ProductInfo, len(productCatalog))
	for k, v := range productCatalog {
		out[k] = v
	}
	return out
}

// LookupProduct resolves a model code to its catalog entry, matching the
// code's 5-character family prefix when the exact code is unknown.
func LookupProduct(code string) (ProductInfo, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if p, ok := productCatalog[code]; ok {
		return p, true
	}
	if len(code) > 5 {
		if p, ok := productCatalog[code[:5]]; ok {
			return p, true
		}
	}
	return ProductInfo{}, false
}

// GenerationForModel infers the device generation from the model code.
// Unknown models default to generation 1, the conservative choice for the
// status classifier.
func GenerationForModel(code string) int {
	if p, ok := LookupProduct(code); ok && p.Generation > 0 {
		return p.Generation
	}
	return 1
}

// TypeForModel infers the device category from the model code.
func TypeForModel(code string) DeviceType {
	if p, ok := LookupProduct(code); ok {
		return p.Type
	}
	return ""
}
