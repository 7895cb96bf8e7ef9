package constants

import "strings"

// WaferType is the two- or three-letter family prefix carried in component
// names (e.g. "3CA0000_COR-V3-14" is a CA wafer).
type WaferType string

const (
	WaferBI  WaferType = "BI"
	WaferCDM WaferType = "CDM"
	WaferCA  WaferType = "CA"
	WaferCB  WaferType = "CB"
	WaferCM  WaferType = "CM"
	WaferCO  WaferType = "CO"
	WaferDR  WaferType = "DR"
	WaferDT  WaferType = "DT" // explicit refusal in DUT-id derivation
	WaferDY  WaferType = "DY" // explicit refusal in DUT-id derivation
	WaferEI  WaferType = "EI" // explicit refusal in DUT-id derivation
)

// WaferTypeOf extracts the family prefix from a lot id such as "3CA0000".
// The leading character is the fab digit; the prefix is the letters that
// follow it. Returns "" when the lot id does not carry a recognizable
// prefix.
func WaferTypeOf(lotID string) WaferType {
	if len(lotID) < 3 {
		return ""
	}
	rest := lotID[1:]
	// CDM is the only three-letter family.
	if strings.HasPrefix(rest, string(WaferCDM)) {
		return WaferCDM
	}
	letters := 0
	for letters < len(rest) && rest[letters] >= 'A' && rest[letters] <= 'Z' {
		letters++
	}
	if letters < 2 {
		return ""
	}
	return WaferType(rest[:2])
}
