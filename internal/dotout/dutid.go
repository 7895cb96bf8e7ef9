package dotout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmarchiori/wafertrack/constants"
	"github.com/gmarchiori/wafertrack/internal/common"
)

// DUT carries the external identifiers of a chip for MMS/EDC ingestion,
// derived from the internal component name.
type DUT struct {
	DUTID  string
	LotID  string
	ChipID string
	Type   string
}

// corOffsets maps the COR chip families to their additive chip-id offsets.
var corOffsets = map[string]int{
	"COR-V1": 0,
	"COR-V2": 30,
	"COR-V3": 45,
}

// corM1Chips is the exception table for the COR-M1 family: serial → chip id.
var corM1Chips = map[int]int{
	1: 1,
	2: 16,
	3: 31,
	4: 46,
}

// DeriveDUT converts an internal chip name such as "3CA0000_COR-V3-14" into
// its external identifiers. The rule dispatches on the wafer-type prefix of
// the lot id; unsupported families fail with a named error so they surface
// early.
func DeriveDUT(name string) (*DUT, error) {
	lot, rest, found := strings.Cut(name, "_")
	if !found || rest == "" {
		return nil, common.MissingInformationf("chip name %q has no lot/chip separator", name)
	}
	family, serial, err := splitSerial(rest)
	if err != nil {
		return nil, err
	}

	dut := &DUT{DUTID: name, LotID: lot, Type: family}
	waferType := constants.WaferTypeOf(lot)
	switch waferType {
	case constants.WaferCA:
		chip, err := corChipID(name, family, serial)
		if err != nil {
			return nil, err
		}
		dut.ChipID = strconv.Itoa(chip)
	case constants.WaferBI, constants.WaferCDM, constants.WaferCB,
		constants.WaferCM, constants.WaferCO, constants.WaferDR:
		// Generic rule: the trailing two-digit serial is the chip id.
		dut.ChipID = strconv.Itoa(serial)
	case constants.WaferDT, constants.WaferDY, constants.WaferEI:
		return nil, fmt.Errorf("wafer type %s (chip %q) has no chip-id rule: %w",
			waferType, name, common.ErrUnsupportedWaferType)
	default:
		return nil, fmt.Errorf("unrecognized wafer type in lot %q: %w", lot, common.ErrUnsupportedWaferType)
	}
	return dut, nil
}

// splitSerial cuts "COR-V3-14" into family "COR-V3" and serial 14.
func splitSerial(rest string) (family string, serial int, err error) {
	i := strings.LastIndex(rest, "-")
	if i <= 0 || i == len(rest)-1 {
		return "", 0, common.MissingInformationf("chip name tail %q has no serial", rest)
	}
	serial, convErr := strconv.Atoi(rest[i+1:])
	if convErr != nil {
		return "", 0, common.MissingInformationf("chip serial %q is not numeric", rest[i+1:])
	}
	return rest[:i], serial, nil
}

func corChipID(name, family string, serial int) (int, error) {
	if family == "COR-M1" {
		chip, ok := corM1Chips[serial]
		if !ok {
			return 0, fmt.Errorf("COR-M1 serial %d (chip %q) not in exception table: %w",
				serial, name, common.ErrUnsupportedWaferType)
		}
		return chip, nil
	}
	offset, ok := corOffsets[family]
	if !ok {
		return 0, fmt.Errorf("COR family %q (chip %q) has no chip-id rule: %w",
			family, name, common.ErrUnsupportedWaferType)
	}
	return serial + offset, nil
}
