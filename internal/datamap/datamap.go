// Package datamap binds aggregated results to geometric chip locations:
// the two-level (label → location → value) maps the wafer plotter consumes,
// plus per-label averaging and the scalar chip maps used for status plots.
package datamap

import (
	"fmt"
	"log/slog"

	"github.com/gmarchiori/wafertrack/internal/collation"
	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
	"github.com/gmarchiori/wafertrack/internal/goggles"
)

// Binder builds plotter maps from a loaded collation.
type Binder struct {
	logger *slog.Logger
}

func NewBinder(logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{logger: logger}
}

// BuildSubchipMap scoops one result across every labeled component and
// keys the selected values by (label, location) for the locations of the
// named group. A location with no surviving value maps to nil. When
// valuesOnly is false each cell is the full {value, error, unit} dict.
func (b *Binder) BuildSubchipMap(col *collation.Collation, resultName, locationGroup string, f goggles.Filter, valuesOnly bool) (map[string]map[string]any, error) {
	f.ResultNames = []string{resultName}

	out := make(map[string]map[string]any)
	for label, comp := range col.AllComponentsByLabel() {
		bp, ok := col.BlueprintFor(comp)
		if !ok {
			b.logger.Warn("datamap.label.no_blueprint", "label", label, "component", comp.Name)
			continue
		}
		locs, ok := bp.Locations.Group(locationGroup)
		if !ok {
			b.logger.Warn("datamap.label.no_group",
				"label", label, "blueprint", bp.Name, "group", locationGroup)
			continue
		}

		scooped := goggles.ScoopFromHistory(comp.TestHistory, f)
		cells := make(map[string]any, len(locs))
		for _, loc := range locs {
			cells[loc] = nil
			for i := range scooped {
				s := &scooped[i]
				if s.Location != loc {
					continue
				}
				if cells[loc] != nil {
					b.logger.Warn("datamap.duplicate_value",
						"label", label, "location", loc, "result_name", resultName)
					continue
				}
				if valuesOnly {
					cells[loc] = s.Value
				} else {
					cells[loc] = map[string]any{
						"value": s.Value,
						"error": s.ErrorValue,
						"unit":  s.Unit,
					}
				}
			}
		}
		out[label] = cells
	}
	return out, nil
}

// Measure is an averaged cell: the mean value and the agreed unit.
type Measure struct {
	Value float64
	Unit  string
}

// AverageSubchipMap reduces a subchip map to one value per label: the
// arithmetic mean of the numeric entries. A label with no numeric entries
// maps to nil. Disagreeing units across one label's entries fail hard.
func AverageSubchipMap(submap map[string]map[string]any) (map[string]*Measure, error) {
	out := make(map[string]*Measure, len(submap))
	for label, cells := range submap {
		var (
			sum   float64
			count int
			unit  string
		)
		for _, cell := range cells {
			v, u := unwrapCell(cell)
			f, ok := entity.AsFloat(v)
			if !ok {
				continue
			}
			if u != "" {
				if unit != "" && unit != u {
					return nil, common.TypeConflictf(
						"label %q mixes units %q and %q", label, unit, u)
				}
				unit = u
			}
			sum += f
			count++
		}
		if count == 0 {
			out[label] = nil
			continue
		}
		out[label] = &Measure{Value: sum / float64(count), Unit: unit}
	}
	return out, nil
}

// unwrapCell accepts both the values-only and the full-dict cell shapes.
func unwrapCell(cell any) (v any, unit string) {
	if m, ok := cell.(map[string]any); ok {
		if inner, has := m["value"]; has {
			if u, _ := m["unit"].(string); u != "" {
				unit = u
			}
			return inner, unit
		}
	}
	return cell, ""
}

// BuildChipMap projects one scalar component field per label, with no
// aggregation; used for status and process-stage maps.
func (b *Binder) BuildChipMap(col *collation.Collation, fieldPath string) (map[string]any, error) {
	field, err := fieldAccessor(fieldPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for label, comp := range col.AllComponentsByLabel() {
		out[label] = field(comp)
	}
	return out, nil
}

func fieldAccessor(fieldPath string) (func(*entity.Component) any, error) {
	switch fieldPath {
	case "status":
		return func(c *entity.Component) any { return c.Status }, nil
	case "processStage":
		return func(c *entity.Component) any { return c.ProcessStage }, nil
	case "componentType":
		return func(c *entity.Component) any { return c.ComponentType }, nil
	case "name":
		return func(c *entity.Component) any { return c.Name }, nil
	default:
		return nil, common.MissingInformationf("no chip-map accessor for field %q", fieldPath)
	}
}

// DataType is the single cell type of a chip map; the plotter cannot mix.
type DataType string

const (
	TypeString DataType = "string"
	TypeBool   DataType = "bool"
	TypeFloat  DataType = "float"
)

// InferType derives the cell type of a map. Nils are ignored; an all-nil
// map falls back to string; mixed types fail hard.
func InferType(m map[string]any) (DataType, error) {
	var inferred DataType
	for label, v := range m {
		if v == nil {
			continue
		}
		var t DataType
		switch v.(type) {
		case string:
			t = TypeString
		case bool:
			t = TypeBool
		default:
			if _, ok := entity.AsFloat(v); !ok {
				return "", common.TypeConflictf("label %q has unplottable value %v (%T)", label, v, v)
			}
			t = TypeFloat
		}
		if inferred == "" {
			inferred = t
			continue
		}
		if inferred != t {
			return "", fmt.Errorf("map mixes %s and %s values: %w", inferred, t, common.ErrTypeConflict)
		}
	}
	if inferred == "" {
		return TypeString, nil
	}
	return inferred, nil
}
