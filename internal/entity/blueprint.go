package entity

import (
	"time"

	"github.com/google/uuid"
)

// Blueprint is a template document: a Datasheet Definition plus a Locations
// catalog, and for wafer blueprints the label layout of the children.
type Blueprint struct {
	ID                  uuid.UUID    `json:"id"`
	Name                string       `json:"name"`
	Locations           Locations    `json:"locations"`
	DatasheetDefinition []DSDefEntry `json:"datasheet_definition,omitempty"`
	WaferLayout         *WaferLayout `json:"wafer_layout,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Locations is the flat location catalog of a blueprint partitioned into
// named groups. Groups may overlap; the order inside a group drives column
// ordering.
type Locations struct {
	Elements []string            `json:"elements,omitempty"`
	Groups   map[string][]string `json:"groups,omitempty"`
}

// Group returns the ordered locations of a named group.
func (l *Locations) Group(name string) ([]string, bool) {
	locs, ok := l.Groups[name]
	return locs, ok
}

// DSDefEntry is one column specification of a Datasheet Definition.
type DSDefEntry struct {
	ResultName      string      `json:"result_name"`
	LocationGroup   string      `json:"location_group"`
	SelectionMethod string      `json:"selection_method"`
	ValueRange      *ValueRange `json:"value_range,omitempty"`
	OutliersRange   *ValueRange `json:"outliers_range,omitempty"`
	TagFilters      TagFilters  `json:"tag_filters"`
	DatasheetReady  bool        `json:"datasheet_ready"`
	MethodInfo      *MethodInfo `json:"method_info,omitempty"`
}

// ValueRange bounds a column. Any subset of the fields may be present.
type ValueRange struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Typical *float64 `json:"typical,omitempty"`
	Unit    string   `json:"unit,omitempty"`
}

// Contains reports whether v falls inside the range, bounds inclusive.
// Absent bounds do not constrain.
func (r *ValueRange) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// TagFilters selects results by tag: every Required tag must be present,
// any ToExclude tag rejects.
type TagFilters struct {
	Required  []string `json:"required,omitempty"`
	ToExclude []string `json:"to_exclude,omitempty"`
}

// MethodInfo carries method-specific parameters. For rootMeasurement:
// the root result name, the location mapping from this column's location to
// the root's, and the fallback method when no root entry exists.
type MethodInfo struct {
	RootMeasurement  string            `json:"root_measurement,omitempty"`
	RootLocationsMap map[string]string `json:"root_locations_map,omitempty"`
	BackupMethod     string            `json:"backup_method,omitempty"`
}

// WaferLayout enumerates the four label partitions a wafer blueprint
// declares for its children.
type WaferLayout struct {
	Chips     LabelPartition `json:"chips"`
	TestChips LabelPartition `json:"test_chips"`
	Bars      LabelPartition `json:"bars"`
	TestCells LabelPartition `json:"test_cells"`
}

// LabelPartition is one of the four wafer partitions: its labels grouped by
// name, and the blueprints whose components belong to it.
type LabelPartition struct {
	Groups       map[string][]string `json:"groups,omitempty"`
	BlueprintIDs []uuid.UUID         `json:"blueprint_ids,omitempty"`
}

// Labels returns every label of the partition, group by group in map
// iteration order deduplicated; use a group for a stable order.
func (p *LabelPartition) Labels() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, labels := range p.Groups {
		for _, l := range labels {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// HasBlueprint reports whether the partition references the blueprint id.
func (p *LabelPartition) HasBlueprint(id uuid.UUID) bool {
	for _, b := range p.BlueprintIDs {
		if b == id {
			return true
		}
	}
	return false
}
