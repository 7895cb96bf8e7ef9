// Package collation resolves a wafer or module batch into the in-memory
// graph the reporting pipeline runs on: the components, their blueprints,
// and the label dictionaries that bind them to the wafer geometry.
package collation

import (
	"github.com/google/uuid"

	"github.com/gmarchiori/wafertrack/internal/entity"
)

// Collation is the loaded graph of one wafer. The collation exclusively
// owns the dictionaries; components refer to blueprints by identifier only
// and are resolved through the collation's index.
type Collation struct {
	Wafer          *entity.Component
	WaferBlueprint *entity.Blueprint

	// Label dictionaries of the four partitions. A partition whose
	// blueprints could not be resolved stays empty.
	Chips     map[string]*entity.Component
	TestChips map[string]*entity.Component
	Bars      map[string]*entity.Component
	TestCells map[string]*entity.Component

	// Children is the raw child list, including components excluded from
	// the label dictionaries.
	Children []*entity.Component

	Blueprints map[uuid.UUID]*entity.Blueprint
}

// AllComponentsByLabel merges the four partitions into one dictionary.
// Labels are unique per wafer, so a collision cannot drop data.
func (c *Collation) AllComponentsByLabel() map[string]*entity.Component {
	out := make(map[string]*entity.Component)
	for _, part := range []map[string]*entity.Component{c.Chips, c.TestChips, c.Bars, c.TestCells} {
		for label, comp := range part {
			out[label] = comp
		}
	}
	return out
}

// AllBlueprintsByLabel maps each labeled component to its blueprint.
func (c *Collation) AllBlueprintsByLabel() map[string]*entity.Blueprint {
	out := make(map[string]*entity.Blueprint)
	for label, comp := range c.AllComponentsByLabel() {
		if bp, ok := c.Blueprints[comp.BlueprintID]; ok {
			out[label] = bp
		}
	}
	return out
}

// BlueprintFor resolves a component's blueprint through the index.
func (c *Collation) BlueprintFor(comp *entity.Component) (*entity.Blueprint, bool) {
	bp, ok := c.Blueprints[comp.BlueprintID]
	return bp, ok
}

// ModuleBatch is the loaded graph of one module batch: three parallel
// lists, one slot per module that resolved all the way down to its chip.
type ModuleBatch struct {
	Batch   string
	Modules []*entity.Component
	COSs    []*entity.Component
	Chips   []*entity.Component
}
