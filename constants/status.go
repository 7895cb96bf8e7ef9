package constants

// ComponentStatus is the canonical lifecycle status for component documents.
type ComponentStatus string

// Stable values (the database stores these exact strings).
const (
	StatusInProduction ComponentStatus = "IN_PRODUCTION" // still moving through the line
	StatusOnHold       ComponentStatus = "ON_HOLD"       // parked, waiting for a decision
	StatusReady        ComponentStatus = "READY"         // testing complete, usable
	StatusScrapped     ComponentStatus = "SCRAPPED"      // terminal failure
	StatusShipped      ComponentStatus = "SHIPPED"       // left the lab
)

// ComponentType distinguishes the document kinds in the components collection.
type ComponentType string

const (
	TypeWafer    ComponentType = "WAFER"
	TypeBar      ComponentType = "BAR"
	TypeChip     ComponentType = "CHIP"
	TypeTestChip ComponentType = "TEST_CHIP"
	TypeTestCell ComponentType = "TEST_CELL"
	TypeCOS      ComponentType = "COS" // chip-on-submount, between module and chip
	TypeModule   ComponentType = "MODULE"
)
