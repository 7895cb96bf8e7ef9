package constants

// SelectionMethod names the value-selection policy on a datasheet column.
// The set is open: the projector dispatches through a registry and new
// methods plug in without touching it.
type SelectionMethod string

const (
	SelectNewest          SelectionMethod = "newest"
	SelectBestValue       SelectionMethod = "bestValue"
	SelectMin             SelectionMethod = "min"
	SelectMax             SelectionMethod = "max"
	SelectAverage         SelectionMethod = "average"
	SelectRootMeasurement SelectionMethod = "rootMeasurement"
)

var allSelectionMethods = []SelectionMethod{
	SelectNewest,
	SelectBestValue,
	SelectMin,
	SelectMax,
	SelectAverage,
	SelectRootMeasurement,
}

// SelectionMethodStrings returns the built-in method names, mainly for
// schema validation of blueprint documents.
func SelectionMethodStrings() []string {
	out := make([]string, len(allSelectionMethods))
	for i, m := range allSelectionMethods {
		out[i] = string(m)
	}
	return out
}
