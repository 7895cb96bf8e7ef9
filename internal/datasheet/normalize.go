package datasheet

import (
	"math"
	"strconv"

	"github.com/gmarchiori/wafertrack/internal/entity"
)

// DefaultScientificNotationThreshold is the magnitude above which values are
// written as raw repr instead of error-driven rounding.
const DefaultScientificNotationThreshold = 1e9

// Normalizer turns selected values into report cell strings.
type Normalizer struct {
	// Zero means DefaultScientificNotationThreshold.
	ScientificNotationThreshold float64
	// Keep full precision instead of rounding on the measurement error.
	AllResultDigits bool
}

func (n *Normalizer) threshold() float64 {
	if n.ScientificNotationThreshold > 0 {
		return n.ScientificNotationThreshold
	}
	return DefaultScientificNotationThreshold
}

// Format renders a cell. Nil passes through as nil. Non-numeric scalars are
// rendered verbatim. Numeric values are rounded so that the decimal count
// reaches one place past the error's leading digit, two decimals when the
// error is unknown.
func (n *Normalizer) Format(v any, errVal *float64) *string {
	if v == nil {
		return nil
	}
	f, numeric := entity.AsFloat(v)
	if !numeric {
		s := entity.FormatScalar(v)
		return &s
	}
	var s string
	switch {
	case math.Abs(f) > n.threshold():
		s = strconv.FormatFloat(f, 'g', -1, 64)
	case n.AllResultDigits:
		s = strconv.FormatFloat(f, 'g', -1, 64)
	default:
		s = strconv.FormatFloat(f, 'f', decimalsForError(errVal), 64)
	}
	return &s
}

// decimalsForError derives the decimal count from the measurement error:
// the place of the error's leading significant digit plus one. An unknown
// or non-positive error floors at two decimals.
func decimalsForError(errVal *float64) int {
	if errVal == nil || *errVal <= 0 {
		return 2
	}
	d := int(-math.Floor(math.Log10(*errVal))) + 1
	if d < 0 {
		return 0
	}
	return d
}
