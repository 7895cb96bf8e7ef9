package datasheet

import (
	"github.com/gmarchiori/wafertrack/constants"
	"github.com/gmarchiori/wafertrack/internal/acronym"
	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
	"github.com/gmarchiori/wafertrack/internal/goggles"
)

// Candidate is one surviving (entry, result) pair for a column, with its
// numeric value parsed when the value is numeric. Candidates are ordered
// newest first.
type Candidate struct {
	Scooped goggles.Scooped
	Num     *float64
}

// Selection is the outcome of a selection policy for one column: the value
// to normalize and the entries that contributed it.
type Selection struct {
	Value      any
	ErrorValue *float64
	Unit       string
	// Entries that supplied the value; one for single-pick policies, all
	// numeric candidates for average.
	Entries []*entity.TestEntry
}

// SelectionContext is handed to a selection policy. RootEntry resolves the
// entry that supplied another column's selected value, keyed by result name
// and location.
type SelectionContext struct {
	Column     *acronym.Column
	Candidates []Candidate
	RootEntry  func(resultName, location string) *entity.TestEntry

	methods map[string]SelectionFunc
}

// Dispatch runs another registered policy, used by rootMeasurement to fall
// through to its backup method.
func (sc *SelectionContext) Dispatch(method string) (*Selection, error) {
	fn, ok := sc.methods[method]
	if !ok {
		return nil, common.MalformedDefinitionf(
			"column %q: unknown selection method %q", sc.Column.Acronym, method)
	}
	return fn(sc)
}

// SelectionFunc is a registered selection policy. A nil Selection with a
// nil error means the column stays empty.
type SelectionFunc func(sc *SelectionContext) (*Selection, error)

func builtinMethods() map[string]SelectionFunc {
	return map[string]SelectionFunc{
		string(constants.SelectNewest):          selectNewest,
		string(constants.SelectBestValue):       selectNewest,
		string(constants.SelectMin):             selectMin,
		string(constants.SelectMax):             selectMax,
		string(constants.SelectAverage):         selectAverage,
		string(constants.SelectRootMeasurement): selectRootMeasurement,
	}
}

func single(c *Candidate) *Selection {
	return &Selection{
		Value:      c.Scooped.Value,
		ErrorValue: c.Scooped.ErrorValue,
		Unit:       c.Scooped.Unit,
		Entries:    []*entity.TestEntry{c.Scooped.Entry},
	}
}

// selectNewest takes the candidate with the latest execution date. The
// candidate list is newest first, so that is the head.
func selectNewest(sc *SelectionContext) (*Selection, error) {
	if len(sc.Candidates) == 0 {
		return nil, nil
	}
	return single(&sc.Candidates[0]), nil
}

// selectMin takes the numerically smallest value; ties go to the newer
// entry, which the newest-first order gives for free with a strict compare.
func selectMin(sc *SelectionContext) (*Selection, error) {
	return selectExtreme(sc, func(v, best float64) bool { return v < best })
}

func selectMax(sc *SelectionContext) (*Selection, error) {
	return selectExtreme(sc, func(v, best float64) bool { return v > best })
}

func selectExtreme(sc *SelectionContext, better func(v, best float64) bool) (*Selection, error) {
	var best *Candidate
	for i := range sc.Candidates {
		c := &sc.Candidates[i]
		if c.Num == nil {
			continue
		}
		if best == nil || better(*c.Num, *best.Num) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	return single(best), nil
}

// selectAverage takes the arithmetic mean of the numeric candidates;
// non-numeric values are ignored. Every contributing entry feeds the date
// window.
func selectAverage(sc *SelectionContext) (*Selection, error) {
	var (
		sum     float64
		count   int
		entries []*entity.TestEntry
		unit    string
	)
	for i := range sc.Candidates {
		c := &sc.Candidates[i]
		if c.Num == nil {
			continue
		}
		sum += *c.Num
		count++
		entries = append(entries, c.Scooped.Entry)
		if unit == "" {
			unit = c.Scooped.Unit
		}
	}
	if count == 0 {
		return nil, nil
	}
	return &Selection{
		Value:   sum / float64(count),
		Unit:    unit,
		Entries: entries,
	}, nil
}

// selectRootMeasurement takes this column's value from the same entry that
// supplied the root measurement's selected value at the mapped location,
// falling through to the backup method when no such entry exists.
func selectRootMeasurement(sc *SelectionContext) (*Selection, error) {
	mi := sc.Column.Def.MethodInfo
	if mi == nil || mi.RootMeasurement == "" || mi.BackupMethod == "" {
		return nil, common.MalformedDefinitionf(
			"column %q: rootMeasurement requires methodInfo with rootMeasurement and backupMethod", sc.Column.Acronym)
	}
	rootLoc := sc.Column.Location
	if mapped, ok := mi.RootLocationsMap[sc.Column.Location]; ok {
		rootLoc = mapped
	}
	rootEntry := sc.RootEntry(mi.RootMeasurement, rootLoc)
	if rootEntry != nil {
		for i := range sc.Candidates {
			c := &sc.Candidates[i]
			if c.Scooped.Entry == rootEntry {
				return single(c), nil
			}
		}
	}
	return sc.Dispatch(mi.BackupMethod)
}
