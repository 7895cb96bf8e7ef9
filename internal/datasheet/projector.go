// Package datasheet projects a component's raw test history into a
// single-row, fixed-schema record. Columns come from the blueprint's
// Datasheet Definition; value selection is policy-driven and pluggable.
package datasheet

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gmarchiori/wafertrack/constants"
	"github.com/gmarchiori/wafertrack/internal/acronym"
	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
	"github.com/gmarchiori/wafertrack/internal/goggles"
)

// Scope narrows the history a projection reads. Nil slices mean "all".
type Scope struct {
	ProcessStages         []string
	Stati                 []string
	EarliestExecutionDate *time.Time
	LatestExecutionDate   *time.Time
	// True for datasheet projection, false for ad-hoc scoops.
	RequireDatasheetReady bool
}

// ProjectionScope is the default scope for datasheet projection.
func ProjectionScope() Scope {
	return Scope{RequireDatasheetReady: true}
}

// Record is a projected datasheet: a metadata header plus one normalized
// cell per acronym. A nil cell is an empty column.
//
// Bench and Operator come from the most-recent contributing entry;
// inconsistency across entries is silently masked (known limitation, kept
// for byte-compatible dot-out output).
type Record struct {
	ComponentName    string
	ComponentID      uuid.UUID
	EarliestTestDate *time.Time
	LatestTestDate   *time.Time
	Bench            string
	Operator         string

	Columns []acronym.Column
	Cells   map[string]*string
}

// Cell returns the normalized value for an acronym, nil when empty.
func (r *Record) Cell(acr string) *string {
	return r.Cells[acr]
}

// Projector combines scooping, column expansion and value selection.
type Projector struct {
	norm    Normalizer
	methods map[string]SelectionFunc
	logger  *slog.Logger
}

func NewProjector(norm Normalizer, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		norm:    norm,
		methods: builtinMethods(),
		logger:  logger,
	}
}

// Register plugs in a selection policy. Built-in names may be overridden.
func (p *Projector) Register(method string, fn SelectionFunc) {
	p.methods[method] = fn
}

// Normalizer exposes the projector's cell formatter for callers that render
// values outside a projection (golden-sample rows).
func (p *Projector) Normalizer() *Normalizer {
	return &p.norm
}

type colKey struct {
	resultName string
	location   string
}

// Project runs the full pipeline for one component: expand columns, collect
// candidates per column under the scope, prune outliers, select, normalize.
// Either a complete record is returned or none: no partial output.
func (p *Projector) Project(comp *entity.Component, def []entity.DSDefEntry, groups map[string][]string, scope Scope) (*Record, error) {
	cols, err := acronym.Build(def, groups, p.logger)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ComponentName: comp.Name,
		ComponentID:   comp.ID,
		Columns:       cols,
		Cells:         make(map[string]*string, len(cols)),
	}

	chosen := make(map[colKey]*entity.TestEntry)
	rootEntry := func(resultName, location string) *entity.TestEntry {
		return chosen[colKey{resultName, location}]
	}

	// Root-measurement columns go in a second pass so their root column is
	// selected first regardless of definition order.
	var deferred []int
	var contributing []*entity.TestEntry

	selectCol := func(i int) error {
		col := &cols[i]
		cands := collectCandidates(comp.TestHistory, col, scope)
		cands = pruneOutliers(cands, col.Def.OutliersRange)
		sc := &SelectionContext{
			Column:     col,
			Candidates: cands,
			RootEntry:  rootEntry,
			methods:    p.methods,
		}
		fn, ok := p.methods[col.Def.SelectionMethod]
		if !ok {
			return common.MalformedDefinitionf(
				"column %q: unknown selection method %q", col.Acronym, col.Def.SelectionMethod)
		}
		sel, err := fn(sc)
		if err != nil {
			return err
		}
		if sel == nil {
			rec.Cells[col.Acronym] = nil
			return nil
		}
		rec.Cells[col.Acronym] = p.norm.Format(sel.Value, sel.ErrorValue)
		contributing = append(contributing, sel.Entries...)
		if len(sel.Entries) == 1 {
			chosen[colKey{col.ResultName, col.Location}] = sel.Entries[0]
		}
		return nil
	}

	for i := range cols {
		if cols[i].Def.SelectionMethod == string(constants.SelectRootMeasurement) {
			deferred = append(deferred, i)
			continue
		}
		if err := selectCol(i); err != nil {
			return nil, err
		}
	}
	for _, i := range deferred {
		if err := selectCol(i); err != nil {
			return nil, err
		}
	}

	fillMetadata(rec, contributing)
	return rec, nil
}

// collectCandidates scoops the (entry, result) pairs that pass the scope
// filter and match the column, newest first.
func collectCandidates(history []entity.TestEntry, col *acronym.Column, scope Scope) []Candidate {
	f := goggles.Filter{
		ResultNames:           []string{col.ResultName},
		LocationNames:         []string{col.Location},
		RequiredTags:          col.RequiredTags,
		TagsToExclude:         col.TagsToExclude,
		RequiredProcessStages: scope.ProcessStages,
		RequiredStati:         scope.Stati,
		EarliestExecutionDate: scope.EarliestExecutionDate,
		LatestExecutionDate:   scope.LatestExecutionDate,
		SearchDatasheetReady:  scope.RequireDatasheetReady,
	}
	scooped := goggles.ScoopFromHistory(history, f)
	// History order is a storage contract; sort by date so that selection
	// depends on executionDate only.
	sort.SliceStable(scooped, func(i, j int) bool {
		return scooped[i].ExecutionDate.After(scooped[j].ExecutionDate)
	})
	cands := make([]Candidate, len(scooped))
	for i, s := range scooped {
		cands[i] = Candidate{Scooped: s}
		if num, ok := entity.AsFloat(s.Value); ok {
			v := num
			cands[i].Num = &v
		}
	}
	return cands
}

// pruneOutliers drops numeric candidates outside the outliers range, bounds
// inclusive. valueRange is reporting-only and never rejects.
func pruneOutliers(cands []Candidate, outliers *entity.ValueRange) []Candidate {
	if outliers == nil {
		return cands
	}
	kept := cands[:0]
	for _, c := range cands {
		if c.Num != nil && !outliers.Contains(*c.Num) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// fillMetadata derives the date window from the contributing entries and
// takes bench/operator from the most recent one.
func fillMetadata(rec *Record, contributing []*entity.TestEntry) {
	var newest *entity.TestEntry
	for _, e := range contributing {
		if rec.EarliestTestDate == nil || e.ExecutionDate.Before(*rec.EarliestTestDate) {
			d := e.ExecutionDate
			rec.EarliestTestDate = &d
		}
		if rec.LatestTestDate == nil || e.ExecutionDate.After(*rec.LatestTestDate) {
			d := e.ExecutionDate
			rec.LatestTestDate = &d
		}
		if newest == nil || e.ExecutionDate.After(newest.ExecutionDate) {
			newest = e
		}
	}
	if newest != nil {
		rec.Bench = newest.Bench
		rec.Operator = newest.Operator
	}
}
