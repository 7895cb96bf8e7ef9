// Package dotout assembles wide single-row records for MMS/EDC ingestion:
// a projected datasheet wrapped with external identifiers, a date window
// and stage/status scoping, plus the CSV writer for the dot-out format.
package dotout

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gmarchiori/wafertrack/internal/datasheet"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

// Metadata column names, in dot-out order.
var metaColumns = []string{"earliestTestDate", "latestTestDate", "bench", "operator"}

// DUT identifier columns prepended for chip records.
var dutColumns = []string{"DUT_ID", "LOT_ID", "ChipID", "type"}

// StageSelection declares the stage scoping mode of a dot-out row: empty
// for no selection, one stage for single-stage, several for the mixed
// fallback-chain combine.
type StageSelection struct {
	Stages []string
}

// Suffix returns the column suffix for the selection ("" when empty).
func (s StageSelection) Suffix() string {
	var b strings.Builder
	for _, stage := range s.Stages {
		b.WriteString("_stage-")
		b.WriteString(stage)
	}
	return b.String()
}

// Record is one wide dot-out row.
type Record struct {
	// Nil for components without an external chip identity.
	DUT         *DUT
	StageSuffix string

	EarliestTestDate *time.Time
	LatestTestDate   *time.Time
	Bench            string
	Operator         string

	// Acronyms in definition order, unsuffixed; cells keyed the same way.
	Acronyms []string
	Cells    map[string]*string
}

// Header returns the full suffixed column list: DUT identifiers when
// present, then metadata, then acronyms.
func (r *Record) Header() []string {
	var out []string
	if r.DUT != nil {
		out = append(out, dutColumns...)
	}
	for _, m := range metaColumns {
		out = append(out, m+r.StageSuffix)
	}
	for _, a := range r.Acronyms {
		out = append(out, a+r.StageSuffix)
	}
	return out
}

// Row returns the values in header order. Null cells are empty strings;
// dates are ISO-8601.
func (r *Record) Row() []string {
	var out []string
	if r.DUT != nil {
		out = append(out, r.DUT.DUTID, r.DUT.LotID, r.DUT.ChipID, r.DUT.Type)
	}
	out = append(out, formatDate(r.EarliestTestDate), formatDate(r.LatestTestDate), r.Bench, r.Operator)
	for _, a := range r.Acronyms {
		if v := r.Cells[a]; v != nil {
			out = append(out, *v)
		} else {
			out = append(out, "")
		}
	}
	return out
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Assembler wraps the datasheet projector with stage scoping and external
// identifier derivation.
type Assembler struct {
	projector *datasheet.Projector
	logger    *slog.Logger
}

func NewAssembler(projector *datasheet.Projector, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{projector: projector, logger: logger}
}

// Assemble produces the dot-out record for one component under a stage
// selection. withDUT derives the external chip identifiers from the
// component name; derivation failure aborts the row.
func (a *Assembler) Assemble(comp *entity.Component, bp *entity.Blueprint, sel StageSelection, withDUT bool) (*Record, error) {
	rec := &Record{StageSuffix: sel.Suffix(), Cells: make(map[string]*string)}
	if withDUT {
		dut, err := DeriveDUT(comp.Name)
		if err != nil {
			return nil, err
		}
		rec.DUT = dut
	}

	switch len(sel.Stages) {
	case 0, 1:
		scope := datasheet.ProjectionScope()
		scope.ProcessStages = sel.Stages
		ds, err := a.projector.Project(comp, bp.DatasheetDefinition, bp.Locations.Groups, scope)
		if err != nil {
			return nil, err
		}
		fillFromDatasheet(rec, ds)
	default:
		if err := a.assembleMixed(rec, comp, bp, sel.Stages); err != nil {
			return nil, err
		}
	}

	a.logger.Info("dotout.assemble.ok",
		"component", comp.Name,
		"stages", sel.Stages,
		"columns", len(rec.Acronyms),
	)
	return rec, nil
}

// assembleMixed selects independently per stage and combines: per column the
// earliest-listed stage with a non-null value wins; the date window spans
// every contributing stage; bench/operator come from the most recent one.
func (a *Assembler) assembleMixed(rec *Record, comp *entity.Component, bp *entity.Blueprint, stages []string) error {
	perStage := make([]*datasheet.Record, 0, len(stages))
	for _, stage := range stages {
		scope := datasheet.ProjectionScope()
		scope.ProcessStages = []string{stage}
		ds, err := a.projector.Project(comp, bp.DatasheetDefinition, bp.Locations.Groups, scope)
		if err != nil {
			return err
		}
		perStage = append(perStage, ds)
	}

	first := perStage[0]
	rec.Acronyms = make([]string, len(first.Columns))
	for i := range first.Columns {
		rec.Acronyms[i] = first.Columns[i].Acronym
	}

	for _, acr := range rec.Acronyms {
		for _, ds := range perStage {
			if v := ds.Cell(acr); v != nil {
				rec.Cells[acr] = v
				break
			}
		}
	}

	var newest *datasheet.Record
	for _, ds := range perStage {
		if ds.EarliestTestDate != nil &&
			(rec.EarliestTestDate == nil || ds.EarliestTestDate.Before(*rec.EarliestTestDate)) {
			rec.EarliestTestDate = ds.EarliestTestDate
		}
		if ds.LatestTestDate != nil &&
			(rec.LatestTestDate == nil || ds.LatestTestDate.After(*rec.LatestTestDate)) {
			rec.LatestTestDate = ds.LatestTestDate
		}
		if ds.LatestTestDate != nil &&
			(newest == nil || ds.LatestTestDate.After(*newest.LatestTestDate)) {
			newest = ds
		}
	}
	if newest != nil {
		rec.Bench = newest.Bench
		rec.Operator = newest.Operator
	}
	return nil
}

func fillFromDatasheet(rec *Record, ds *datasheet.Record) {
	rec.EarliestTestDate = ds.EarliestTestDate
	rec.LatestTestDate = ds.LatestTestDate
	rec.Bench = ds.Bench
	rec.Operator = ds.Operator
	rec.Acronyms = make([]string, len(ds.Columns))
	for i := range ds.Columns {
		rec.Acronyms[i] = ds.Columns[i].Acronym
	}
	for acr, v := range ds.Cells {
		rec.Cells[acr] = v
	}
}
