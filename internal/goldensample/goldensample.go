// Package goldensample turns a reference component's full test history into
// append-only CSV rows: one row per test entry, columns = metadata plus the
// blueprint's acronyms.
package goldensample

import (
	"log/slog"

	"github.com/gmarchiori/wafertrack/internal/acronym"
	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/datasheet"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

// Metadata column names of the golden-sample format, in order.
var metaColumns = []string{"DUT_ID", "DATA_ORA", "OP_NAME", "BANCO"}

// dataOraLayout is the timestamp format of the DATA_ORA column.
const dataOraLayout = "2006-01-02 15:04:05"

// Record is one golden-sample row: the entry metadata plus one normalized
// cell per acronym.
type Record struct {
	DUTID   string
	DataOra string
	OpName  string
	Banco   string
	Cells   map[string]*string
}

// Report is the full golden-sample projection of one component: a fixed
// header and one record per test entry, oldest first.
type Report struct {
	Acronyms []string
	Records  []Record
}

// Header returns the CSV header: metadata columns then acronyms in
// definition order.
func (r *Report) Header() []string {
	out := make([]string, 0, len(metaColumns)+len(r.Acronyms))
	out = append(out, metaColumns...)
	out = append(out, r.Acronyms...)
	return out
}

// Row renders one record in header order; null cells are empty.
func (r *Report) Row(rec *Record) []string {
	out := make([]string, 0, len(metaColumns)+len(r.Acronyms))
	out = append(out, rec.DUTID, rec.DataOra, rec.OpName, rec.Banco)
	for _, a := range r.Acronyms {
		if v := rec.Cells[a]; v != nil {
			out = append(out, *v)
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Appender builds golden-sample reports.
type Appender struct {
	norm   *datasheet.Normalizer
	logger *slog.Logger
}

func NewAppender(norm *datasheet.Normalizer, logger *slog.Logger) *Appender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Appender{norm: norm, logger: logger}
}

// CompleteReport emits one record per test entry. The acronym list is built
// once from the blueprint; per entry, at most one result per column is
// taken (the first that matches the column contract).
func (a *Appender) CompleteReport(comp *entity.Component, bp *entity.Blueprint) (*Report, error) {
	if !comp.HasTestHistory() {
		return nil, common.MissingInformationf("component %q has no test history", comp.Name)
	}
	cols, err := acronym.Build(bp.DatasheetDefinition, bp.Locations.Groups, a.logger)
	if err != nil {
		return nil, err
	}

	report := &Report{Acronyms: acronym.Names(cols)}
	for i := range comp.TestHistory {
		entry := &comp.TestHistory[i]
		rec := Record{
			DUTID:   comp.Name,
			DataOra: entry.ExecutionDate.Format(dataOraLayout),
			OpName:  entry.Operator,
			Banco:   entry.Bench,
			Cells:   make(map[string]*string, len(cols)),
		}
		for c := range cols {
			col := &cols[c]
			rec.Cells[col.Acronym] = a.cellFor(entry, col)
		}
		report.Records = append(report.Records, rec)
	}

	a.logger.Info("goldensample.report.ok",
		"component", comp.Name,
		"entries", len(report.Records),
		"columns", len(report.Acronyms),
	)
	return report, nil
}

// cellFor finds the first matching result of the entry and normalizes it.
func (a *Appender) cellFor(entry *entity.TestEntry, col *acronym.Column) *string {
	for i := range entry.Results {
		r := &entry.Results[i]
		if !col.Matches(r) {
			continue
		}
		v, ok := r.Value()
		if !ok {
			continue
		}
		return a.norm.Format(v, r.ErrorValue())
	}
	return nil
}
