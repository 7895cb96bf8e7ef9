// Package goggles implements the predicate-driven scan of a component's
// test history: given a filter, it scoops the matching results out of the
// raw entries together with the entry-level fields downstream aggregation
// needs.
package goggles

import (
	"time"

	"github.com/gmarchiori/wafertrack/internal/entity"
)

// Filter is the scoop predicate. Every field is optional; an empty field
// does not constrain. Required tags use AND semantics, excluded tags reject
// on any match.
type Filter struct {
	ResultNames           []string
	LocationNames         []string
	RequiredStati         []string
	RequiredProcessStages []string
	RequiredTags          []string
	TagsToExclude         []string
	// When set, results whose datasheetReady flag is not true are rejected.
	SearchDatasheetReady  bool
	EarliestExecutionDate *time.Time
	LatestExecutionDate   *time.Time
	RequiredTestReportID  string
}

// Scooped is one surviving result plus the entry-level context it came from.
// Entry points into the history the scoop ran over; selection policies use
// it to recognize values supplied by the same bench session.
type Scooped struct {
	ResultName string
	Location   string
	Tags       []string
	// Value is the unwrapped scalar for {value, error?, unit?} shapes, the
	// raw data otherwise.
	Value      any
	ErrorValue *float64
	Unit       string

	Entry         *entity.TestEntry
	ExecutionDate time.Time
	ProcessStage  string
	Status        string
	Bench         string
	Operator      string
}

// ScoopFromEntry scans one test entry. The whole entry is rejected when the
// status, stage, execution-date or test-report filters exclude it; otherwise
// every surviving result yields one Scooped row. Null resultData never
// yields a row.
func ScoopFromEntry(entry *entity.TestEntry, f Filter) []Scooped {
	if !entryMatches(entry, f) {
		return nil
	}
	var out []Scooped
	for i := range entry.Results {
		r := &entry.Results[i]
		if !resultMatches(r, f) {
			continue
		}
		v, ok := r.Value()
		if !ok {
			continue
		}
		out = append(out, Scooped{
			ResultName:    r.ResultName,
			Location:      r.LocationName(),
			Tags:          r.ResultTags,
			Value:         v,
			ErrorValue:    r.ErrorValue(),
			Unit:          r.Unit(),
			Entry:         entry,
			ExecutionDate: entry.ExecutionDate,
			ProcessStage:  entry.ProcessStage,
			Status:        entry.Status,
			Bench:         entry.Bench,
			Operator:      entry.Operator,
		})
	}
	return out
}

// ScoopFromHistory scans a whole test history newest first. The reverse
// chronological order is a contract: selection policies that take the first
// match naturally take the most recent one.
func ScoopFromHistory(history []entity.TestEntry, f Filter) []Scooped {
	var out []Scooped
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, ScoopFromEntry(&history[i], f)...)
	}
	return out
}

func entryMatches(entry *entity.TestEntry, f Filter) bool {
	if len(f.RequiredStati) > 0 && !contains(f.RequiredStati, entry.Status) {
		return false
	}
	if len(f.RequiredProcessStages) > 0 && !contains(f.RequiredProcessStages, entry.ProcessStage) {
		return false
	}
	if f.EarliestExecutionDate != nil && entry.ExecutionDate.Before(*f.EarliestExecutionDate) {
		return false
	}
	if f.LatestExecutionDate != nil && entry.ExecutionDate.After(*f.LatestExecutionDate) {
		return false
	}
	if f.RequiredTestReportID != "" && entry.TestReportID != f.RequiredTestReportID {
		return false
	}
	return true
}

func resultMatches(r *entity.Result, f Filter) bool {
	if len(f.ResultNames) > 0 && !contains(f.ResultNames, r.ResultName) {
		return false
	}
	if len(f.LocationNames) > 0 && !contains(f.LocationNames, r.LocationName()) {
		return false
	}
	for _, tag := range f.RequiredTags {
		if !r.HasTag(tag) {
			return false
		}
	}
	for _, tag := range f.TagsToExclude {
		if r.HasTag(tag) {
			return false
		}
	}
	if f.SearchDatasheetReady && !r.IsDatasheetReady() {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
