// Package acronym expands a Datasheet Definition plus a location-group map
// into the ordered column list of a datasheet record. Column names
// (acronyms) are resultName_location with one trailing segment per required
// tag, in definition order.
package acronym

import (
	"log/slog"
	"strings"

	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

// Column is one datasheet column: its acronym plus the matching predicate
// and a back-reference to the definition entry that produced it.
type Column struct {
	Acronym       string
	ResultName    string
	Location      string
	RequiredTags  []string
	TagsToExclude []string
	Def           *entity.DSDefEntry
}

// Matches implements the column matching contract: same result name, same
// location, every required tag present, no excluded tag present.
func (c *Column) Matches(r *entity.Result) bool {
	if r.ResultName != c.ResultName || r.LocationName() != c.Location {
		return false
	}
	for _, tag := range c.RequiredTags {
		if !r.HasTag(tag) {
			return false
		}
	}
	for _, tag := range c.TagsToExclude {
		if r.HasTag(tag) {
			return false
		}
	}
	return true
}

// Build expands the definition against the group map: one column per
// (entry, location), locations in group order, entries in definition order.
// A missing group or a duplicate acronym is a malformed definition.
func Build(def []entity.DSDefEntry, groups map[string][]string, logger *slog.Logger) ([]Column, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]struct{})
	var cols []Column
	for i := range def {
		entry := &def[i]
		locs, ok := groups[entry.LocationGroup]
		if !ok {
			return nil, common.MalformedDefinitionf(
				"result %q references unknown location group %q", entry.ResultName, entry.LocationGroup)
		}
		if len(entry.TagFilters.Required) == 0 {
			logger.Warn("acronym.no_required_tags",
				"result_name", entry.ResultName,
				"location_group", entry.LocationGroup,
			)
		}
		for _, loc := range locs {
			acr := Format(entry.ResultName, loc, entry.TagFilters.Required)
			if _, dup := seen[acr]; dup {
				return nil, common.MalformedDefinitionf("duplicate acronym %q", acr)
			}
			seen[acr] = struct{}{}
			cols = append(cols, Column{
				Acronym:       acr,
				ResultName:    entry.ResultName,
				Location:      loc,
				RequiredTags:  entry.TagFilters.Required,
				TagsToExclude: entry.TagFilters.ToExclude,
				Def:           entry,
			})
		}
	}
	return cols, nil
}

// Format assembles an acronym from its parts. Tags keep the order they are
// listed in the definition.
func Format(resultName, location string, tags []string) string {
	var b strings.Builder
	b.WriteString(resultName)
	b.WriteByte('_')
	b.WriteString(location)
	for _, tag := range tags {
		b.WriteByte('_')
		b.WriteString(tag)
	}
	return b.String()
}

// Names returns the acronym strings in column order.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i := range cols {
		out[i] = cols[i].Acronym
	}
	return out
}
