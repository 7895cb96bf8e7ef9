package goggles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gmarchiori/wafertrack/internal/entity"
)

func strptr(s string) *string { return &s }

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 12, 0, 0, 0, time.UTC)
}

func testHistory() []entity.TestEntry {
	ready := true
	return []entity.TestEntry{
		{
			ExecutionDate: day(1),
			ProcessStage:  "S1",
			Status:        "testing",
			TestReportID:  "TR-1",
			Bench:         "bench-A",
			Operator:      "op-a",
			Results: []entity.Result{
				{
					ResultName: "insertionLoss",
					Location:   strptr("out1"),
					ResultTags: []string{"TE", "1550nm"},
					Data:       map[string]any{"value": 3.1, "error": 0.05, "unit": "dB"},
				},
				{
					ResultName: "insertionLoss",
					Location:   strptr("out2"),
					ResultTags: []string{"TE", "1550nm"},
					Data:       map[string]any{"value": nil},
				},
			},
		},
		{
			ExecutionDate: day(5),
			ProcessStage:  "S2",
			Status:        "ready",
			TestReportID:  "TR-2",
			Bench:         "bench-B",
			Operator:      "op-b",
			Results: []entity.Result{
				{
					ResultName:     "insertionLoss",
					Location:       strptr("out1"),
					ResultTags:     []string{"TE", "1550nm"},
					Data:           map[string]any{"value": 2.8, "unit": "dB"},
					DatasheetReady: &ready,
				},
				{
					ResultName: "category",
					Location:   strptr("out1"),
					ResultTags: []string{"visual"},
					Data:       "pass",
				},
				{
					ResultName: "darkCurrent",
					Location:   strptr("pd1"),
					ResultTags: []string{"debug"},
					Data:       4.2,
				},
			},
		},
	}
}

func TestScoopFromHistoryNewestFirst(t *testing.T) {
	out := ScoopFromHistory(testHistory(), Filter{ResultNames: []string{"insertionLoss"}})
	require.Len(t, out, 2)
	require.Equal(t, day(5), out[0].ExecutionDate)
	require.Equal(t, day(1), out[1].ExecutionDate)
}

func TestScoopUnwrapsValueDict(t *testing.T) {
	out := ScoopFromHistory(testHistory(), Filter{
		ResultNames:   []string{"insertionLoss"},
		LocationNames: []string{"out1"},
		RequiredProcessStages: []string{
			"S1",
		},
	})
	require.Len(t, out, 1)
	s := out[0]
	require.Equal(t, 3.1, s.Value)
	require.NotNil(t, s.ErrorValue)
	require.Equal(t, 0.05, *s.ErrorValue)
	require.Equal(t, "dB", s.Unit)
	require.Equal(t, "bench-A", s.Bench)
	require.Equal(t, "op-a", s.Operator)
	require.Equal(t, "testing", s.Status)
}

func TestScoopSkipsNullData(t *testing.T) {
	out := ScoopFromHistory(testHistory(), Filter{LocationNames: []string{"out2"}})
	require.Empty(t, out)
}

func TestScoopPassesThroughBareScalar(t *testing.T) {
	out := ScoopFromHistory(testHistory(), Filter{ResultNames: []string{"category"}})
	require.Len(t, out, 1)
	require.Equal(t, "pass", out[0].Value)
	require.Nil(t, out[0].ErrorValue)
	require.Equal(t, "", out[0].Unit)
}

func TestEntryLevelFilters(t *testing.T) {
	history := testHistory()

	out := ScoopFromHistory(history, Filter{RequiredStati: []string{"ready"}})
	for _, s := range out {
		require.Equal(t, "ready", s.Status)
	}
	require.NotEmpty(t, out)

	out = ScoopFromHistory(history, Filter{RequiredTestReportID: "TR-1"})
	require.Len(t, out, 1)
	require.Equal(t, day(1), out[0].ExecutionDate)

	early := day(2)
	out = ScoopFromHistory(history, Filter{EarliestExecutionDate: &early})
	for _, s := range out {
		require.False(t, s.ExecutionDate.Before(early))
	}
	require.NotEmpty(t, out)

	late := day(2)
	out = ScoopFromHistory(history, Filter{LatestExecutionDate: &late, ResultNames: []string{"insertionLoss"}})
	require.Len(t, out, 1)
	require.Equal(t, day(1), out[0].ExecutionDate)
}

func TestTagFilters(t *testing.T) {
	history := testHistory()

	out := ScoopFromHistory(history, Filter{RequiredTags: []string{"TE", "1550nm"}})
	require.Len(t, out, 2)

	out = ScoopFromHistory(history, Filter{RequiredTags: []string{"TE", "1310nm"}})
	require.Empty(t, out)

	out = ScoopFromHistory(history, Filter{TagsToExclude: []string{"debug"}, ResultNames: []string{"darkCurrent"}})
	require.Empty(t, out)
}

func TestSearchDatasheetReady(t *testing.T) {
	out := ScoopFromHistory(testHistory(), Filter{SearchDatasheetReady: true})
	require.Len(t, out, 1)
	require.Equal(t, "insertionLoss", out[0].ResultName)
	require.Equal(t, day(5), out[0].ExecutionDate)
}

func TestEmptyFilterScoopsEverythingNonNull(t *testing.T) {
	out := ScoopFromHistory(testHistory(), Filter{})
	// Five results total, one carries a null value.
	require.Len(t, out, 4)
}
