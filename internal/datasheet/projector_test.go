package datasheet

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

func strptr(s string) *string { return &s }

func day(d int) time.Time {
	return time.Date(2026, time.April, d, 9, 0, 0, 0, time.UTC)
}

// readyResult builds a datasheet-ready measurement at location L1.
func readyResult(name string, value float64) entity.Result {
	ready := true
	return entity.Result{
		ResultName:     name,
		Location:       strptr("L1"),
		ResultTags:     []string{"TE"},
		Data:           map[string]any{"value": value, "unit": "dB"},
		DatasheetReady: &ready,
	}
}

// testChip is a chip with three full bench sessions plus a trailing
// not-ready session that projection must ignore.
func testChip() *entity.Component {
	return &entity.Component{
		ID:   uuid.New(),
		Name: "3CA0000_COR-V3-14",
		TestHistory: []entity.TestEntry{
			{
				ExecutionDate: day(1), ProcessStage: "S1", Status: "testing",
				Bench: "bench-A", Operator: "op-a",
				Results: []entity.Result{
					readyResult("power", 1.0),
					readyResult("loss", 5.0),
					readyResult("gain", 7.0),
					readyResult("noise", 2.0),
					readyResult("phase", 10.0),
				},
			},
			{
				ExecutionDate: day(2), ProcessStage: "S2", Status: "testing",
				Bench: "bench-B", Operator: "op-b",
				Results: []entity.Result{
					readyResult("power", 2.0),
					readyResult("loss", 4.0),
					readyResult("gain", 9.0),
					readyResult("noise", 4.0),
					readyResult("phase", 20.0),
				},
			},
			{
				ExecutionDate: day(3), ProcessStage: "S2", Status: "testing",
				Bench: "bench-C", Operator: "op-c",
				Results: []entity.Result{
					readyResult("power", 3.0),
					readyResult("loss", 6.0),
					readyResult("gain", 8.0),
					readyResult("noise", 100.0),
					readyResult("phase", 30.0),
				},
			},
			{
				ExecutionDate: day(4), ProcessStage: "S2", Status: "testing",
				Bench: "bench-D", Operator: "op-d",
				Results: []entity.Result{
					// Not datasheet-ready: must never win a projection.
					{
						ResultName: "power",
						Location:   strptr("L1"),
						ResultTags: []string{"TE"},
						Data:       map[string]any{"value": 99.0},
					},
				},
			},
		},
	}
}

var testGroups = map[string][]string{"G": {"L1"}}

func entryFor(name string, methods ...string) entity.DSDefEntry {
	method := "newest"
	if len(methods) > 0 {
		method = methods[0]
	}
	return entity.DSDefEntry{
		ResultName:      name,
		LocationGroup:   "G",
		SelectionMethod: method,
		TagFilters:      entity.TagFilters{Required: []string{"TE"}},
	}
}

func testDefinition() []entity.DSDefEntry {
	max := 50.0
	noise := entryFor("noise", "average")
	noise.OutliersRange = &entity.ValueRange{Max: &max}
	phase := entryFor("phase", "rootMeasurement")
	phase.MethodInfo = &entity.MethodInfo{RootMeasurement: "power", BackupMethod: "newest"}
	return []entity.DSDefEntry{
		entryFor("power", "newest"),
		entryFor("loss", "min"),
		entryFor("gain", "max"),
		noise,
		phase,
	}
}

func cell(t *testing.T, rec *Record, acr string) string {
	t.Helper()
	v := rec.Cell(acr)
	require.NotNil(t, v, "cell %s", acr)
	return *v
}

func TestProjectSelectionPolicies(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	rec, err := p.Project(testChip(), testDefinition(), testGroups, ProjectionScope())
	require.NoError(t, err)

	require.Equal(t, "3.00", cell(t, rec, "power_L1_TE"), "newest wins")
	require.Equal(t, "4.00", cell(t, rec, "loss_L1_TE"), "numeric minimum wins")
	require.Equal(t, "9.00", cell(t, rec, "gain_L1_TE"), "numeric maximum wins")
	require.Equal(t, "3.00", cell(t, rec, "noise_L1_TE"), "outlier pruned before averaging")
	// rootMeasurement: same bench session as the selected power value.
	require.Equal(t, "30.00", cell(t, rec, "phase_L1_TE"))
}

func TestProjectMetadata(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	rec, err := p.Project(testChip(), testDefinition(), testGroups, ProjectionScope())
	require.NoError(t, err)

	require.NotNil(t, rec.EarliestTestDate)
	require.NotNil(t, rec.LatestTestDate)
	require.Equal(t, day(1), *rec.EarliestTestDate)
	require.Equal(t, day(3), *rec.LatestTestDate)
	require.Equal(t, "bench-C", rec.Bench)
	require.Equal(t, "op-c", rec.Operator)
}

func TestProjectStageScoping(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	scope := ProjectionScope()
	scope.ProcessStages = []string{"S1"}
	rec, err := p.Project(testChip(), testDefinition(), testGroups, scope)
	require.NoError(t, err)

	require.Equal(t, "1.00", cell(t, rec, "power_L1_TE"))
	require.Equal(t, "5.00", cell(t, rec, "loss_L1_TE"))
	require.Equal(t, "10.00", cell(t, rec, "phase_L1_TE"))
	require.Equal(t, "bench-A", rec.Bench)
}

func TestProjectEmptyColumnsStayNil(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	scope := ProjectionScope()
	scope.ProcessStages = []string{"S9"}
	rec, err := p.Project(testChip(), testDefinition(), testGroups, scope)
	require.NoError(t, err)
	for _, col := range rec.Columns {
		require.Nil(t, rec.Cell(col.Acronym), "column %s", col.Acronym)
	}
	require.Nil(t, rec.EarliestTestDate)
	require.Empty(t, rec.Bench)
}

func TestProjectIgnoresNotReadyResults(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	rec, err := p.Project(testChip(), testDefinition(), testGroups, ProjectionScope())
	require.NoError(t, err)
	// The day-4 session carries power=99 without the ready flag.
	require.Equal(t, "3.00", cell(t, rec, "power_L1_TE"))
	require.Equal(t, day(3), *rec.LatestTestDate)
}

// Selection must depend on executionDate only, not on storage order.
func TestProjectStableUnderHistoryReordering(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	base, err := p.Project(testChip(), testDefinition(), testGroups, ProjectionScope())
	require.NoError(t, err)

	shuffled := testChip()
	h := shuffled.TestHistory
	h[0], h[2] = h[2], h[0]
	h[1], h[3] = h[3], h[1]

	rec, err := p.Project(shuffled, testDefinition(), testGroups, ProjectionScope())
	require.NoError(t, err)
	for _, col := range base.Columns {
		want, got := base.Cell(col.Acronym), rec.Cell(col.Acronym)
		require.NotNil(t, want, "column %s", col.Acronym)
		require.NotNil(t, got, "column %s", col.Acronym)
		require.Equal(t, *want, *got, "column %s", col.Acronym)
	}
	require.Equal(t, base.Bench, rec.Bench)
	require.Equal(t, *base.EarliestTestDate, *rec.EarliestTestDate)
}

func TestRootMeasurementBackup(t *testing.T) {
	// Root result does not exist in the history: the column falls through
	// to its backup method.
	phase := entryFor("phase", "rootMeasurement")
	phase.MethodInfo = &entity.MethodInfo{RootMeasurement: "absent", BackupMethod: "min"}
	def := []entity.DSDefEntry{entryFor("absent", "newest"), phase}

	p := NewProjector(Normalizer{}, nil)
	rec, err := p.Project(testChip(), def, testGroups, ProjectionScope())
	require.NoError(t, err)
	require.Nil(t, rec.Cell("absent_L1_TE"))
	require.Equal(t, "10.00", cell(t, rec, "phase_L1_TE"))
}

func TestRootMeasurementRequiresMethodInfo(t *testing.T) {
	phase := entryFor("phase", "rootMeasurement")
	def := []entity.DSDefEntry{def0(), phase}

	p := NewProjector(Normalizer{}, nil)
	_, err := p.Project(testChip(), def, testGroups, ProjectionScope())
	require.ErrorIs(t, err, common.ErrMalformedDefinition)
}

func def0() entity.DSDefEntry { return entryFor("power", "newest") }

func TestUnknownSelectionMethod(t *testing.T) {
	def := []entity.DSDefEntry{entryFor("power", "median")}
	p := NewProjector(Normalizer{}, nil)
	_, err := p.Project(testChip(), def, testGroups, ProjectionScope())
	require.ErrorIs(t, err, common.ErrMalformedDefinition)
}

func TestRegisterCustomMethod(t *testing.T) {
	p := NewProjector(Normalizer{}, nil)
	p.Register("always42", func(sc *SelectionContext) (*Selection, error) {
		return &Selection{Value: 42.0}, nil
	})
	def := []entity.DSDefEntry{entryFor("power", "always42")}
	rec, err := p.Project(testChip(), def, testGroups, ProjectionScope())
	require.NoError(t, err)
	require.Equal(t, "42.00", cell(t, rec, "power_L1_TE"))
}

func TestBestValueAliasesNewest(t *testing.T) {
	def := []entity.DSDefEntry{entryFor("power", "bestValue")}
	p := NewProjector(Normalizer{}, nil)
	rec, err := p.Project(testChip(), def, testGroups, ProjectionScope())
	require.NoError(t, err)
	require.Equal(t, "3.00", cell(t, rec, "power_L1_TE"))
}
