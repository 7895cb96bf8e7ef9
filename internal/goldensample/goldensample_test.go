package goldensample

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/datasheet"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

func strptr(s string) *string { return &s }

func day(d int) time.Time {
	return time.Date(2026, time.July, d, 14, 30, 0, 0, time.UTC)
}

func goldenChip() *entity.Component {
	return &entity.Component{
		ID:   uuid.New(),
		Name: "3CA0000_COR-V1-1",
		TestHistory: []entity.TestEntry{
			{
				ExecutionDate: day(1), Bench: "bench-A", Operator: "op-a",
				Results: []entity.Result{
					{
						ResultName: "loss",
						Location:   strptr("out1"),
						ResultTags: []string{"TE"},
						Data:       map[string]any{"value": 2.345, "error": 0.05},
					},
				},
			},
			{
				ExecutionDate: day(2), Bench: "bench-B", Operator: "op-b",
				Results: []entity.Result{
					// No matching result: the cell stays empty for this row.
					{
						ResultName: "gain",
						Location:   strptr("out1"),
						ResultTags: []string{"TE"},
						Data:       1.0,
					},
				},
			},
			{
				ExecutionDate: day(3), Bench: "bench-C", Operator: "op-c",
				Results: []entity.Result{
					{
						ResultName: "loss",
						Location:   strptr("out1"),
						ResultTags: []string{"TE"},
						Data:       map[string]any{"value": 2.5},
					},
				},
			},
		},
	}
}

func goldenBlueprint() *entity.Blueprint {
	return &entity.Blueprint{
		ID:        uuid.New(),
		Name:      "golden-blueprint",
		Locations: entity.Locations{Groups: map[string][]string{"outputs": {"out1"}}},
		DatasheetDefinition: []entity.DSDefEntry{
			{
				ResultName:      "loss",
				LocationGroup:   "outputs",
				SelectionMethod: "newest",
				TagFilters:      entity.TagFilters{Required: []string{"TE"}},
			},
		},
	}
}

func newAppender() *Appender {
	return NewAppender(&datasheet.Normalizer{}, nil)
}

func TestCompleteReportOneRowPerEntry(t *testing.T) {
	report, err := newAppender().CompleteReport(goldenChip(), goldenBlueprint())
	require.NoError(t, err)

	require.Equal(t, []string{"DUT_ID", "DATA_ORA", "OP_NAME", "BANCO", "loss_out1_TE"}, report.Header())
	require.Len(t, report.Records, 3)

	// Oldest first, one row per bench session.
	require.Equal(t, "2026-07-01 14:30:00", report.Records[0].DataOra)
	require.Equal(t, "op-a", report.Records[0].OpName)
	require.Equal(t, "bench-A", report.Records[0].Banco)
	require.Equal(t, "2.345", *report.Records[0].Cells["loss_out1_TE"], "error-driven rounding")

	require.Nil(t, report.Records[1].Cells["loss_out1_TE"])
	require.Equal(t, "2.50", *report.Records[2].Cells["loss_out1_TE"])

	row := report.Row(&report.Records[1])
	require.Equal(t, []string{"3CA0000_COR-V1-1", "2026-07-02 14:30:00", "op-b", "bench-B", ""}, row)
}

func TestCompleteReportNoHistory(t *testing.T) {
	chip := goldenChip()
	chip.TestHistory = nil
	_, err := newAppender().CompleteReport(chip, goldenBlueprint())
	require.ErrorIs(t, err, common.ErrMissingInformation)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteAll(t *testing.T) {
	report, err := newAppender().CompleteReport(goldenChip(), goldenBlueprint())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golden.csv")
	require.NoError(t, WriteAll(path, report))

	rows := readCSV(t, path)
	require.Len(t, rows, 4)
	require.Equal(t, report.Header(), rows[0])
	require.Equal(t, "2026-07-01 14:30:00", rows[1][1])

	// Overwrite mode refuses an existing file.
	require.ErrorIs(t, WriteAll(path, report), common.ErrValidationFailed)
}

func TestAppendLast(t *testing.T) {
	report, err := newAppender().CompleteReport(goldenChip(), goldenBlueprint())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golden.csv")

	// First append creates the file with a header.
	require.NoError(t, AppendLast(path, report))
	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	require.Equal(t, report.Header(), rows[0])
	require.Equal(t, "2026-07-03 14:30:00", rows[1][1])

	// Subsequent appends add rows without repeating the header.
	require.NoError(t, AppendLast(path, report))
	rows = readCSV(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, rows[1], rows[2])
}

func TestAppendLastEmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden.csv")
	err := AppendLast(path, &Report{Acronyms: []string{"a"}})
	require.ErrorIs(t, err, common.ErrMissingInformation)
}
