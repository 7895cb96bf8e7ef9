package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gmarchiori/wafertrack/internal/datamap"
)

func TestSubchipMapXLSX(t *testing.T) {
	svc := NewService(nil)
	submap := map[string]map[string]any{
		"A2": {"out1": 8.0, "out2": nil},
		"A1": {"out1": 2.0, "out2": map[string]any{"value": 4.0, "unit": "dB"}},
	}
	buf, err := svc.SubchipMapXLSX("3CA0000", "loss", []string{"out1", "out2"}, submap)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("loss")
	require.NoError(t, err)
	require.Equal(t, []string{"Label", "out1", "out2"}, rows[0])
	// Labels sorted for a stable sheet.
	require.Equal(t, "A1", rows[1][0])
	require.Equal(t, "2", rows[1][1])
	require.Equal(t, "4", rows[1][2], "full dict cells flatten to their scalar")
	require.Equal(t, "A2", rows[2][0])
	require.Equal(t, "8", rows[2][1])
}

func TestAveragedMapXLSX(t *testing.T) {
	svc := NewService(nil)
	avg := map[string]*datamap.Measure{
		"A1": {Value: 3.0, Unit: "dB"},
		"A2": nil,
	}
	buf, err := svc.AveragedMapXLSX("3CA0000", "loss", avg)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("WaferMap")
	require.NoError(t, err)
	require.Equal(t, []string{"Label", "Value", "Unit"}, rows[0])
	require.Equal(t, []string{"A1", "3", "dB"}, rows[1])
	// A label with no numeric data keeps its row, value empty.
	require.Equal(t, "A2", rows[2][0])
	require.Len(t, rows[2], 1)
}
