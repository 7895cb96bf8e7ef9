package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gmarchiori/wafertrack/internal/datamap"
)

// Service produces XLSX bytes for wafer-map exports. The workbook is the
// hand-off artifact to the plotting side: one row per wafer label, one
// column per location, values already aggregated.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// SubchipMapXLSX returns a workbook with the full (label × location) grid
// of a subchip map. Locations keep the group order; labels are sorted for
// a stable sheet.
func (s *Service) SubchipMapXLSX(waferName, resultName string, locations []string, submap map[string]map[string]any) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	sheet := resultName
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := append([]string{"Label"}, locations...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	labels := make([]string, 0, len(submap))
	for label := range submap {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	row := 2
	for _, label := range labels {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, label)
		for i, loc := range locations {
			if v := submap[label][loc]; v != nil {
				write(i+2, cellScalar(v))
			}
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"wafer", waferName,
		"result_name", resultName,
		"rows", len(labels),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// AveragedMapXLSX returns a workbook with one averaged value per label.
func (s *Service) AveragedMapXLSX(waferName, resultName string, avg map[string]*datamap.Measure) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "WaferMap"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range []string{"Label", "Value", "Unit"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	labels := make([]string, 0, len(avg))
	for label := range avg {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	row := 2
	for _, label := range labels {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, label)
		if m := avg[label]; m != nil {
			vcell, _ := excelize.CoordinatesToCellName(2, row)
			_ = f.SetCellValue(sheet, vcell, m.Value)
			ucell, _ := excelize.CoordinatesToCellName(3, row)
			_ = f.SetCellValue(sheet, ucell, m.Unit)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "wafer", waferName, "result_name", resultName, "rows", len(labels))
	return buf.Bytes(), nil
}

// cellScalar flattens full {value, error, unit} cells to their scalar for
// the sheet; values-only cells pass through.
func cellScalar(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, has := m["value"]; has {
			return inner
		}
	}
	return v
}
