package dotout

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gmarchiori/wafertrack/internal/common"
)

// WriteCSV writes dot-out records in the MMS/EDC format: header row, one
// blank row (compat artifact of the downstream parser), then data rows.
// Every record must share the header of the first.
func WriteCSV(w io.Writer, recs ...*Record) error {
	if len(recs) == 0 {
		return common.MissingInformationf("no dot-out records to write")
	}
	cw := csv.NewWriter(w)
	header := recs[0].Header()
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.Write(make([]string, len(header))); err != nil {
		return err
	}
	for _, rec := range recs {
		row := rec.Row()
		if len(row) != len(header) {
			return fmt.Errorf("record %v has %d columns, header has %d: %w",
				rec.DUT, len(row), len(header), common.ErrValidationFailed)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile persists dot-out records to a new file, refusing to overwrite.
func WriteFile(path string, recs ...*Record) error {
	f, err := common.CreateExclusive(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteCSV(f, recs...)
}
