package goldensample

import (
	"encoding/csv"
	"os"

	"github.com/gmarchiori/wafertrack/internal/common"
)

// WriteAll persists the whole report to a new file: header then every
// record. Refuses to run when the file already exists.
func WriteAll(path string, report *Report) error {
	f, err := common.CreateExclusive(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(report.Header()); err != nil {
		return err
	}
	for i := range report.Records {
		if err := cw.Write(report.Row(&report.Records[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendLast appends only the report's last record, creating the file with
// a header when absent. Appending the same record twice is byte-stable.
func AppendLast(path string, report *Report) error {
	if len(report.Records) == 0 {
		return common.MissingInformationf("report has no records to append")
	}
	f, created, err := common.OpenAppend(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if created {
		if err := cw.Write(report.Header()); err != nil {
			return err
		}
	}
	last := &report.Records[len(report.Records)-1]
	if err := cw.Write(report.Row(last)); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		// Leave no half-written tail behind on a fresh file.
		if created {
			os.Remove(path)
		}
		return err
	}
	return nil
}
