package common

import (
	"fmt"
	"os"
)

// CreateExclusive opens a new file for writing, refusing to clobber an
// existing one. Overwrite-mode report writers share this policy.
func CreateExclusive(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("refusing to overwrite %s: %w", path, ErrValidationFailed)
		}
		return nil, err
	}
	return f, nil
}

// OpenAppend opens a file for appending, creating it when absent. created
// tells the caller whether a header row is due.
func OpenAppend(path string) (f *os.File, created bool, err error) {
	_, statErr := os.Stat(path)
	created = os.IsNotExist(statErr)
	f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, err
	}
	return f, created, nil
}
