package ports

import (
	"io"

	"birthprev/domain/study"
)

// StudyReaderPort loads studies from tabular input and validates the
// required columns before any row is parsed.
type StudyReaderPort interface {
	ReadFile(path string) ([]study.Study, error)
	ReadCSV(r io.Reader) ([]study.Study, error)
}
