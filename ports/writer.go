package ports

import (
	"io"

	"birthprev/domain/study"
)

// ResultWriterPort renders an estimated table. The file format follows the
// path extension.
type ResultWriterPort interface {
	WriteFile(path string, t *study.Table) error
	WriteCSV(w io.Writer, t *study.Table) error
}
