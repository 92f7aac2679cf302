package ports

import (
	"birthprev/domain/stage"
	"birthprev/domain/study"
)

// StagePort is one step of the estimation pipeline.
// Apply must not modify its input; it returns a new table with its columns added.
type StagePort interface {
	Name() stage.StageName
	Apply(t *study.Table) (*study.Table, error)
}
