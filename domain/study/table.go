package study

import (
	"errors"
	"slices"

	"birthprev/domain/core"
	"birthprev/domain/stage"
)

// Table is the working data model of one estimation run. Stages never mutate
// a Table they receive; they return a modified Clone.
type Table struct {
	Rows         []StudyRow       `json:"rows"`
	Summary      Summary          `json:"summary"`
	Distribution Distribution     `json:"distribution"`
	Policy       DegeneratePolicy `json:"degenerate_policy"`

	applied []stage.StageName
}

// NewTable validates the studies and wraps them in a table with no derived
// columns yet.
func NewTable(studies []Study, dist Distribution, policy DegeneratePolicy) (*Table, error) {
	if err := ValidateStudies(studies); err != nil {
		return nil, err
	}
	if dist == "" {
		dist = DistributionPoisson
	}
	if policy == "" {
		policy = PolicyError
	}

	rows := make([]StudyRow, len(studies))
	for i, s := range studies {
		rows[i] = StudyRow{Study: s}
	}
	return &Table{
		Rows:         rows,
		Distribution: dist,
		Policy:       policy,
		Summary:      Summary{StudyCount: len(rows)},
	}, nil
}

// ValidateStudies checks every study and reports all offending rows at once.
func ValidateStudies(studies []Study) error {
	if len(studies) == 0 {
		return core.ErrEmptyTable
	}

	var errs []error
	for i, s := range studies {
		row := i + 1
		if s.Population <= 0 {
			errs = append(errs, core.NewInvalidValueError(row, s.Label, "population", "must be positive"))
		}
		if s.Cases < 0 {
			errs = append(errs, core.NewInvalidValueError(row, s.Label, "case", "must not be negative"))
		}
		if s.Population > 0 && s.Cases > s.Population {
			errs = append(errs, core.NewInvalidValueError(row, s.Label, "case", "must not exceed population"))
		}
	}
	return errors.Join(errs...)
}

// Studies returns the input studies in row order.
func (t *Table) Studies() []Study {
	out := make([]Study, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Study
	}
	return out
}

// Clone returns a deep copy that a stage may modify freely.
func (t *Table) Clone() *Table {
	c := *t
	c.Rows = slices.Clone(t.Rows)
	c.Summary.ExcludedStudies = slices.Clone(t.Summary.ExcludedStudies)
	c.applied = slices.Clone(t.applied)
	return &c
}

// Applied reports whether the named stage has produced its columns.
func (t *Table) Applied(name stage.StageName) bool {
	return slices.Contains(t.applied, name)
}

// MarkApplied records that the named stage has run on this table.
func (t *Table) MarkApplied(name stage.StageName) {
	if !t.Applied(name) {
		t.applied = append(t.applied, name)
	}
}

// Require returns ErrStagePrerequisite unless every named stage has run.
func (t *Table) Require(current stage.StageName, names ...stage.StageName) error {
	for _, n := range names {
		if !t.Applied(n) {
			return core.NewStagePrerequisiteError(string(current), string(n))
		}
	}
	return nil
}

// Column extracts one float field from every row.
func (t *Table) Column(get func(StudyRow) float64) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = get(r)
	}
	return out
}

// Fingerprint identifies the table's input studies.
func (t *Table) Fingerprint() core.Hash {
	labels := make([]string, len(t.Rows))
	cases := make([]int, len(t.Rows))
	pops := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		labels[i], cases[i], pops[i] = r.Label, r.Cases, r.Population
	}
	return core.FingerprintStudies(labels, cases, pops)
}
