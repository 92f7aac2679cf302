package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrMissingColumn = errors.New("required column missing")
	ErrInvalidValue  = errors.New("invalid study value")
	ErrEmptyTable    = fmt.Errorf("%w: table has no studies", ErrInvalidValue)

	// Computation errors
	ErrDegenerateVariance      = errors.New("degenerate variance")
	ErrDegenerateHeterogeneity = errors.New("degenerate heterogeneity")

	// Pipeline errors
	ErrStagePrerequisite   = errors.New("stage prerequisite not met")
	ErrUnknownDistribution = errors.New("unknown distribution")
	ErrUnknownPolicy       = errors.New("unknown degenerate policy")
)

// NewMissingColumnError reports every required column absent from an input header.
func NewMissingColumnError(columns []string) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(quoted, ", "))
}

// NewInvalidValueError reports a bad value on a single study row (1-based).
func NewInvalidValueError(row int, label, field, reason string) error {
	if label == "" {
		return fmt.Errorf("%w: row %d: %s %s", ErrInvalidValue, row, field, reason)
	}
	return fmt.Errorf("%w: row %d (%s): %s %s", ErrInvalidValue, row, label, field, reason)
}

func NewDegenerateVarianceError(labels []string) error {
	return fmt.Errorf("%w: zero standard error for %s", ErrDegenerateVariance, strings.Join(labels, "; "))
}

func NewDegenerateHeterogeneityError(q float64) error {
	return fmt.Errorf("%w: Q statistic is %v", ErrDegenerateHeterogeneity, q)
}

func NewStagePrerequisiteError(stage, requires string) error {
	return fmt.Errorf("%w: %s requires %s", ErrStagePrerequisite, stage, requires)
}

// Error checking helpers
func IsMissingColumnError(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

func IsInvalidValueError(err error) bool {
	return errors.Is(err, ErrInvalidValue)
}

func IsInputError(err error) bool {
	return IsMissingColumnError(err) || IsInvalidValueError(err) ||
		errors.Is(err, ErrUnknownDistribution) ||
		errors.Is(err, ErrUnknownPolicy)
}

func IsDegenerateError(err error) bool {
	return errors.Is(err, ErrDegenerateVariance) ||
		errors.Is(err, ErrDegenerateHeterogeneity)
}
