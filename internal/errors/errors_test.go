package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"birthprev/domain/core"
)

func TestClassifyDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewMissingColumnError([]string{"case"}), CodeMissingColumn, http.StatusBadRequest},
		{core.NewInvalidValueError(1, "a", "population", "must be positive"), CodeInvalidValue, http.StatusBadRequest},
		{core.NewDegenerateVarianceError([]string{"a"}), CodeDegenerateVariance, http.StatusUnprocessableEntity},
		{core.NewDegenerateHeterogeneityError(0), CodeDegenerateHeterogeneity, http.StatusUnprocessableEntity},
		{core.ErrUnknownDistribution, CodeInvalidInput, http.StatusBadRequest},
		{stderrors.New("disk on fire"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.code {
			t.Errorf("GetCode(%v) = %s, want %s", tt.err, got, tt.code)
		}
		if got := HTTPStatus(tt.err); got != tt.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestWrapKeepsDomainCode(t *testing.T) {
	err := Wrap(core.NewMissingColumnError([]string{"population"}), "failed to read input")

	if !IsAppError(err) {
		t.Fatal("Expected AppError")
	}
	if GetCode(err) != CodeMissingColumn {
		t.Errorf("Expected %s, got %s", CodeMissingColumn, GetCode(err))
	}
	if !core.IsMissingColumnError(err) {
		t.Error("Expected wrapped error to unwrap to ErrMissingColumn")
	}

	outer := Wrapf(err, "run %d", 2)
	if GetCode(outer) != CodeMissingColumn {
		t.Errorf("Expected nested wrap to keep code, got %s", GetCode(outer))
	}
	if Wrap(nil, "nothing") != nil {
		t.Error("Expected nil for nil error")
	}
}
