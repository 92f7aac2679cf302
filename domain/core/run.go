package core

import (
	"time"

	"github.com/google/uuid"
)

// RunID names one estimation run. UUID v7 keeps IDs sortable by start time.
type RunID string

func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RunID(id.String())
}

func (id RunID) String() string { return string(id) }

// Timestamp marks when a pipeline ran. It marshals as UTC RFC 3339.
type Timestamp time.Time

func Now() Timestamp { return Timestamp(time.Now()) }

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(time.Time(t).UTC().Format(time.RFC3339Nano)), nil
}
