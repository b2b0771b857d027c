// Package record defines the exercise record entity shared by the aggregator, the filter and the
// storage layers.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Intensity bounds accepted for a record.
const (
	MinIntensity = 0
	MaxIntensity = 10
)

// ErrInvalidRecord is returned by Validate when a record violates the data model.
var ErrInvalidRecord = errors.New("invalid record")

// Record is a single logged workout. Records are immutable once stored; updates produce a new
// value with a refreshed UpdatedAt.
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Date         Date      `json:"date"`
	TimeOfDay    TimeOfDay `json:"time_of_day"`
	Intensity    int       `json:"intensity"`
	ExerciseType string    `json:"exercise_type"`
	Memo         string    `json:"memo"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks a record at the ingestion boundary. The aggregator and the filter assume
// validated input and never call it.
func Validate(r Record) error {
	if r.Intensity < MinIntensity || r.Intensity > MaxIntensity {
		return fmt.Errorf("%w: intensity must be between %d and %d", ErrInvalidRecord, MinIntensity, MaxIntensity)
	}
	if !r.TimeOfDay.Valid() {
		return fmt.Errorf("%w: unknown time_of_day %q", ErrInvalidRecord, string(r.TimeOfDay))
	}
	if strings.TrimSpace(r.ExerciseType) == "" {
		return fmt.Errorf("%w: exercise_type is required", ErrInvalidRecord)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRecord)
	}
	return nil
}
