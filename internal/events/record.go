// Package events defines the record lifecycle events carried from the outbox to consumers.
package events

import (
	"time"

	"example.com/intensity/internal/record"
)

// Event types emitted for record writes.
const (
	RecordCreated = "record.created"
	RecordUpdated = "record.updated"
	RecordDeleted = "record.deleted"
)

// RecordsTopic carries every record lifecycle event, keyed by user.
const RecordsTopic = "record_events"

// RecordChanged is the payload of all record lifecycle events. Deleted events carry the last
// known state of the record.
type RecordChanged struct {
	RecordID     string    `json:"record_id"`
	UserID       string    `json:"user_id"`
	Date         string    `json:"date"`
	TimeOfDay    string    `json:"time_of_day"`
	Intensity    int       `json:"intensity"`
	ExerciseType string    `json:"exercise_type"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewRecordChanged builds the payload for rec at the given time.
func NewRecordChanged(rec record.Record, at time.Time) RecordChanged {
	return RecordChanged{
		RecordID:     rec.ID,
		UserID:       rec.UserID,
		Date:         rec.Date.String(),
		TimeOfDay:    string(rec.TimeOfDay),
		Intensity:    rec.Intensity,
		ExerciseType: rec.ExerciseType,
		OccurredAt:   at.UTC(),
	}
}

// Metadata describes how an event type is routed and registered.
type Metadata struct {
	Topic         string
	SchemaSubject string
	Schema        string
}

var catalog = map[string]Metadata{
	RecordCreated: {Topic: RecordsTopic, SchemaSubject: RecordsTopic + "-value", Schema: recordChangedSchema},
	RecordUpdated: {Topic: RecordsTopic, SchemaSubject: RecordsTopic + "-value", Schema: recordChangedSchema},
	RecordDeleted: {Topic: RecordsTopic, SchemaSubject: RecordsTopic + "-value", Schema: recordChangedSchema},
}

// Lookup returns the routing metadata of eventType.
func Lookup(eventType string) (Metadata, bool) {
	meta, ok := catalog[eventType]
	return meta, ok
}

// IsRecordEvent reports whether eventType is a record lifecycle event.
func IsRecordEvent(eventType string) bool {
	switch eventType {
	case RecordCreated, RecordUpdated, RecordDeleted:
		return true
	}
	return false
}

const recordChangedSchema = `{
  "type": "object",
  "title": "RecordChanged",
  "properties": {
    "record_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "time_of_day": {"type": "string"},
    "intensity": {"type": "integer", "minimum": 0, "maximum": 10},
    "exercise_type": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "user_id", "date", "time_of_day", "intensity", "exercise_type", "occurred_at"],
  "additionalProperties": false
}`
