package audit

import (
	"context"
	"encoding/json"
)

// MessageType tags validation-log entries on the queue.
const MessageType = "validation"

// Entry is one location-validation attempt, pass or fail. Entries are
// append-only and never read back by the submission path.
type Entry struct {
	LessonID            string   `json:"lesson_id"`
	StudentName         *string  `json:"student_name,omitempty"`
	Origin              string   `json:"origin"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	AccuracyMeters      *float64 `json:"accuracy,omitempty"`
	DistanceMeters      *float64 `json:"distance_meters,omitempty"`
	AllowedRadiusMeters *int     `json:"allowed_radius_meters,omitempty"`
	Result              string   `json:"result"`
	Message             string   `json:"message"`
}

// Logger appends validation entries. Implementations are best-effort: a
// failed append must not block or fail the attendance submission, so callers
// only log returned errors.
type Logger interface {
	Record(ctx context.Context, e Entry) error
}

// Encode serializes an entry for the queue.
func Encode(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

// Decode deserializes a queued entry.
func Decode(body []byte) (Entry, error) {
	var e Entry
	err := json.Unmarshal(body, &e)
	return e, err
}
