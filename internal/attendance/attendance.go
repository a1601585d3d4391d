package attendance

import (
	"time"

	"qrattend/internal/geo"
)

// Student name length bounds, applied after trimming.
const (
	MinNameLen = 1
	MaxNameLen = 100
)

// Record is one accepted attendance submission. Records are written once and
// never mutated.
type Record struct {
	ID             int64     `json:"id"`
	LessonID       string    `json:"lesson_id"`
	StudentName    string    `json:"student_name"`
	Origin         string    `json:"-"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	AccuracyMeters *float64  `json:"location_accuracy,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Reason classifies the outcome of a submission.
type Reason string

const (
	ReasonAccepted          Reason = "accepted"
	ReasonInvalidInput      Reason = "invalid_input"
	ReasonLessonNotFound    Reason = "lesson_not_found"
	ReasonLessonInvalidated Reason = "lesson_invalidated"
	ReasonLocationRejected  Reason = "location_rejected"
	ReasonDuplicateOrigin   Reason = "duplicate_origin"
)

// Outcome is the result of running a submission through the recorder.
// Internal/storage failures are returned as errors instead, so callers can
// tell a policy rejection from a broken system.
type Outcome struct {
	Accepted        bool
	Reason          Reason
	LocationReason  geo.Reason // set when Reason is ReasonLocationRejected
	Message         string
	LocationEnabled bool
	DistanceMeters  *float64 // rounded; present when a distance was computed
}
