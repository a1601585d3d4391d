package lesson

import "time"

// Radius bounds accepted at creation, in meters.
const (
	MinRadiusMeters = 10
	MaxRadiusMeters = 10000
)

// Lesson is a teacher-created attendance session, identified by an opaque
// shareable code rendered as a QR client-side.
type Lesson struct {
	ID              string    `json:"id"`
	TeacherID       int64     `json:"teacher_id"`
	TeacherName     string    `json:"teacher_name,omitempty"`
	Name            string    `json:"name"`
	Date            string    `json:"date"`
	IsInvalidated   bool      `json:"is_invalidated"`
	LocationEnabled bool      `json:"location_enabled"`
	CenterLatitude  *float64  `json:"center_latitude,omitempty"`
	CenterLongitude *float64  `json:"center_longitude,omitempty"`
	RadiusMeters    *int      `json:"radius_meters,omitempty"`
	LocationName    *string   `json:"location_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
