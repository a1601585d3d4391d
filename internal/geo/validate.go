package geo

import (
	"fmt"
	"math"
)

// Reason classifies a validation verdict.
type Reason string

const (
	ReasonSuccess         Reason = "success"
	ReasonOutsideRange    Reason = "outside_range"
	ReasonWeakGPS         Reason = "weak_gps"
	ReasonMissingLocation Reason = "missing_location"
)

// WeakAccuracyMeters is the GPS accuracy threshold; readings at or above it
// are rejected before anything else is checked, because the reported
// position is too unreliable to measure a distance against.
const WeakAccuracyMeters = 100

// Position is a reported GPS fix. Fields are pointers so that a genuinely
// absent value is distinguishable from 0, which is a valid coordinate on the
// equator or prime meridian.
type Position struct {
	Latitude       *float64
	Longitude      *float64
	AccuracyMeters *float64
}

// Zone is the allowed area around a lesson's location.
type Zone struct {
	CenterLatitude  *float64
	CenterLongitude *float64
	RadiusMeters    float64
}

// Verdict is the outcome of validating a position against a zone.
type Verdict struct {
	Valid          bool
	Reason         Reason
	Message        string
	DistanceMeters *float64 // rounded to the nearest meter, nil when not computed
}

// ValidateLocation applies the gating policy in a fixed order: weak-GPS gate,
// presence gate, radius gate. Only the first failing gate fires, so a student
// with both a weak signal and an out-of-range position is told about the
// signal, not the distance.
func ValidateLocation(pos Position, zone Zone) Verdict {
	if pos.AccuracyMeters != nil && *pos.AccuracyMeters >= WeakAccuracyMeters {
		return Verdict{
			Reason:  ReasonWeakGPS,
			Message: "GPS signal is not strong enough. Make sure you are in an open area and try again.",
		}
	}

	if pos.Latitude == nil || pos.Longitude == nil ||
		zone.CenterLatitude == nil || zone.CenterLongitude == nil {
		return Verdict{
			Reason:  ReasonMissingLocation,
			Message: "Location information is missing. Please share your location.",
		}
	}

	distance := Distance(
		Coordinate{Latitude: *pos.Latitude, Longitude: *pos.Longitude},
		Coordinate{Latitude: *zone.CenterLatitude, Longitude: *zone.CenterLongitude},
	)
	rounded := math.Round(distance)

	if distance > zone.RadiusMeters {
		return Verdict{
			Reason:         ReasonOutsideRange,
			Message:        fmt.Sprintf("You are %.0f meters away from the lesson location. Please move closer.", rounded),
			DistanceMeters: &rounded,
		}
	}

	return Verdict{
		Valid:          true,
		Reason:         ReasonSuccess,
		Message:        "Location verified.",
		DistanceMeters: &rounded,
	}
}
