package geo

import (
	"strings"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestValidateLocation(t *testing.T) {
	center := Zone{
		CenterLatitude:  fptr(41.0082),
		CenterLongitude: fptr(28.9784),
		RadiusMeters:    100,
	}

	tests := []struct {
		name         string
		pos          Position
		zone         Zone
		wantValid    bool
		wantReason   Reason
		wantDistance bool
	}{
		{
			name:       "accuracy at threshold rejects",
			pos:        Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(100)},
			zone:       center,
			wantReason: ReasonWeakGPS,
		},
		{
			name:       "accuracy above threshold rejects",
			pos:        Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(250)},
			zone:       center,
			wantReason: ReasonWeakGPS,
		},
		{
			name:       "accuracy just below threshold passes the gate",
			pos:        Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(99.9)},
			zone:       center,
			wantValid:  true,
			wantReason: ReasonSuccess, wantDistance: true,
		},
		{
			name: "weak gps wins over missing coordinates",
			pos:  Position{AccuracyMeters: fptr(150)},
			zone: center, wantReason: ReasonWeakGPS,
		},
		{
			name: "weak gps wins over out of range",
			pos:  Position{Latitude: fptr(41.0200), Longitude: fptr(28.9900), AccuracyMeters: fptr(120)},
			zone: center, wantReason: ReasonWeakGPS,
		},
		{
			name: "missing student latitude",
			pos:  Position{Longitude: fptr(28.9785), AccuracyMeters: fptr(10)},
			zone: center, wantReason: ReasonMissingLocation,
		},
		{
			name: "missing student longitude",
			pos:  Position{Latitude: fptr(41.0083)},
			zone: center, wantReason: ReasonMissingLocation,
		},
		{
			name:       "missing center latitude",
			pos:        Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785)},
			zone:       Zone{CenterLongitude: fptr(28.9784), RadiusMeters: 100},
			wantReason: ReasonMissingLocation,
		},
		{
			name:       "missing center longitude",
			pos:        Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785)},
			zone:       Zone{CenterLatitude: fptr(41.0082), RadiusMeters: 100},
			wantReason: ReasonMissingLocation,
		},
		{
			name:      "zero coordinate is a real position",
			pos:       Position{Latitude: fptr(0), Longitude: fptr(0), AccuracyMeters: fptr(5)},
			zone:      Zone{CenterLatitude: fptr(0), CenterLongitude: fptr(0), RadiusMeters: 50},
			wantValid: true, wantReason: ReasonSuccess, wantDistance: true,
		},
		{
			name:         "outside radius",
			pos:          Position{Latitude: fptr(41.0200), Longitude: fptr(28.9900), AccuracyMeters: fptr(10)},
			zone:         center,
			wantReason:   ReasonOutsideRange,
			wantDistance: true,
		},
		{
			name:      "inside radius",
			pos:       Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(10)},
			zone:      center,
			wantValid: true, wantReason: ReasonSuccess, wantDistance: true,
		},
		{
			name:      "no accuracy reported still validates",
			pos:       Position{Latitude: fptr(41.0083), Longitude: fptr(28.9785)},
			zone:      center,
			wantValid: true, wantReason: ReasonSuccess, wantDistance: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateLocation(tt.pos, tt.zone)
			if v.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", v.Valid, tt.wantValid)
			}
			if v.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.wantReason)
			}
			if tt.wantDistance && v.DistanceMeters == nil {
				t.Error("DistanceMeters = nil, want a value")
			}
			if !tt.wantDistance && v.DistanceMeters != nil {
				t.Errorf("DistanceMeters = %v, want nil", *v.DistanceMeters)
			}
			if v.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestValidateLocationDistanceRounded(t *testing.T) {
	zone := Zone{CenterLatitude: fptr(41.0082), CenterLongitude: fptr(28.9784), RadiusMeters: 100}
	pos := Position{Latitude: fptr(41.0200), Longitude: fptr(28.9900), AccuracyMeters: fptr(10)}

	v := ValidateLocation(pos, zone)
	if v.Reason != ReasonOutsideRange {
		t.Fatalf("Reason = %q, want %q", v.Reason, ReasonOutsideRange)
	}
	if v.DistanceMeters == nil {
		t.Fatal("DistanceMeters = nil, want a value")
	}
	d := *v.DistanceMeters
	if d != float64(int64(d)) {
		t.Errorf("DistanceMeters = %v, want a whole number of meters", d)
	}
	if d < 1500 || d > 1600 {
		t.Errorf("DistanceMeters = %v, want within [1500, 1600]", d)
	}
	if !strings.Contains(v.Message, "meters away") {
		t.Errorf("Message = %q, want the distance called out", v.Message)
	}
}
