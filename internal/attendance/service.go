package attendance

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"qrattend/internal/audit"
	"qrattend/internal/geo"
	"qrattend/internal/lesson"
)

// ErrDuplicate is returned by Store.Insert when the (lesson, origin) pair
// already holds a record. The storage uniqueness constraint is the
// authoritative duplicate signal; the pre-insert lookup is only a fast path.
var ErrDuplicate = errors.New("attendance already recorded for this origin")

// LessonStore resolves lesson codes. A nil lesson with a nil error means the
// code does not exist.
type LessonStore interface {
	GetByID(ctx context.Context, id string) (*lesson.Lesson, error)
}

// Store persists attendance records.
type Store interface {
	FindByLessonAndOrigin(ctx context.Context, lessonID, origin string) (*Record, error)
	Insert(ctx context.Context, rec *Record) error
}

// Submission is one inbound attendance attempt.
type Submission struct {
	LessonID       string
	StudentName    string
	Origin         string
	Latitude       *float64
	Longitude      *float64
	AccuracyMeters *float64
}

// Service coordinates lesson lookup, location validation, audit logging,
// deduplication and the final insert.
type Service struct {
	lessons LessonStore
	records Store
	audits  audit.Logger
}

// NewService creates a service. The audit logger may be nil, in which case
// validation attempts are simply not recorded.
func NewService(lessons LessonStore, records Store, audits audit.Logger) *Service {
	return &Service{lessons: lessons, records: records, audits: audits}
}

// Submit runs one submission through the full policy. Policy rejections come
// back as an Outcome; only storage failures surface as errors.
func (s *Service) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	name := strings.TrimSpace(sub.StudentName)
	if sub.LessonID == "" || utf8.RuneCountInString(name) < MinNameLen {
		return Outcome{Reason: ReasonInvalidInput, Message: "Please enter your full name."}, nil
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return Outcome{Reason: ReasonInvalidInput, Message: "Student name must be between 1 and 100 characters."}, nil
	}

	lsn, err := s.lessons.GetByID(ctx, sub.LessonID)
	if err != nil {
		return Outcome{}, err
	}
	if lsn == nil {
		return Outcome{Reason: ReasonLessonNotFound, Message: "Lesson not found. Please scan the QR code again."}, nil
	}

	// Invalidation beats everything else, including a perfect position.
	if lsn.IsInvalidated {
		return Outcome{Reason: ReasonLessonInvalidated, Message: "This QR code is no longer valid. Contact your teacher."}, nil
	}

	var verdict geo.Verdict
	if lsn.LocationEnabled {
		var radius float64
		if lsn.RadiusMeters != nil {
			radius = float64(*lsn.RadiusMeters)
		}
		verdict = geo.ValidateLocation(
			geo.Position{Latitude: sub.Latitude, Longitude: sub.Longitude, AccuracyMeters: sub.AccuracyMeters},
			geo.Zone{CenterLatitude: lsn.CenterLatitude, CenterLongitude: lsn.CenterLongitude, RadiusMeters: radius},
		)
		s.logValidation(ctx, sub, name, lsn, verdict)

		if !verdict.Valid {
			return Outcome{
				Reason:          ReasonLocationRejected,
				LocationReason:  verdict.Reason,
				Message:         verdict.Message,
				LocationEnabled: true,
				DistanceMeters:  verdict.DistanceMeters,
			}, nil
		}
	}

	prior, err := s.records.FindByLessonAndOrigin(ctx, sub.LessonID, sub.Origin)
	if err != nil {
		return Outcome{}, err
	}
	if prior == nil {
		rec := &Record{
			LessonID:       sub.LessonID,
			StudentName:    name,
			Origin:         sub.Origin,
			Latitude:       sub.Latitude,
			Longitude:      sub.Longitude,
			AccuracyMeters: sub.AccuracyMeters,
		}
		err = s.records.Insert(ctx, rec)
		if err == nil {
			return Outcome{
				Accepted:        true,
				Reason:          ReasonAccepted,
				Message:         "Attendance recorded!",
				LocationEnabled: lsn.LocationEnabled,
				DistanceMeters:  verdict.DistanceMeters,
			}, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return Outcome{}, err
		}
		// Lost the race to a concurrent submission from the same origin;
		// fall through to the duplicate rejection.
	}

	return Outcome{
		Reason:          ReasonDuplicateOrigin,
		Message:         "Attendance was already taken from this device. Each device can only check in once.",
		LocationEnabled: lsn.LocationEnabled,
	}, nil
}

// logValidation records the verdict, pass or fail. Audit writes never fail a
// submission.
func (s *Service) logValidation(ctx context.Context, sub Submission, name string, lsn *lesson.Lesson, v geo.Verdict) {
	if s.audits == nil {
		return
	}
	entry := audit.Entry{
		LessonID:            sub.LessonID,
		StudentName:         &name,
		Origin:              sub.Origin,
		Latitude:            sub.Latitude,
		Longitude:           sub.Longitude,
		AccuracyMeters:      sub.AccuracyMeters,
		DistanceMeters:      v.DistanceMeters,
		AllowedRadiusMeters: lsn.RadiusMeters,
		Result:              string(v.Reason),
		Message:             v.Message,
	}
	if err := s.audits.Record(ctx, entry); err != nil {
		log.Printf("validation log write failed for lesson %s: %v", sub.LessonID, err)
	}
}
