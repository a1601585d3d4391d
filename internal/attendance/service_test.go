package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"qrattend/internal/audit"
	"qrattend/internal/geo"
	"qrattend/internal/lesson"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

type fakeLessons struct {
	lessons map[string]*lesson.Lesson
}

func (f *fakeLessons) GetByID(_ context.Context, id string) (*lesson.Lesson, error) {
	l, ok := f.lessons[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// fakeRecords mimics the Postgres repo: lookups are racy, the insert enforces
// the (lesson, origin) uniqueness under a lock, like the real constraint.
type fakeRecords struct {
	mu     sync.Mutex
	recs   map[string]Record
	nextID int64
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: make(map[string]Record)}
}

func key(lessonID, origin string) string { return lessonID + "\x00" + origin }

func (f *fakeRecords) FindByLessonAndOrigin(_ context.Context, lessonID, origin string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.recs[key(lessonID, origin)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeRecords) Insert(_ context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(rec.LessonID, rec.Origin)
	if _, ok := f.recs[k]; ok {
		return ErrDuplicate
	}
	f.nextID++
	rec.ID = f.nextID
	f.recs[k] = *rec
	return nil
}

type captureLogger struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (l *captureLogger) Record(_ context.Context, e audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, e)
	return nil
}

func plainLesson(id string) *lesson.Lesson {
	return &lesson.Lesson{ID: id, TeacherID: 1, Name: "Algorithms", Date: "2026-09-01"}
}

func fencedLesson(id string) *lesson.Lesson {
	l := plainLesson(id)
	l.LocationEnabled = true
	l.CenterLatitude = fptr(41.0082)
	l.CenterLongitude = fptr(28.9784)
	l.RadiusMeters = iptr(100)
	return l
}

func newService(lessons map[string]*lesson.Lesson, logger audit.Logger) (*Service, *fakeRecords) {
	recs := newFakeRecords()
	return NewService(&fakeLessons{lessons: lessons}, recs, logger), recs
}

func TestSubmitInvalidInput(t *testing.T) {
	svc, _ := newService(map[string]*lesson.Lesson{"L1": plainLesson("L1")}, nil)

	tests := []struct {
		name string
		sub  Submission
	}{
		{name: "empty name", sub: Submission{LessonID: "L1", Origin: "10.0.0.1"}},
		{name: "whitespace name", sub: Submission{LessonID: "L1", StudentName: "   ", Origin: "10.0.0.1"}},
		{name: "name too long", sub: Submission{LessonID: "L1", StudentName: strings.Repeat("a", 101), Origin: "10.0.0.1"}},
		{name: "empty lesson id", sub: Submission{StudentName: "Ada", Origin: "10.0.0.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Submit(context.Background(), tt.sub)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if out.Accepted || out.Reason != ReasonInvalidInput {
				t.Errorf("Reason = %q, want %q", out.Reason, ReasonInvalidInput)
			}
		})
	}
}

func TestSubmitLessonNotFound(t *testing.T) {
	svc, _ := newService(map[string]*lesson.Lesson{}, nil)
	out, err := svc.Submit(context.Background(), Submission{LessonID: "nope", StudentName: "Ada", Origin: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Reason != ReasonLessonNotFound {
		t.Errorf("Reason = %q, want %q", out.Reason, ReasonLessonNotFound)
	}
}

func TestSubmitInvalidatedLesson(t *testing.T) {
	l := fencedLesson("L1")
	l.IsInvalidated = true
	logger := &captureLogger{}
	svc, _ := newService(map[string]*lesson.Lesson{"L1": l}, logger)

	// Position is perfect; invalidation must still win.
	out, err := svc.Submit(context.Background(), Submission{
		LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1",
		Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(10),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Reason != ReasonLessonInvalidated {
		t.Errorf("Reason = %q, want %q", out.Reason, ReasonLessonInvalidated)
	}
	if len(logger.entries) != 0 {
		t.Errorf("validation logged %d times for an invalidated lesson, want 0", len(logger.entries))
	}
}

func TestSubmitLocationRejections(t *testing.T) {
	tests := []struct {
		name       string
		sub        Submission
		wantReason geo.Reason
		wantDist   bool
	}{
		{
			name: "weak gps",
			sub: Submission{
				LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1",
				Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(100),
			},
			wantReason: geo.ReasonWeakGPS,
		},
		{
			name:       "missing coordinates",
			sub:        Submission{LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1"},
			wantReason: geo.ReasonMissingLocation,
		},
		{
			name: "outside radius",
			sub: Submission{
				LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1",
				Latitude: fptr(41.0200), Longitude: fptr(28.9900), AccuracyMeters: fptr(10),
			},
			wantReason: geo.ReasonOutsideRange,
			wantDist:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &captureLogger{}
			svc, recs := newService(map[string]*lesson.Lesson{"L1": fencedLesson("L1")}, logger)

			out, err := svc.Submit(context.Background(), tt.sub)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if out.Accepted || out.Reason != ReasonLocationRejected {
				t.Fatalf("Reason = %q, want %q", out.Reason, ReasonLocationRejected)
			}
			if out.LocationReason != tt.wantReason {
				t.Errorf("LocationReason = %q, want %q", out.LocationReason, tt.wantReason)
			}
			if tt.wantDist != (out.DistanceMeters != nil) {
				t.Errorf("DistanceMeters present = %v, want %v", out.DistanceMeters != nil, tt.wantDist)
			}
			if len(logger.entries) != 1 {
				t.Fatalf("validation logged %d times, want 1", len(logger.entries))
			}
			if got := logger.entries[0].Result; got != string(tt.wantReason) {
				t.Errorf("audit Result = %q, want %q", got, tt.wantReason)
			}
			if len(recs.recs) != 0 {
				t.Errorf("%d records written after rejection, want 0", len(recs.recs))
			}
		})
	}
}

func TestSubmitAcceptedWithLocation(t *testing.T) {
	logger := &captureLogger{}
	svc, _ := newService(map[string]*lesson.Lesson{"L1": fencedLesson("L1")}, logger)

	out, err := svc.Submit(context.Background(), Submission{
		LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1",
		Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(10),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !out.Accepted || out.Reason != ReasonAccepted {
		t.Fatalf("Reason = %q, want %q", out.Reason, ReasonAccepted)
	}
	if out.DistanceMeters == nil {
		t.Fatal("DistanceMeters = nil, want a value")
	}
	if d := *out.DistanceMeters; d < 13 || d > 15 {
		t.Errorf("DistanceMeters = %v, want within [13, 15]", d)
	}
	if len(logger.entries) != 1 || logger.entries[0].Result != string(geo.ReasonSuccess) {
		t.Errorf("success verdict not audited: %+v", logger.entries)
	}
}

func TestSubmitAuditFailureDoesNotBlock(t *testing.T) {
	logger := &captureLogger{err: errors.New("audit store down")}
	svc, _ := newService(map[string]*lesson.Lesson{"L1": fencedLesson("L1")}, logger)

	out, err := svc.Submit(context.Background(), Submission{
		LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1",
		Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(10),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !out.Accepted {
		t.Errorf("Reason = %q, want acceptance despite audit failure", out.Reason)
	}
}

func TestSubmitStoresCoordinatesWithoutPolicy(t *testing.T) {
	svc, recs := newService(map[string]*lesson.Lesson{"L1": plainLesson("L1")}, nil)

	out, err := svc.Submit(context.Background(), Submission{
		LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1",
		Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(7),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !out.Accepted {
		t.Fatalf("Reason = %q, want acceptance", out.Reason)
	}
	if out.DistanceMeters != nil {
		t.Errorf("DistanceMeters = %v, want nil when no location policy", *out.DistanceMeters)
	}
	rec := recs.recs[key("L1", "10.0.0.1")]
	if rec.Latitude == nil || rec.AccuracyMeters == nil {
		t.Error("supplied coordinates not stored on the record")
	}
}

func TestSubmitDuplicateOrigin(t *testing.T) {
	svc, _ := newService(map[string]*lesson.Lesson{"L1": plainLesson("L1")}, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, Submission{LessonID: "L1", StudentName: "Ada", Origin: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !first.Accepted {
		t.Fatalf("first submission Reason = %q, want acceptance", first.Reason)
	}

	second, err := svc.Submit(ctx, Submission{LessonID: "L1", StudentName: "Grace", Origin: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if second.Reason != ReasonDuplicateOrigin {
		t.Errorf("second submission Reason = %q, want %q", second.Reason, ReasonDuplicateOrigin)
	}

	// A different origin is still welcome.
	third, err := svc.Submit(ctx, Submission{LessonID: "L1", StudentName: "Grace", Origin: "10.0.0.2"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !third.Accepted {
		t.Errorf("third submission Reason = %q, want acceptance", third.Reason)
	}
}

func TestSubmitConcurrentDuplicates(t *testing.T) {
	svc, recs := newService(map[string]*lesson.Lesson{"L1": plainLesson("L1")}, nil)

	const n = 32
	var wg sync.WaitGroup
	outcomes := make([]Outcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Submit(context.Background(), Submission{
				LessonID: "L1", StudentName: fmt.Sprintf("Student %d", i), Origin: "10.0.0.1",
			})
		}(i)
	}
	wg.Wait()

	accepted, duplicates := 0, 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Submit() error = %v", errs[i])
		}
		switch outcomes[i].Reason {
		case ReasonAccepted:
			accepted++
		case ReasonDuplicateOrigin:
			duplicates++
		default:
			t.Errorf("unexpected Reason %q", outcomes[i].Reason)
		}
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
	if duplicates != n-1 {
		t.Errorf("duplicates = %d, want %d", duplicates, n-1)
	}
	if len(recs.recs) != 1 {
		t.Errorf("records stored = %d, want 1", len(recs.recs))
	}
}

func TestSubmitEndToEndScenario(t *testing.T) {
	logger := &captureLogger{}
	svc, _ := newService(map[string]*lesson.Lesson{"L1": fencedLesson("L1")}, logger)
	ctx := context.Background()

	// Origin X, close by: accepted with distance around 14m.
	out, err := svc.Submit(ctx, Submission{
		LessonID: "L1", StudentName: "Ada", Origin: "X",
		Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(10),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !out.Accepted || out.DistanceMeters == nil || *out.DistanceMeters < 13 || *out.DistanceMeters > 15 {
		t.Fatalf("first submit = %+v, want acceptance at ~14m", out)
	}

	// Origin X again: duplicate.
	out, err = svc.Submit(ctx, Submission{
		LessonID: "L1", StudentName: "Ada", Origin: "X",
		Latitude: fptr(41.0083), Longitude: fptr(28.9785), AccuracyMeters: fptr(10),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Reason != ReasonDuplicateOrigin {
		t.Fatalf("second submit Reason = %q, want %q", out.Reason, ReasonDuplicateOrigin)
	}

	// Origin Y, across town: outside range at ~1550m.
	out, err = svc.Submit(ctx, Submission{
		LessonID: "L1", StudentName: "Grace", Origin: "Y",
		Latitude: fptr(41.0200), Longitude: fptr(28.9900), AccuracyMeters: fptr(10),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Reason != ReasonLocationRejected || out.LocationReason != geo.ReasonOutsideRange {
		t.Fatalf("third submit = %+v, want outside_range rejection", out)
	}
	if out.DistanceMeters == nil || *out.DistanceMeters < 1500 || *out.DistanceMeters > 1600 {
		t.Fatalf("third submit distance = %v, want ~1550m", out.DistanceMeters)
	}

	// Every validation attempt was audited, accepted or not.
	if len(logger.entries) != 3 {
		t.Errorf("audit entries = %d, want 3", len(logger.entries))
	}
}
