package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindByLessonAndOrigin returns the record for the pair, or nil when absent.
func (r *Repository) FindByLessonAndOrigin(ctx context.Context, lessonID, origin string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, lesson_id, student_name, ip_address, latitude, longitude, location_accuracy, created_at
		FROM attendances
		WHERE lesson_id = $1 AND ip_address = $2
	`, lessonID, origin)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.LessonID, &rec.StudentName, &rec.Origin,
		&rec.Latitude, &rec.Longitude, &rec.AccuracyMeters, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. A unique violation on (lesson_id, ip_address)
// comes back as ErrDuplicate so concurrent submissions from one origin
// collapse to a single row.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendances (lesson_id, student_name, ip_address, latitude, longitude, location_accuracy)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, rec.LessonID, rec.StudentName, rec.Origin, rec.Latitude, rec.Longitude, rec.AccuracyMeters)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListByLesson returns a lesson's records, oldest first.
func (r *Repository) ListByLesson(ctx context.Context, lessonID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lesson_id, student_name, ip_address, latitude, longitude, location_accuracy, created_at
		FROM attendances
		WHERE lesson_id = $1
		ORDER BY created_at ASC
	`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.LessonID, &rec.StudentName, &rec.Origin,
			&rec.Latitude, &rec.Longitude, &rec.AccuracyMeters, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
