package lesson

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists lessons in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new lesson, generating a code when none is set. Location
// policy columns are only written when the policy is enabled.
func (r *Repository) Create(ctx context.Context, l *Lesson) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if !l.LocationEnabled {
		l.CenterLatitude, l.CenterLongitude, l.RadiusMeters, l.LocationName = nil, nil, nil, nil
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO lessons (id, teacher_id, name, date, location_enabled, center_latitude, center_longitude, radius_meters, location_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, l.ID, l.TeacherID, l.Name, l.Date, l.LocationEnabled, l.CenterLatitude, l.CenterLongitude, l.RadiusMeters, l.LocationName)
	return row.Scan(&l.CreatedAt)
}

// GetByID returns a lesson with its teacher's display name, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*Lesson, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT l.id, l.teacher_id, t.name, l.name, l.date, l.is_invalidated, l.location_enabled,
		       l.center_latitude, l.center_longitude, l.radius_meters, l.location_name, l.created_at
		FROM lessons l
		JOIN teachers t ON t.id = l.teacher_id
		WHERE l.id = $1
	`, id)
	return scanLesson(row)
}

// GetOwned returns a lesson only when it belongs to the given teacher.
func (r *Repository) GetOwned(ctx context.Context, id string, teacherID int64) (*Lesson, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT l.id, l.teacher_id, t.name, l.name, l.date, l.is_invalidated, l.location_enabled,
		       l.center_latitude, l.center_longitude, l.radius_meters, l.location_name, l.created_at
		FROM lessons l
		JOIN teachers t ON t.id = l.teacher_id
		WHERE l.id = $1 AND l.teacher_id = $2
	`, id, teacherID)
	return scanLesson(row)
}

// ListByTeacher returns a teacher's lessons, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID int64) ([]Lesson, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.teacher_id, t.name, l.name, l.date, l.is_invalidated, l.location_enabled,
		       l.center_latitude, l.center_longitude, l.radius_meters, l.location_name, l.created_at
		FROM lessons l
		JOIN teachers t ON t.id = l.teacher_id
		WHERE l.teacher_id = $1
		ORDER BY l.created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.TeacherID, &l.TeacherName, &l.Name, &l.Date, &l.IsInvalidated, &l.LocationEnabled,
			&l.CenterLatitude, &l.CenterLongitude, &l.RadiusMeters, &l.LocationName, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// Invalidate flips the one-way invalidation flag. It never resets.
func (r *Repository) Invalidate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE lessons SET is_invalidated = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("lesson %s not found", id)
	}
	return nil
}

// Delete removes a lesson along with its attendances and validation logs.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE lesson_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM location_validation_logs WHERE lesson_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanLesson(row *sql.Row) (*Lesson, error) {
	var l Lesson
	if err := row.Scan(&l.ID, &l.TeacherID, &l.TeacherName, &l.Name, &l.Date, &l.IsInvalidated, &l.LocationEnabled,
		&l.CenterLatitude, &l.CenterLongitude, &l.RadiusMeters, &l.LocationName, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
