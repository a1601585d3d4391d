package audit

import (
	"context"
	"database/sql"
)

// PostgresLogger writes validation entries straight to the audit table.
type PostgresLogger struct {
	db *sql.DB
}

// NewPostgresLogger creates a logger backed by the given connection.
func NewPostgresLogger(db *sql.DB) *PostgresLogger {
	return &PostgresLogger{db: db}
}

// Record appends one audit row.
func (l *PostgresLogger) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO location_validation_logs (
			lesson_id, student_name, ip_address, latitude, longitude,
			accuracy, distance_meters, allowed_radius_meters,
			validation_result, validation_message
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.LessonID, e.StudentName, e.Origin, e.Latitude, e.Longitude,
		e.AccuracyMeters, e.DistanceMeters, e.AllowedRadiusMeters,
		e.Result, e.Message)
	return err
}
