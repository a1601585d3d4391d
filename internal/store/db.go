package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and bootstraps the schema.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS teachers (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGSERIAL PRIMARY KEY,
		teacher_id BIGINT NOT NULL REFERENCES teachers(id),
		token      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS lessons (
		id               TEXT PRIMARY KEY,
		teacher_id       BIGINT NOT NULL REFERENCES teachers(id),
		name             TEXT NOT NULL,
		date             TEXT NOT NULL,
		is_invalidated   BOOLEAN NOT NULL DEFAULT FALSE,
		location_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		center_latitude  DOUBLE PRECISION,
		center_longitude DOUBLE PRECISION,
		radius_meters    INTEGER,
		location_name    TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attendances (
		id                BIGSERIAL PRIMARY KEY,
		lesson_id         TEXT NOT NULL REFERENCES lessons(id),
		student_name      TEXT NOT NULL,
		ip_address        TEXT NOT NULL,
		latitude          DOUBLE PRECISION,
		longitude         DOUBLE PRECISION,
		location_accuracy DOUBLE PRECISION,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (lesson_id, ip_address)
	);

	CREATE TABLE IF NOT EXISTS location_validation_logs (
		id                    BIGSERIAL PRIMARY KEY,
		lesson_id             TEXT NOT NULL REFERENCES lessons(id),
		student_name          TEXT,
		ip_address            TEXT NOT NULL,
		latitude              DOUBLE PRECISION,
		longitude             DOUBLE PRECISION,
		accuracy              DOUBLE PRECISION,
		distance_meters       DOUBLE PRECISION,
		allowed_radius_meters INTEGER,
		validation_result     TEXT NOT NULL,
		validation_message    TEXT,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_lessons_teacher    ON lessons(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_attendances_lesson ON attendances(lesson_id);
	CREATE INDEX IF NOT EXISTS idx_validation_lesson  ON location_validation_logs(lesson_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
