package teacher

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailTaken is returned when registering with an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

// Repository persists teacher accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new teacher. The email unique constraint is the
// authoritative duplicate signal.
func (r *Repository) Insert(ctx context.Context, t *Teacher) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, t.Name, t.Email, t.PasswordHash)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetByEmail returns a teacher or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM teachers WHERE email = $1
	`, email)
	var t Teacher
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, teacherID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (teacher_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, teacherID, token, expiresAt)
	return err
}

// RefreshTokenUsable reports whether a stored refresh token is still valid.
func (r *Repository) RefreshTokenUsable(ctx context.Context, token string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()
	`, token)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
