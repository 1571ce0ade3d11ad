package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	"authgate/internal/auth/store"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, access_token, refresh_token, access_expires_at, refresh_expires_at, ip_address, user_agent, device_name, is_active, last_accessed, created_at`

func (s *PostgresStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			access_expires_at = EXCLUDED.access_expires_at,
			refresh_expires_at = EXCLUDED.refresh_expires_at,
			is_active = EXCLUDED.is_active,
			last_accessed = EXCLUDED.last_accessed`,
		session.ID, session.UserID, session.AccessToken, session.RefreshToken,
		session.AccessExpiresAt, session.RefreshExpiresAt,
		session.IPAddress, session.UserAgent, session.DeviceName,
		session.IsActive, session.LastAccessed, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row, "find session by id")
}

func (s *PostgresStore) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE access_token = $1`, token)
	return scanSession(row, "find session by access token")
}

func (s *PostgresStore) FindByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = $1`, token)
	return scanSession(row, "find session by refresh token")
}

func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("list active sessions: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sessions WHERE user_id = $1 AND is_active`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeactivateAllByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions rows: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE refresh_expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows: %w", err)
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row, op string) (*models.Session, error) {
	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func scanSessionRow(row rowScanner) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID, &session.UserID, &session.AccessToken, &session.RefreshToken,
		&session.AccessExpiresAt, &session.RefreshExpiresAt,
		&session.IPAddress, &session.UserAgent, &session.DeviceName,
		&session.IsActive, &session.LastAccessed, &session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
