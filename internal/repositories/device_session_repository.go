package repositories

import (
	"context"
	"fmt"

	"github.com/sparkmatch/backend/internal/db"
	"github.com/sparkmatch/backend/internal/models"
)

// PostgresDeviceSessionRepository persists device sessions to PostgreSQL.
type PostgresDeviceSessionRepository struct {
	pool db.Pool
}

// NewPostgresDeviceSessionRepository constructs a device session store backed by PostgreSQL.
func NewPostgresDeviceSessionRepository(pool db.Pool) *PostgresDeviceSessionRepository {
	return &PostgresDeviceSessionRepository{pool: pool}
}

// Save stores or refreshes a device session record.
func (s *PostgresDeviceSessionRepository) Save(ctx context.Context, session models.DeviceSession) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO device_sessions (token, account_id, issued_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (token)
        DO UPDATE SET account_id = EXCLUDED.account_id, issued_at = EXCLUDED.issued_at
    `, session.Token, session.AccountID, session.IssuedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert device session: %w", err)
	}

	return nil
}

// DeleteForAccount revokes every device session held for the account. Deleting
// zero rows is not an error: sign-out is idempotent.
func (s *PostgresDeviceSessionRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM device_sessions
        WHERE account_id = $1
    `, accountID); err != nil {
		return fmt.Errorf("delete device sessions: %w", err)
	}

	return nil
}
