package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

type ConnectionRepository interface {
	Get(ctx context.Context, userID int64, platform, account string) (*models.PlatformConnection, error)
	Upsert(ctx context.Context, c *models.PlatformConnection) (int64, error)
	SwapTokens(ctx context.Context, id int64, oldRefreshToken string, c *models.PlatformConnection) (bool, error)
	ListExpiring(ctx context.Context, platform string, before time.Time) ([]*models.PlatformConnection, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error)
	Remove(ctx context.Context, userID int64, platform, account string) (bool, error)
}

const connectionColumns = `id, user_id, platform, account_name, access_token, refresh_token, token_expires_at, refresh_expires_at, connected_at, updated_at`

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func scanConnection(row rowScanner) (*models.PlatformConnection, error) {
	var c models.PlatformConnection
	err := row.Scan(&c.ID, &c.UserID, &c.Platform, &c.AccountName, &c.AccessToken, &c.RefreshToken,
		&c.TokenExpiresAt, &c.RefreshExpiresAt, &c.ConnectedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *connectionRepository) Get(ctx context.Context, userID int64, platform, account string) (*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections
		WHERE user_id = $1 AND platform = $2 AND account_name = $3`

	c, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, platform, account))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return c, nil
}

// Upsert stores a fresh token pair for (user, platform, account), replacing
// any previous row in a single statement.
func (r *connectionRepository) Upsert(ctx context.Context, c *models.PlatformConnection) (int64, error) {
	query := `
		INSERT INTO platform_connections (
			user_id,
			platform,
			account_name,
			access_token,
			refresh_token,
			token_expires_at,
			refresh_expires_at,
			connected_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id, platform, account_name) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			refresh_expires_at = EXCLUDED.refresh_expires_at,
			connected_at = EXCLUDED.connected_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		c.UserID,
		c.Platform,
		c.AccountName,
		c.AccessToken,
		c.RefreshToken,
		c.TokenExpiresAt,
		c.RefreshExpiresAt,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// SwapTokens overwrites the token pair only if the stored refresh token is
// still oldRefreshToken. It reports false when someone else rotated it first.
func (r *connectionRepository) SwapTokens(ctx context.Context, id int64, oldRefreshToken string, c *models.PlatformConnection) (bool, error) {
	query := `
		UPDATE platform_connections
		SET access_token = $3,
			refresh_token = $4,
			token_expires_at = $5,
			refresh_expires_at = $6,
			updated_at = $7
		WHERE id = $1 AND refresh_token = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, oldRefreshToken,
		c.AccessToken, c.RefreshToken, c.TokenExpiresAt, c.RefreshExpiresAt, time.Now().UTC())
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *connectionRepository) ListExpiring(ctx context.Context, platform string, before time.Time) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections
		WHERE platform = $1
		AND refresh_token <> ''
		AND token_expires_at < $2
		AND (refresh_expires_at IS NULL OR refresh_expires_at > $3)`
	return r.list(ctx, query, platform, before.UTC(), time.Now().UTC())
}

func (r *connectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 ORDER BY account_name`
	return r.list(ctx, query, userID)
}

func (r *connectionRepository) list(ctx context.Context, query string, args ...any) ([]*models.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.PlatformConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, c)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return connections, nil
}

func (r *connectionRepository) Remove(ctx context.Context, userID int64, platform, account string) (bool, error) {
	query := `DELETE FROM platform_connections WHERE user_id = $1 AND platform = $2 AND account_name = $3`
	result, err := r.db.ExecContext(ctx, query, userID, platform, account)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected > 0, nil
}
