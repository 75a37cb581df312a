package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
)

// TokenRepository keeps one sealed token set per marketplace user.
type TokenRepository struct {
	db     *sql.DB
	sealer Sealer
}

func NewTokenRepository(db *sql.DB, sealer Sealer) *TokenRepository {
	return &TokenRepository{db: db, sealer: sealer}
}

func (r *TokenRepository) Save(ctx context.Context, t *marketplace.TokenSet) error {
	const q = `
INSERT INTO marketplace_tokens
  (user_id, access_token, refresh_token, token_type, scope, expires_at, updated_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  access_token=VALUES(access_token), refresh_token=VALUES(refresh_token),
  token_type=VALUES(token_type), scope=VALUES(scope),
  expires_at=VALUES(expires_at), updated_at=VALUES(updated_at);
`
	if t.UserID == 0 {
		return errx.Validation("token set has no user id")
	}
	aad := strconv.FormatInt(t.UserID, 10)
	access, err := r.sealer.Seal(t.AccessToken, aad)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := r.sealer.Seal(t.RefreshToken, aad)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	_, err = r.db.ExecContext(ctx, q, t.UserID, access, refresh, t.TokenType, t.Scope, t.ExpiresAt, time.Now())
	return err
}

func (r *TokenRepository) Load(ctx context.Context, userID int64) (*marketplace.TokenSet, error) {
	const q = `
SELECT access_token, refresh_token, token_type, scope, expires_at
FROM marketplace_tokens
WHERE user_id=?;`

	var access, refresh string
	t := marketplace.TokenSet{UserID: userID}
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&access, &refresh, &t.TokenType, &t.Scope, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("no tokens stored for user %d", userID)
	}
	if err != nil {
		return nil, err
	}

	aad := strconv.FormatInt(userID, 10)
	if t.AccessToken, err = r.sealer.Open(access, aad); err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	if t.RefreshToken, err = r.sealer.Open(refresh, aad); err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	if !t.ExpiresAt.IsZero() {
		t.ExpiresIn = int64(time.Until(t.ExpiresAt) / time.Second)
	}
	return &t, nil
}
