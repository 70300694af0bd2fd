// Package sessions stores staff refresh tokens.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinica-estetica/turnos/libs/db"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// RefreshToken is stored by hash only; the raw value is returned once.
type RefreshToken struct {
	ID        string
	UserID    string
	Hash      string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Usable reports whether the token may still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

type RefreshRepository struct {
	pool *db.Pool
}

func NewRefreshRepository(pool *db.Pool) *RefreshRepository {
	return &RefreshRepository{pool: pool}
}

func (r *RefreshRepository) Create(ctx context.Context, userID, rawToken string, expiresAt time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1::uuid, $2::uuid, $3, $4)`,
		id, userID, HashToken(rawToken), expiresAt,
	); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RefreshRepository) GetByHash(ctx context.Context, hash string) (RefreshToken, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id::text, user_id::text, token_hash, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = $1`,
		hash,
	)
	var t RefreshToken
	switch err := row.Scan(&t.ID, &t.UserID, &t.Hash, &t.ExpiresAt, &t.RevokedAt); {
	case db.IsNotFound(err):
		return RefreshToken{}, ErrTokenNotFound
	case err != nil:
		return RefreshToken{}, err
	}
	return t, nil
}

// Revoke reports whether this call revoked the token; false means it was
// already revoked.
func (r *RefreshRepository) Revoke(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1::uuid AND revoked_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAll ends every open session of a user.
func (r *RefreshRepository) RevokeAll(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE user_id = $1::uuid AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes tokens that expired before cutoff.
func (r *RefreshRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
