package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenlife"
)

type resetRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Token     string `db:"token"`
	ExpiresAt int64  `db:"expires_at"`
	Used      bool   `db:"used"`
	CreatedAt int64  `db:"created_at"`
}

func (r resetRow) request() tokenlife.PasswordResetRequest {
	return tokenlife.PasswordResetRequest{
		ID:        r.ID,
		UserID:    r.UserID,
		Token:     r.Token,
		ExpiresAt: time.UnixMilli(r.ExpiresAt).UTC(),
		Used:      r.Used,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// ReplaceForUser deletes the user's existing requests and inserts req in one
// transaction.
func (s *Store) ReplaceForUser(ctx context.Context, req tokenlife.PasswordResetRequest) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(
		`DELETE FROM password_reset_requests WHERE user_id = ?`), req.UserID); err != nil {
		return fmt.Errorf("sqlstore: delete reset requests: %w", err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO password_reset_requests (id, user_id, token, expires_at, used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		req.ID, req.UserID, req.Token, req.ExpiresAt.UnixMilli(), req.Used, req.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("sqlstore: insert reset request: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

// FindByToken returns [tokenlife.ErrResetRequestNotFound] for unknown tokens.
func (s *Store) FindByToken(ctx context.Context, token string) (tokenlife.PasswordResetRequest, error) {
	var row resetRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT id, user_id, token, expires_at, used, created_at
		 FROM password_reset_requests WHERE token = ?`), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tokenlife.PasswordResetRequest{}, tokenlife.ErrResetRequestNotFound
		}
		return tokenlife.PasswordResetRequest{}, fmt.Errorf("sqlstore: find reset request: %w", err)
	}
	return row.request(), nil
}

// MarkUsed flips used with a conditional update so that exactly one caller
// wins for a given row.
func (s *Store) MarkUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE password_reset_requests SET used = ?
		 WHERE id = ? AND used = ? AND expires_at > ?`),
		true, id, false, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("sqlstore: mark reset request used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlstore: mark reset request used: %w", err)
	}
	return n == 1, nil
}

// DeleteExpired removes requests that expired at or before now and returns
// how many rows went away.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM password_reset_requests WHERE expires_at <= ?`), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlstore: delete expired reset requests: %w", err)
	}
	return res.RowsAffected()
}
