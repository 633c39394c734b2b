package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gatebot/internal/domain"
)

// UserRepository implements domain.UserRepository on PostgreSQL.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a user repository bound to the given pool.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns the user record or nil when the identity is unknown.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	const query = `
		SELECT user_id, chat_id, join_date, is_member, token_expiry,
		       is_referred, referral_code, referral_count, download_count
		FROM users
		WHERE user_id = $1`

	var u domain.User
	if err := r.db.GetContext(ctx, &u, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &u, nil
}

// InsertIfAbsent inserts the record unless one already exists for the same
// user_id. It reports whether a row was actually created, making concurrent
// registration idempotent at the store layer.
func (r *UserRepository) InsertIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	const query = `
		INSERT INTO users (user_id, chat_id, join_date, is_member, token_expiry,
		                   is_referred, referral_code, referral_count, download_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		u.UserID, u.ChatID, u.JoinDate, u.IsMember, u.TokenExpiry,
		u.IsReferred, u.ReferralCode, u.ReferralCount, u.DownloadCount,
	)
	if err != nil {
		return false, fmt.Errorf("insert user %d: %w", u.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user %d: rows affected: %w", u.UserID, err)
	}
	return n > 0, nil
}

// SetMember confirms channel membership. The flag is one-way: it is only ever
// raised, never reset by this repository.
func (r *UserRepository) SetMember(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_member = TRUE WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("set member %d: %w", userID, err)
	}
	return nil
}

// SetTokenExpiry overwrites the token window; the previous value is discarded.
func (r *UserRepository) SetTokenExpiry(ctx context.Context, userID int64, expiry time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET token_expiry = $2 WHERE user_id = $1`, userID, expiry); err != nil {
		return fmt.Errorf("set token expiry %d: %w", userID, err)
	}
	return nil
}

// IncrementReferralCount credits one successful referral to the user.
func (r *UserRepository) IncrementReferralCount(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET referral_count = referral_count + 1 WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("increment referral count %d: %w", userID, err)
	}
	return nil
}

// IncrementDownloadCount counts one admitted download for the user.
func (r *UserRepository) IncrementDownloadCount(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET download_count = download_count + 1 WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("increment download count %d: %w", userID, err)
	}
	return nil
}

// ListAll returns every known user record.
func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT user_id, chat_id, join_date, is_member, token_expiry,
		       is_referred, referral_code, referral_count, download_count
		FROM users
		ORDER BY join_date`

	var users []domain.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Count returns the total number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
