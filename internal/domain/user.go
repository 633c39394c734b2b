package domain

import (
	"context"
	"time"
)

// User is the persistent per-user record. One row per Telegram identity.
type User struct {
	UserID        int64      `db:"user_id"`
	ChatID        int64      `db:"chat_id"`
	JoinDate      time.Time  `db:"join_date"`
	IsMember      bool       `db:"is_member"`
	TokenExpiry   *time.Time `db:"token_expiry"`
	IsReferred    bool       `db:"is_referred"`
	ReferralCode  string     `db:"referral_code"`
	ReferralCount int        `db:"referral_count"`
	DownloadCount int        `db:"download_count"`
}

// Download is an append-only log entry for a granted download request.
type Download struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	SourceURL string    `db:"source_url"`
	ResultURL string    `db:"result_url"`
	CreatedAt time.Time `db:"created_at"`
}

// UserRepository defines keyed storage of user records.
// InsertIfAbsent must be atomic at the store layer so that concurrent
// registrations of the same identity produce exactly one row.
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	InsertIfAbsent(ctx context.Context, u *User) (bool, error)
	SetMember(ctx context.Context, userID int64) error
	SetTokenExpiry(ctx context.Context, userID int64, expiry time.Time) error
	IncrementReferralCount(ctx context.Context, userID int64) error
	IncrementDownloadCount(ctx context.Context, userID int64) error
	ListAll(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int64, error)
}

// DownloadRepository defines the append-only download log.
type DownloadRepository interface {
	Append(ctx context.Context, d *Download) error
	Count(ctx context.Context) (int64, error)
}
