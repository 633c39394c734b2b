package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gatebot/internal/domain"
)

// DownloadRepository implements domain.DownloadRepository on PostgreSQL.
// Rows are append-only; nothing in the core updates or deletes them.
type DownloadRepository struct {
	db *sqlx.DB
}

// NewDownloadRepository creates a download log repository bound to the given pool.
func NewDownloadRepository(db *sqlx.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Append writes one download log entry. A missing id is generated here so
// callers may leave it empty.
func (r *DownloadRepository) Append(ctx context.Context, d *domain.Download) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO downloads (id, user_id, source_url, result_url, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.SourceURL, d.ResultURL, d.CreatedAt); err != nil {
		return fmt.Errorf("append download for user %d: %w", d.UserID, err)
	}
	return nil
}

// Count returns the total number of logged downloads.
func (r *DownloadRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM downloads`); err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}
	return n, nil
}
