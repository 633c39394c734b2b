package service

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"gatebot/core/logger"
	"gatebot/internal/domain"
)

// DownloadResult is returned for an admitted download request.
type DownloadResult struct {
	SourceURL string
	ResultURL string
	ExpiresAt time.Time
	LinkTTL   time.Duration
}

// DownloadGate admits download requests only for users holding an active
// token, and records every admitted request before anyone is notified.
type DownloadGate struct {
	users     domain.UserRepository
	downloads domain.DownloadRepository
	resolver  Resolver
	linkTTL   time.Duration
	now       func() time.Time
}

// NewDownloadGate wires the gate with its collaborators.
func NewDownloadGate(users domain.UserRepository, downloads domain.DownloadRepository, resolver Resolver, linkTTL time.Duration) *DownloadGate {
	return &DownloadGate{
		users:     users,
		downloads: downloads,
		resolver:  resolver,
		linkTTL:   linkTTL,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (g *DownloadGate) WithClock(now func() time.Time) *DownloadGate {
	g.now = now
	return g
}

// Request evaluates the caller's access state and, when admitted, resolves the
// locator and appends one download log entry. The append happens before the
// result is handed back, so callers never notify anyone about an unlogged
// download; an append failure aborts the whole request.
func (g *DownloadGate) Request(ctx context.Context, userID int64, sourceURL string) (*DownloadResult, error) {
	u, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("download gate: load user %d: %w", userID, err)
	}

	now := g.now()
	switch domain.Classify(u, now) {
	case domain.StateUnregistered:
		return nil, domain.ErrNotRegistered
	case domain.StatePendingMembership:
		return nil, domain.ErrMembershipPending
	case domain.StateTokenExpired:
		return nil, domain.ErrTokenExpired
	}

	resultURL, err := g.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("download gate: resolve: %w", err)
	}

	record := &domain.Download{
		UserID:    userID,
		SourceURL: sourceURL,
		ResultURL: resultURL,
		CreatedAt: now,
	}
	if err := g.downloads.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("download gate: append record: %w", err)
	}

	if err := g.users.IncrementDownloadCount(ctx, userID); err != nil {
		logger.Warn(ctx, "service.download", "count.increment_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "service.download", "download.admitted",
		slog.Int64("user_id", userID),
		slog.String("source_url", sourceURL),
	)
	return &DownloadResult{
		SourceURL: sourceURL,
		ResultURL: resultURL,
		ExpiresAt: now.Add(g.linkTTL),
		LinkTTL:   g.linkTTL,
	}, nil
}
