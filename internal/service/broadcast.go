package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"gatebot/core/logger"
	"gatebot/internal/domain"
)

// MessageSender delivers one outbound message to a chat. The context bounds
// the single delivery; implementations should honor its deadline.
type MessageSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// BroadcastReport aggregates the outcome of one fan-out.
type BroadcastReport struct {
	Attempted int
	Delivered int
	FailedIDs []int64
}

// Broadcaster sends an operator message to every known user. Deliveries are
// independent: one failure never aborts the rest of the batch.
type Broadcaster struct {
	users       domain.UserRepository
	sender      MessageSender
	adminID     int64
	concurrency int
	sendTimeout time.Duration
}

// NewBroadcaster wires the fan-out with bounded concurrency and a per-recipient
// send timeout so a single unreachable recipient cannot stall the batch.
func NewBroadcaster(users domain.UserRepository, sender MessageSender, adminID int64, concurrency int, sendTimeout time.Duration) *Broadcaster {
	if concurrency <= 0 {
		concurrency = 8
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Broadcaster{
		users:       users,
		sender:      sender,
		adminID:     adminID,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
	}
}

// Broadcast delivers text to every known user's chat. Only the administrative
// identity may invoke it; any other caller is rejected before the store is
// touched. Cancelling ctx stops scheduling further recipients while keeping
// the counts accumulated so far.
func (b *Broadcaster) Broadcast(ctx context.Context, callerID int64, text string) (BroadcastReport, error) {
	if callerID != b.adminID {
		return BroadcastReport{}, domain.ErrUnauthorized
	}

	users, err := b.users.ListAll(ctx)
	if err != nil {
		return BroadcastReport{}, fmt.Errorf("broadcast: list users: %w", err)
	}

	var (
		mu     sync.Mutex
		report BroadcastReport
	)

	g := &errgroup.Group{}
	g.SetLimit(b.concurrency)

	for i := range users {
		if ctx.Err() != nil {
			break
		}
		u := users[i]

		mu.Lock()
		report.Attempted++
		mu.Unlock()

		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
			defer cancel()

			if err := b.sender.Send(sendCtx, u.ChatID, text); err != nil {
				logger.Warn(ctx, "service.broadcast", "delivery.failed",
					slog.Int64("user_id", u.UserID),
					slog.Int64("chat_id", u.ChatID),
					slog.String("err", err.Error()),
				)
				mu.Lock()
				report.FailedIDs = append(report.FailedIDs, u.UserID)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Delivered++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.FailedIDs, func(i, j int) bool { return report.FailedIDs[i] < report.FailedIDs[j] })

	logger.Info(ctx, "service.broadcast", "broadcast.done",
		slog.Int("attempted", report.Attempted),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", len(report.FailedIDs)),
	)
	return report, nil
}
