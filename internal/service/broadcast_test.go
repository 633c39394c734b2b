package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatebot/internal/domain"
)

const adminID int64 = 777

func seedUsers(repo *fakeUserRepo, n int) {
	for i := 1; i <= n; i++ {
		repo.put(domain.User{UserID: int64(i), ChatID: int64(1000 + i)})
	}
}

func TestBroadcastUnauthorized(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 3)
	sender := &fakeSender{}
	b := NewBroadcaster(users, sender, adminID, 4, time.Second)

	_, err := b.Broadcast(context.Background(), adminID+1, "hi")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, users.listCalls, "rejection must happen before any store read")
	assert.Zero(t, sender.sentCount())
}

func TestBroadcastDeliversToAll(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 5)
	sender := &fakeSender{}
	b := NewBroadcaster(users, sender, adminID, 4, time.Second)

	report, err := b.Broadcast(context.Background(), adminID, "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 5, report.Delivered)
	assert.Empty(t, report.FailedIDs)
	assert.Equal(t, 5, sender.sentCount())
}

func TestBroadcastPartialFailure(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 5)
	sender := &fakeSender{failFor: map[int64]error{
		1002: errors.New("blocked by user"),
		1004: errors.New("chat not found"),
	}}
	b := NewBroadcaster(users, sender, adminID, 4, time.Second)

	report, err := b.Broadcast(context.Background(), adminID, "hello")
	require.NoError(t, err, "per-recipient failures never abort the batch")
	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, []int64{2, 4}, report.FailedIDs)
}

func TestBroadcastBoundedConcurrency(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 20)

	var current, peak atomic.Int32
	sender := &fakeSender{onSend: func(context.Context, int64) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return nil
	}}
	b := NewBroadcaster(users, sender, adminID, 4, time.Second)

	report, err := b.Broadcast(context.Background(), adminID, "hello")
	require.NoError(t, err)
	assert.Equal(t, 20, report.Delivered)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestBroadcastPerSendTimeout(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 3)

	sender := &fakeSender{onSend: func(ctx context.Context, _ int64) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}}
	b := NewBroadcaster(users, sender, adminID, 4, 20*time.Millisecond)

	start := time.Now()
	report, err := b.Broadcast(context.Background(), adminID, "hello")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempted)
	assert.Zero(t, report.Delivered)
	assert.Len(t, report.FailedIDs, 3)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"slow recipients must be bounded by the per-send timeout")
}

func TestBroadcastCancellationPreservesCounts(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 6)

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	sender := &fakeSender{onSend: func(context.Context, int64) error {
		once.Do(cancel)
		return nil
	}}
	b := NewBroadcaster(users, sender, adminID, 1, time.Second)

	report, err := b.Broadcast(ctx, adminID, "hello")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Delivered, 1)
	assert.Equal(t, report.Attempted, report.Delivered+len(report.FailedIDs),
		"every scheduled recipient is accounted for")
	assert.Less(t, report.Attempted, 6, "cancellation stops scheduling new recipients")
}

func TestBroadcastAlreadyCancelled(t *testing.T) {
	users := newFakeUserRepo()
	seedUsers(users, 4)
	sender := &fakeSender{}
	b := NewBroadcaster(users, sender, adminID, 2, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := b.Broadcast(ctx, adminID, "hello")
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Zero(t, sender.sentCount())
}
