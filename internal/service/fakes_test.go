package service

import (
	"context"
	"sync"
	"time"

	"gatebot/internal/domain"
)

// fakeUserRepo is an in-memory domain.UserRepository recording call counts
// so tests can assert on store interactions.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User

	listCalls      int
	setExpiryCalls int

	getErr    error
	insertErr error
	listErr   error
	expiryErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) InsertIfAbsent(_ context.Context, u *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return false, r.insertErr
	}
	if _, ok := r.users[u.UserID]; ok {
		return false, nil
	}
	cp := *u
	r.users[u.UserID] = &cp
	return true, nil
}

func (r *fakeUserRepo) SetMember(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.IsMember = true
	}
	return nil
}

func (r *fakeUserRepo) SetTokenExpiry(_ context.Context, userID int64, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setExpiryCalls++
	if r.expiryErr != nil {
		return r.expiryErr
	}
	if u, ok := r.users[userID]; ok {
		e := expiry
		u.TokenExpiry = &e
	}
	return nil
}

func (r *fakeUserRepo) IncrementReferralCount(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.ReferralCount++
	}
	return nil
}

func (r *fakeUserRepo) IncrementDownloadCount(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.DownloadCount++
	}
	return nil
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) put(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := u
	r.users[u.UserID] = &cp
}

func (r *fakeUserRepo) get(userID int64) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[userID]
}

// fakeDownloadRepo is an in-memory append-only download log.
type fakeDownloadRepo struct {
	mu        sync.Mutex
	records   []domain.Download
	appendErr error
}

func (r *fakeDownloadRepo) Append(_ context.Context, d *domain.Download) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.records = append(r.records, *d)
	return nil
}

func (r *fakeDownloadRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

func (r *fakeDownloadRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeVerifier returns a scripted determination and counts probes.
type fakeVerifier struct {
	mu     sync.Mutex
	status Membership
	err    error
	calls  int
}

func (v *fakeVerifier) Verify(context.Context, int64) (Membership, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.status, v.err
}

func (v *fakeVerifier) probeCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// fakeResolver returns a scripted delivery locator.
type fakeResolver struct {
	url string
	err error
}

func (r fakeResolver) Resolve(context.Context, string) (string, error) {
	return r.url, r.err
}

// fakeSender records deliveries; failFor chat ids fail, and an optional
// onSend hook runs before the outcome is decided.
type fakeSender struct {
	mu      sync.Mutex
	sent    []int64
	failFor map[int64]error
	onSend  func(ctx context.Context, chatID int64) error
}

func (s *fakeSender) Send(ctx context.Context, chatID int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.onSend != nil {
		if err := s.onSend(ctx, chatID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[chatID]; ok {
		return err
	}
	s.sent = append(s.sent, chatID)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
