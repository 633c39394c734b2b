package service

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"gatebot/core/logger"
	"gatebot/internal/domain"
)

// Grant describes the token state reported back to the user after evaluation.
type Grant struct {
	Expiry   time.Time
	TTL      time.Duration
	Renewed  bool
	Referred bool
}

// AccessService drives the access state machine: registration, membership
// confirmation, and token issuance. All decisions are re-derived from the
// stored record on every call.
type AccessService struct {
	users       domain.UserRepository
	verifier    Verifier
	baseTTL     time.Duration
	referralTTL time.Duration
	now         func() time.Time
}

// NewAccessService wires the access state machine. The referral TTL is
// expected to be strictly greater than the base TTL; config validation
// enforces it before this constructor runs.
func NewAccessService(users domain.UserRepository, verifier Verifier, baseTTL, referralTTL time.Duration) *AccessService {
	return &AccessService{
		users:       users,
		verifier:    verifier,
		baseTTL:     baseTTL,
		referralTTL: referralTTL,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	s.now = now
	return s
}

// Register creates the user record on first contact. It reports whether a new
// record was created; repeating the call for a known identity changes nothing,
// including a referral argument supplied after the fact.
func (s *AccessService) Register(ctx context.Context, userID, chatID int64, startArg string) (bool, error) {
	referred := domain.IsReferralArg(startArg)
	u := &domain.User{
		UserID:       userID,
		ChatID:       chatID,
		JoinDate:     s.now(),
		IsReferred:   referred,
		ReferralCode: domain.ReferralCode(userID),
	}

	created, err := s.users.InsertIfAbsent(ctx, u)
	if err != nil {
		return false, fmt.Errorf("register user %d: %w", userID, err)
	}
	if !created {
		return false, nil
	}

	logger.Info(ctx, "service.access", "user.registered",
		slog.Int64("user_id", userID),
		slog.Bool("referred", referred),
	)

	if referred {
		s.creditReferrer(ctx, userID, startArg)
	}
	return true, nil
}

// creditReferrer bumps the referrer's counter when the argument names a known
// user. Crediting is best-effort and never fails the registration.
func (s *AccessService) creditReferrer(ctx context.Context, newUserID int64, startArg string) {
	referrerID, ok := domain.ReferrerID(startArg)
	if !ok || referrerID == newUserID {
		return
	}
	referrer, err := s.users.GetByID(ctx, referrerID)
	if err != nil || referrer == nil {
		return
	}
	if err := s.users.IncrementReferralCount(ctx, referrerID); err != nil {
		logger.Warn(ctx, "service.access", "referral.credit_failed",
			slog.Int64("referrer_id", referrerID),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "service.access", "referral.credited",
		slog.Int64("referrer_id", referrerID),
		slog.Int64("user_id", newUserID),
	)
}

// GetUser loads the record for an identity, or nil when unregistered.
func (s *AccessService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Evaluate runs the welcome evaluation: a confirmed member either keeps the
// currently active token or is issued a fresh one. The issued duration depends
// on the registration-time referral flag.
func (s *AccessService) Evaluate(ctx context.Context, userID int64) (Grant, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Grant{}, fmt.Errorf("evaluate user %d: %w", userID, err)
	}

	now := s.now()
	switch domain.Classify(u, now) {
	case domain.StateUnregistered:
		return Grant{}, domain.ErrNotRegistered
	case domain.StatePendingMembership:
		return Grant{}, domain.ErrMembershipPending
	case domain.StateTokenActive:
		return Grant{Expiry: *u.TokenExpiry, Referred: u.IsReferred}, nil
	}

	ttl := s.baseTTL
	if u.IsReferred {
		ttl = s.referralTTL
	}
	expiry := now.Add(ttl)
	if err := s.users.SetTokenExpiry(ctx, userID, expiry); err != nil {
		return Grant{}, fmt.Errorf("issue token for user %d: %w", userID, err)
	}

	logger.Info(ctx, "service.access", "token.issued",
		slog.Int64("user_id", userID),
		slog.Time("token_expiry", expiry),
		slog.Bool("referred", u.IsReferred),
	)
	return Grant{Expiry: expiry, TTL: ttl, Renewed: true, Referred: u.IsReferred}, nil
}

// ConfirmMembership runs the membership probe for a registered user. A
// confirmed membership raises the one-way flag and reports true. A definitive
// negative determination reports false with no mutation. A failed probe
// mutates nothing and surfaces ErrVerifyUnavailable so the user stays
// retriable.
func (s *AccessService) ConfirmMembership(ctx context.Context, userID int64) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("confirm membership %d: %w", userID, err)
	}
	if u == nil {
		return false, domain.ErrNotRegistered
	}
	if u.IsMember {
		return true, nil
	}

	status, err := s.verifier.Verify(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "service.verify", "probe.failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false, fmt.Errorf("%w: %s", domain.ErrVerifyUnavailable, err)
	}
	if status != Member {
		logger.Debug(ctx, "service.verify", "probe.negative",
			slog.Int64("user_id", userID),
			slog.String("membership", status.String()),
		)
		return false, nil
	}

	if err := s.users.SetMember(ctx, userID); err != nil {
		return false, fmt.Errorf("confirm membership %d: %w", userID, err)
	}
	logger.Info(ctx, "service.verify", "membership.confirmed",
		slog.Int64("user_id", userID),
	)
	return true, nil
}
