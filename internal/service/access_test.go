package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatebot/internal/domain"
)

const (
	baseTTL     = 4 * time.Hour
	referralTTL = 8 * time.Hour
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newAccess(users *fakeUserRepo, v Verifier) *AccessService {
	return NewAccessService(users, v, baseTTL, referralTTL).WithClock(fixedClock(t0))
}

func TestRegisterIdempotent(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAccess(users, &fakeVerifier{})
	ctx := context.Background()

	created, err := svc.Register(ctx, 100, 200, "")
	require.NoError(t, err)
	assert.True(t, created)

	// A second /start, now carrying a referral argument, must not create a
	// second record nor flip the referral flag retroactively.
	created, err = svc.Register(ctx, 100, 200, "ref_42")
	require.NoError(t, err)
	assert.False(t, created)

	u := users.get(100)
	assert.False(t, u.IsReferred)
	assert.Equal(t, "ref_100", u.ReferralCode)
	assert.Equal(t, int64(200), u.ChatID)
	assert.False(t, u.IsMember)
	assert.Nil(t, u.TokenExpiry)
}

func TestRegisterReferredCreditsReferrer(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 42, ChatID: 42, IsMember: true})
	svc := newAccess(users, &fakeVerifier{})

	created, err := svc.Register(context.Background(), 100, 100, "ref_42")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, users.get(100).IsReferred)
	assert.Equal(t, 1, users.get(42).ReferralCount)
}

func TestRegisterLegacyReferralArg(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAccess(users, &fakeVerifier{})

	created, err := svc.Register(context.Background(), 100, 100, "_tgr_promo")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, users.get(100).IsReferred)
}

func TestRegisterUnknownReferrerIsIgnored(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAccess(users, &fakeVerifier{})

	_, err := svc.Register(context.Background(), 100, 100, "ref_9999")
	require.NoError(t, err)
	assert.True(t, users.get(100).IsReferred)
}

func TestEvaluateIssuesBaseToken(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true})
	svc := newAccess(users, &fakeVerifier{})

	grant, err := svc.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, grant.Renewed)
	assert.Equal(t, baseTTL, grant.TTL)
	assert.Equal(t, t0.Add(baseTTL), grant.Expiry)

	u := users.get(1)
	require.NotNil(t, u.TokenExpiry)
	assert.Equal(t, t0.Add(baseTTL), *u.TokenExpiry)
}

func TestEvaluateReferralDurationStrictlyLonger(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true, IsReferred: true})
	svc := newAccess(users, &fakeVerifier{})

	grant, err := svc.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, grant.Renewed)
	assert.Equal(t, referralTTL, grant.TTL)
	assert.True(t, grant.Expiry.After(t0.Add(baseTTL)),
		"referred expiry must be strictly later than the base grant would give")
}

func TestEvaluateActiveTokenIsNotMutated(t *testing.T) {
	users := newFakeUserRepo()
	expiry := t0.Add(time.Hour)
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true, TokenExpiry: &expiry})
	svc := newAccess(users, &fakeVerifier{})

	grant, err := svc.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, grant.Renewed)
	assert.Equal(t, expiry, grant.Expiry)
	assert.Zero(t, users.setExpiryCalls)
}

func TestEvaluateExpiredTokenIsRenewed(t *testing.T) {
	users := newFakeUserRepo()
	expiry := t0.Add(-time.Minute)
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true, TokenExpiry: &expiry})
	svc := newAccess(users, &fakeVerifier{})

	grant, err := svc.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, grant.Renewed)
	assert.Equal(t, t0.Add(baseTTL), grant.Expiry)
}

func TestEvaluateRejections(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAccess(users, &fakeVerifier{})
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)

	users.put(domain.User{UserID: 1, ChatID: 1})
	_, err = svc.Evaluate(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrMembershipPending)
}

func TestConfirmMembershipPositive(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1})
	svc := newAccess(users, &fakeVerifier{status: Member})

	ok, err := svc.ConfirmMembership(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, users.get(1).IsMember)
}

func TestConfirmMembershipNegative(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1})
	svc := newAccess(users, &fakeVerifier{status: NotMember})

	ok, err := svc.ConfirmMembership(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, users.get(1).IsMember)
}

func TestConfirmMembershipProbeFailure(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1})
	svc := newAccess(users, &fakeVerifier{err: errors.New("api timeout")})

	ok, err := svc.ConfirmMembership(context.Background(), 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrVerifyUnavailable)
	assert.False(t, users.get(1).IsMember, "a failed probe must not mutate the record")
}

func TestConfirmMembershipAlreadyMemberSkipsProbe(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true})
	verifier := &fakeVerifier{status: NotMember}
	svc := newAccess(users, verifier)

	ok, err := svc.ConfirmMembership(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, verifier.probeCount(), "membership is one-way; re-verification only upgrades")
}

func TestConfirmMembershipUnregistered(t *testing.T) {
	svc := newAccess(newFakeUserRepo(), &fakeVerifier{status: Member})

	_, err := svc.ConfirmMembership(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
}
