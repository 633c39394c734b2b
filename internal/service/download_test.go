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

const linkTTL = 24 * time.Hour

func newGate(users *fakeUserRepo, downloads *fakeDownloadRepo, r Resolver) *DownloadGate {
	return NewDownloadGate(users, downloads, r, linkTTL).WithClock(fixedClock(t0))
}

func activeUser(id int64) domain.User {
	expiry := t0.Add(time.Hour)
	return domain.User{UserID: id, ChatID: id, IsMember: true, TokenExpiry: &expiry}
}

func TestDownloadAdmitted(t *testing.T) {
	users := newFakeUserRepo()
	users.put(activeUser(1))
	downloads := &fakeDownloadRepo{}
	gate := newGate(users, downloads, fakeResolver{url: "https://dl.example.com/abc"})

	res, err := gate.Request(context.Background(), 1, "https://files.example.com/v/123")
	require.NoError(t, err)
	assert.Equal(t, "https://dl.example.com/abc", res.ResultURL)
	assert.Equal(t, t0.Add(linkTTL), res.ExpiresAt)

	require.Equal(t, 1, downloads.len())
	rec := downloads.records[0]
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, "https://files.example.com/v/123", rec.SourceURL)
	assert.Equal(t, "https://dl.example.com/abc", rec.ResultURL)
	assert.Equal(t, 1, users.get(1).DownloadCount)
}

func TestDownloadRejectsUnregistered(t *testing.T) {
	gate := newGate(newFakeUserRepo(), &fakeDownloadRepo{}, fakeResolver{url: "x"})

	_, err := gate.Request(context.Background(), 404, "https://files.example.com/v/1")
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
}

func TestDownloadRejectsNonMember(t *testing.T) {
	users := newFakeUserRepo()
	users.put(domain.User{UserID: 1, ChatID: 1})
	downloads := &fakeDownloadRepo{}
	gate := newGate(users, downloads, fakeResolver{url: "x"})

	_, err := gate.Request(context.Background(), 1, "https://files.example.com/v/1")
	assert.ErrorIs(t, err, domain.ErrMembershipPending)
	assert.Zero(t, downloads.len())
}

func TestDownloadRejectsExpiredToken(t *testing.T) {
	users := newFakeUserRepo()
	past := t0.Add(-time.Second)
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true, TokenExpiry: &past})
	downloads := &fakeDownloadRepo{}
	gate := newGate(users, downloads, fakeResolver{url: "x"})

	_, err := gate.Request(context.Background(), 1, "https://files.example.com/v/1")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.Zero(t, downloads.len())
}

func TestDownloadRejectsAtExactExpiry(t *testing.T) {
	users := newFakeUserRepo()
	exact := t0
	users.put(domain.User{UserID: 1, ChatID: 1, IsMember: true, TokenExpiry: &exact})
	downloads := &fakeDownloadRepo{}
	gate := newGate(users, downloads, fakeResolver{url: "x"})

	_, err := gate.Request(context.Background(), 1, "https://files.example.com/v/1")
	assert.ErrorIs(t, err, domain.ErrTokenExpired,
		"the expiry timestamp itself is not a valid instant")
	assert.Zero(t, downloads.len())
}

func TestDownloadResolverFailureWritesNothing(t *testing.T) {
	users := newFakeUserRepo()
	users.put(activeUser(1))
	downloads := &fakeDownloadRepo{}
	gate := newGate(users, downloads, fakeResolver{err: errors.New("backend down")})

	_, err := gate.Request(context.Background(), 1, "https://files.example.com/v/1")
	require.Error(t, err)
	assert.Zero(t, downloads.len())
	assert.Zero(t, users.get(1).DownloadCount)
}

func TestDownloadAppendFailureAborts(t *testing.T) {
	users := newFakeUserRepo()
	users.put(activeUser(1))
	downloads := &fakeDownloadRepo{appendErr: errors.New("disk full")}
	gate := newGate(users, downloads, fakeResolver{url: "https://dl.example.com/abc"})

	res, err := gate.Request(context.Background(), 1, "https://files.example.com/v/1")
	require.Error(t, err)
	assert.Nil(t, res, "no result means the caller sends no notifications")
	assert.Zero(t, users.get(1).DownloadCount)
}

func TestGatewayResolver(t *testing.T) {
	r := GatewayResolver{BaseURL: "https://gw.example.com/fetch"}

	out, err := r.Resolve(context.Background(), "https://files.example.com/v/1?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.com/fetch?src=https%3A%2F%2Ffiles.example.com%2Fv%2F1%3Fx%3D1", out)

	_, err = r.Resolve(context.Background(), "not a url")
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), "ftp://files.example.com/v/1")
	assert.Error(t, err)
}
