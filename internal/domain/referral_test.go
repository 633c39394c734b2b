package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReferralArg(t *testing.T) {
	assert.True(t, IsReferralArg("ref_12345"))
	assert.True(t, IsReferralArg("_tgr_abc"))
	assert.False(t, IsReferralArg(""))
	assert.False(t, IsReferralArg("hello"))
	assert.False(t, IsReferralArg("tgr_abc"))
}

func TestReferrerID(t *testing.T) {
	id, ok := ReferrerID("ref_42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ReferrerID("_tgr_42")
	assert.False(t, ok, "legacy codes carry no identity")

	_, ok = ReferrerID("ref_notanumber")
	assert.False(t, ok)

	_, ok = ReferrerID("ref_-5")
	assert.False(t, ok)
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t, "https://t.me/gatebot?start=ref_42", ReferralLink("gatebot", 42))
	assert.Equal(t, "ref_42", ReferralCode(42))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "NOT_REGISTERED", ErrNotRegistered.Code())
	assert.Equal(t, "TOKEN_EXPIRED", ErrTokenExpired.Code())
	assert.NotEqual(t, ErrVerifyUnavailable.Code(), ErrMembershipPending.Code(),
		"a probe failure must be distinguishable from a negative determination")
}
