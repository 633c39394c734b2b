package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	referralPrefix       = "ref_"
	legacyReferralPrefix = "_tgr_"
)

// ReferralCode returns the deterministic referral code for a user.
func ReferralCode(userID int64) string {
	return fmt.Sprintf("ref_%d", userID)
}

// ReferralLink builds the deep link another user follows to register as referred.
func ReferralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, ReferralCode(userID))
}

// IsReferralArg reports whether a /start argument is a recognized referral marker.
func IsReferralArg(arg string) bool {
	return strings.HasPrefix(arg, referralPrefix) || strings.HasPrefix(arg, legacyReferralPrefix)
}

// ReferrerID extracts the referring user's id from a "ref_<id>" argument.
// Legacy "_tgr_" codes carry no recoverable identity and return false.
func ReferrerID(arg string) (int64, bool) {
	if !strings.HasPrefix(arg, referralPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, referralPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
