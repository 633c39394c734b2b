package domain

import "time"

// AccessState is the derived access state of a user. It is never stored;
// every evaluation re-derives it from the record and the current time.
type AccessState string

const (
	// StateUnregistered means no record exists for the identity.
	StateUnregistered AccessState = "unregistered"
	// StatePendingMembership means the record exists but channel membership is unconfirmed.
	StatePendingMembership AccessState = "pending_membership"
	// StateTokenActive means membership is confirmed and the token window is open.
	StateTokenActive AccessState = "token_active"
	// StateTokenExpired means membership is confirmed but no valid token exists.
	StateTokenExpired AccessState = "token_expired"
)

// Classify derives the access state of u at the given instant.
// A nil user means unregistered. The expiry timestamp itself is not valid:
// a token expiring exactly at now is already expired.
func Classify(u *User, now time.Time) AccessState {
	switch {
	case u == nil:
		return StateUnregistered
	case !u.IsMember:
		return StatePendingMembership
	case u.TokenExpiry != nil && u.TokenExpiry.After(now):
		return StateTokenActive
	default:
		return StateTokenExpired
	}
}
