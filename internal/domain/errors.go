package domain

// Error is a stable, user-facing failure kind produced by the access core.
// The code is exposed for structured logging via the router's error derivation.
type Error struct {
	code string
	msg  string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.msg }

// Code returns the stable machine-readable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrNotRegistered means the identity is unknown to the store.
	ErrNotRegistered = &Error{code: "NOT_REGISTERED", msg: "user is not registered"}
	// ErrMembershipPending means the user has not been confirmed as a channel member.
	ErrMembershipPending = &Error{code: "MEMBERSHIP_PENDING", msg: "channel membership is not confirmed"}
	// ErrTokenExpired means the access token window elapsed or was never opened.
	ErrTokenExpired = &Error{code: "TOKEN_EXPIRED", msg: "access token is expired or absent"}
	// ErrVerifyUnavailable means the membership probe itself failed.
	// It is distinct from a negative membership determination.
	ErrVerifyUnavailable = &Error{code: "VERIFY_UNAVAILABLE", msg: "membership verification is temporarily unavailable"}
	// ErrUnauthorized means a non-administrative identity invoked an admin-only operation.
	ErrUnauthorized = &Error{code: "UNAUTHORIZED", msg: "operation requires the administrative identity"}
)
