package service

import "context"

// Membership is a definitive membership determination.
type Membership int

const (
	// NotMember means the platform reported the user is not in the gating channel.
	NotMember Membership = iota
	// Member means the platform confirmed channel membership.
	Member
)

// String returns the log-friendly name of the determination.
func (m Membership) String() string {
	if m == Member {
		return "member"
	}
	return "not_member"
}

// Verifier probes the external platform for channel membership.
// A non-nil error means the probe itself failed and the result is unknown;
// it must never be taken as a negative determination.
type Verifier interface {
	Verify(ctx context.Context, userID int64) (Membership, error)
}
