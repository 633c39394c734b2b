package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		user *User
		want AccessState
	}{
		{"nil user", nil, StateUnregistered},
		{"not a member", &User{UserID: 1}, StatePendingMembership},
		{"member without token", &User{UserID: 1, IsMember: true}, StateTokenExpired},
		{"member with future token", &User{UserID: 1, IsMember: true, TokenExpiry: &future}, StateTokenActive},
		{"member with past token", &User{UserID: 1, IsMember: true, TokenExpiry: &past}, StateTokenExpired},
		{"expiry exactly now is expired", &User{UserID: 1, IsMember: true, TokenExpiry: &now}, StateTokenExpired},
		{"token without membership stays pending", &User{UserID: 1, TokenExpiry: &future}, StatePendingMembership},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.user, now))
		})
	}
}

func TestClassifyBoundary(t *testing.T) {
	issued := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	expiry := issued.Add(4 * time.Hour)
	u := &User{UserID: 7, IsMember: true, TokenExpiry: &expiry}

	assert.Equal(t, StateTokenActive, Classify(u, issued))
	assert.Equal(t, StateTokenActive, Classify(u, expiry.Add(-time.Nanosecond)))
	assert.Equal(t, StateTokenExpired, Classify(u, expiry))
	assert.Equal(t, StateTokenExpired, Classify(u, expiry.Add(time.Nanosecond)))
}
