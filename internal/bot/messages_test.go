package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gatebot/internal/service"
)

func TestGrantMessageRenewed(t *testing.T) {
	expiry := time.Date(2025, 3, 14, 15, 4, 0, 0, time.UTC)
	msg := grantMessage(&service.Grant{Expiry: expiry, Renewed: true}, "")

	assert.Contains(t, msg, "Access granted")
	assert.Contains(t, msg, "14/03/2025 03:04 PM")
	assert.NotContains(t, msg, "referral")
}

func TestGrantMessageReferredMentionsExtension(t *testing.T) {
	expiry := time.Date(2025, 3, 14, 23, 4, 0, 0, time.UTC)
	msg := grantMessage(&service.Grant{Expiry: expiry, Renewed: true, Referred: true}, "")

	assert.Contains(t, msg, "11:04 PM")
	assert.Contains(t, msg, "referral")
}

func TestGrantMessageIncludesReferralLink(t *testing.T) {
	expiry := time.Date(2025, 3, 14, 15, 4, 0, 0, time.UTC)
	link := "https://t.me/gatebot?start=ref_42"
	msg := grantMessage(&service.Grant{Expiry: expiry, Renewed: true}, link)

	assert.Contains(t, msg, "14/03/2025 03:04 PM")
	assert.Contains(t, msg, link)
}

func TestDownloadReadyMessage(t *testing.T) {
	msg := downloadReadyMessage(&service.DownloadResult{
		ResultURL: "https://dl.example.com/fetch?src=x",
		LinkTTL:   24 * time.Hour,
	})

	assert.Contains(t, msg, "https://dl.example.com/fetch?src=x")
	assert.Contains(t, msg, "24 hours")
}

func TestBroadcastReportMessage(t *testing.T) {
	msg := broadcastReportMessage(&service.BroadcastReport{
		Attempted: 5,
		Delivered: 3,
		FailedIDs: []int64{2, 4},
	})

	assert.Contains(t, msg, "Attempted: 5")
	assert.Contains(t, msg, "Delivered: 3")
	assert.Contains(t, msg, "Failed: 2")
}

func TestFormatTTL(t *testing.T) {
	assert.Equal(t, "1 hour", formatTTL(time.Hour))
	assert.Equal(t, "4 hours", formatTTL(4*time.Hour))
	assert.Equal(t, "1h30m0s", formatTTL(90*time.Minute))
}
