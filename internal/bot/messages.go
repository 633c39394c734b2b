package bot

import (
	"fmt"
	"time"

	"gatebot/internal/service"
)

const expiryTimeLayout = "02/01/2006 03:04 PM"

const (
	msgJoinPrompt = "👋 Welcome!\n\nTo use this bot you need to join our channel first. Tap the button below, join, then press «✅ I joined»."

	msgMembershipMissing = "❌ You haven't joined the channel yet. Join it and press «✅ I joined» again."

	msgNotRegistered = "Please send /start first."

	msgVerifyUnavailable = "⚠️ Could not check your membership right now. Please try again in a moment."

	msgTokenExpired = "⏰ Your access has expired. Send /check to get a new access token."

	msgDownloadUsage = "Send me a link to download."

	msgDownloadFailed = "❌ Could not process that link. Make sure it is a valid http(s) URL."

	msgBroadcastUsage = "Send the message you want to broadcast, or /cancel to abort."

	msgBroadcastCancelled = "Broadcast cancelled."

	msgUnauthorized = "This command is not available."
)

func grantMessage(grant *service.Grant, referralLink string) string {
	header := "✅ Access granted!"
	if !grant.Renewed {
		header = "✅ Your access is active."
	}
	body := fmt.Sprintf("%s\n\n🕓 Valid until: %s", header, grant.Expiry.In(time.UTC).Format(expiryTimeLayout))
	if grant.Referred {
		body += "\n🎁 Extended duration applied for joining via a referral link."
	}
	if referralLink != "" {
		body += fmt.Sprintf("\n\n🔗 Share your personal link to give friends access and earn extended tokens:\n%s", referralLink)
	}
	return body
}

func downloadReadyMessage(res *service.DownloadResult) string {
	return fmt.Sprintf(
		"📥 Your download is ready:\n%s\n\n⏳ Link valid for %s.",
		res.ResultURL,
		formatTTL(res.LinkTTL),
	)
}

func broadcastReportMessage(rep *service.BroadcastReport) string {
	return fmt.Sprintf(
		"📣 Broadcast finished.\nAttempted: %d\nDelivered: %d\nFailed: %d",
		rep.Attempted, rep.Delivered, len(rep.FailedIDs),
	)
}

func statsMessage(users, downloads int64) string {
	return fmt.Sprintf("📊 Stats\nUsers: %d\nDownloads: %d", users, downloads)
}

func formatTTL(d time.Duration) string {
	if h := d / time.Hour; h >= 1 && d%time.Hour == 0 {
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
