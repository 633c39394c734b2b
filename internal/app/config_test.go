package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
telegram:
  token: "123456:test-token"
  admin_id: 777
  run_mode: longpoll
database:
  host: localhost
  port: "5432"
  user: gatebot
  name: gatebot
access:
  channel: botupdateshere
  resolver_url: "https://gw.example.com/fetch"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "@botupdateshere", cfg.Access.Channel, "channel is normalized to @-prefixed form")
	assert.Equal(t, 4, cfg.Access.TokenTTLHours)
	assert.Equal(t, 8, cfg.Access.ReferralTTLHours)
	assert.Equal(t, 24, cfg.Access.DownloadLinkTTLHours)
	assert.Equal(t, 8, cfg.Access.BroadcastConcurrency)
	assert.Equal(t, 5, cfg.Access.BroadcastSendTimeoutSeconds)
	assert.Greater(t, cfg.Access.ReferralTTL(), cfg.Access.TokenTTL())
	assert.NotNil(t, cfg.CoreConfig())
	assert.Equal(t, int64(777), cfg.CoreConfig().Telegram.AdminID)
}

func TestNormalizeRejectsShortReferralTTL(t *testing.T) {
	body := validYAML + `
  token_ttl_hours: 8
  referral_ttl_hours: 8
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referral_ttl_hours")
}

func TestNormalizeRequiresChannel(t *testing.T) {
	body := `
telegram:
  token: "123456:test-token"
  admin_id: 777
access:
  resolver_url: "https://gw.example.com/fetch"
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access.channel")
}

func TestNormalizeRequiresAdminID(t *testing.T) {
	body := `
telegram:
  token: "123456:test-token"
access:
  channel: "@c"
  resolver_url: "https://gw.example.com/fetch"
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_id")
}
