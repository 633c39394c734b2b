package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayJoinLink(t *testing.T) {
	assert.Equal(t, "https://t.me/botupdateshere", NewGateway("@botupdateshere").JoinLink())
	assert.Equal(t, "https://t.me/botupdateshere", NewGateway("botupdateshere").JoinLink())
}

func TestGatewayUnboundReportsError(t *testing.T) {
	gw := NewGateway("@botupdateshere")

	_, err := gw.Verify(context.Background(), 42)
	require.Error(t, err)

	err = gw.Send(context.Background(), 42, "hi")
	require.Error(t, err)

	assert.Empty(t, gw.BotUsername())
}
