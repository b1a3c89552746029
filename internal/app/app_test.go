package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/innercirclehq/innercircle/internal/bot"
)

func TestAPIClientTimeoutBoundsEveryCall(t *testing.T) {
	c := newAPIClient()

	// A zero timeout would let a stalled Bot API connection hang a
	// handler goroutine forever.
	require.Positive(t, c.Timeout)

	// Must sit above the long-poll window so getUpdates is not cut off.
	require.Greater(t, c.Timeout, bot.LongPollSeconds*time.Second)
}
