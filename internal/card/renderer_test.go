package card

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/innercirclehq/innercircle/internal/members"
)

type failingPhotos struct{}

func (failingPhotos) FetchLatestProfilePhoto(context.Context, int64) ([]byte, error) {
	return nil, errors.New("network down")
}

func testMember(name string) *members.Member {
	m := &members.Member{
		TelegramID:       100,
		IsFoundingMember: true,
		InvitesRemaining: 2,
		JoinedAt:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	if name != "" {
		m.TelegramName = &name
	}
	return m
}

func TestRender_ProducesPNGOfFixedSize(t *testing.T) {
	r := NewRenderer(t.TempDir(), failingPhotos{}, rand.New(rand.NewSource(1)))

	raw, err := r.Render(context.Background(), testMember("Grace Hopper"), "")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, Width, img.Bounds().Dx())
	require.Equal(t, Height, img.Bounds().Dy())
}

func TestRender_PhotoFailureDegradesToPlaceholder(t *testing.T) {
	// A failing fetcher and a missing font dir must still produce a card.
	r := NewRenderer(t.TempDir(), failingPhotos{}, rand.New(rand.NewSource(2)))

	raw, err := r.Render(context.Background(), testMember("Jean-Baptiste Aurélien"), "Ada")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
}

func TestRender_NilPhotoFetcher(t *testing.T) {
	r := NewRenderer(t.TempDir(), nil, rand.New(rand.NewSource(3)))

	raw, err := r.Render(context.Background(), testMember(""), "")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestRender_DeterministicForPinnedSeed(t *testing.T) {
	member := testMember("Grace Hopper")

	a, err := NewRenderer(t.TempDir(), nil, rand.New(rand.NewSource(7))).Render(context.Background(), member, "")
	require.NoError(t, err)
	b, err := NewRenderer(t.TempDir(), nil, rand.New(rand.NewSource(7))).Render(context.Background(), member, "")
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestStatusLine(t *testing.T) {
	founding := testMember("Ada")
	require.Equal(t, "Founding Member", statusLine(founding, "someone"))

	invited := testMember("Grace")
	invited.IsFoundingMember = false
	require.Equal(t, "Invited by Ada", statusLine(invited, "Ada"))
	require.Equal(t, "Member", statusLine(invited, ""))
}

func TestPalettes_EveryEntryComplete(t *testing.T) {
	require.NotEmpty(t, Palettes)

	for _, p := range Palettes {
		require.NotEmpty(t, p.Background)
		require.NotEmpty(t, p.Primary)
		require.NotEmpty(t, p.Accent)
		require.NotEmpty(t, p.BottomBar)

		// Every light background pairs with dark text and vice versa.
		if p.Light {
			require.Equal(t, "#000000", p.Primary)
		} else {
			require.Equal(t, "#FFFFFF", p.Primary)
		}
	}
}
