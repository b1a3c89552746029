// Package telegram wraps the pieces of the Telegram Bot API the core
// consumes: profile photo retrieval and invite deep links.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// ErrNoPhoto is returned when the user has no profile photo set.
var ErrNoPhoto = errors.New("no profile photo")

const maxPhotoBytes = 10 * 1024 * 1024

// PhotoClient fetches the latest profile photo for a user. Failures
// are expected and cheap: callers treat every error as "no photo".
type PhotoClient struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
}

// NewPhotoClient creates a photo fetcher with a bounded timeout on the
// file download; a timeout is treated like any other fetch failure.
func NewPhotoClient(api *tgbotapi.BotAPI, timeoutMS int) *PhotoClient {
	return &PhotoClient{
		api: api,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
	}
}

// FetchLatestProfilePhoto downloads the largest size of the user's
// most recent profile photo.
func (c *PhotoClient) FetchLatestProfilePhoto(ctx context.Context, telegramID int64) ([]byte, error) {
	photos, err := c.api.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{
		UserID: telegramID,
		Offset: 0,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profile photos: %w", err)
	}
	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return nil, ErrNoPhoto
	}

	// Sizes are ordered smallest first; take the largest.
	sizes := photos.Photos[0]
	fileID := sizes[len(sizes)-1].FileID

	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve photo file: %w", err)
	}

	return c.download(ctx, file.Link(c.api.Token))
}

func (c *PhotoClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("Profile photo download timed out")
		}
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo download returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo body: %w", err)
	}
	return raw, nil
}
