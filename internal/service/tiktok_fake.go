package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"
)

// fakeTiktokClient stands in for TikTok when TIKTOK_MODE=fake. It checks
// that the video exists and hands out made-up ids.
type fakeTiktokClient struct {
	mu       sync.Mutex
	sessions map[string]string
}

func NewFakeTiktokClient() TiktokClient {
	return &fakeTiktokClient{sessions: make(map[string]string)}
}

func (c *fakeTiktokClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrTokenExchange)
	}
	return c.issue()
}

func (c *fakeTiktokClient) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return c.issue()
}

func (c *fakeTiktokClient) issue() (*oauth2.Token, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	return tokenFromResponse(transfer.TiktokTokenResponse{
		AccessToken:      "fake-act." + id,
		RefreshToken:     "fake-rft." + id,
		ExpiresIn:        86400,
		RefreshExpiresIn: 31536000,
		TokenType:        "Bearer",
	}, time.Now()), nil
}

func (c *fakeTiktokClient) InitUpload(ctx context.Context, accessToken, title string, videoSize int64) (*UploadSession, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	publishID := "v_inbox_file~" + id
	uploadURL := "fake://upload/" + id

	c.mu.Lock()
	c.sessions[uploadURL] = publishID
	c.mu.Unlock()

	return &UploadSession{PublishID: publishID, UploadURL: uploadURL}, nil
}

func (c *fakeTiktokClient) UploadBytes(ctx context.Context, uploadURL, filePath string) error {
	c.mu.Lock()
	_, ok := c.sessions[uploadURL]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: unknown upload url", ErrUploadFailed)
	}
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	slog.Info("fake tiktok upload", "file", filePath)
	return nil
}

func (c *fakeTiktokClient) FetchStatus(ctx context.Context, accessToken, publishID string) (*transfer.StatusFetchData, error) {
	return &transfer.StatusFetchData{Status: "PROCESSING_UPLOAD"}, nil
}

func (c *fakeTiktokClient) Publish(ctx context.Context, accessToken, sessionID, caption, title string) (*PublishResult, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty session", ErrPublishFailed)
	}
	slog.Info("fake tiktok publish", "session", sessionID, "title", title)
	return &PublishResult{PublishID: sessionID}, nil
}
