package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	tiktokScopes        = "user.info.basic,video.publish,video.upload"
	privacyPublic       = "PUBLIC_TO_EVERYONE"
	sourceFileUpload    = "FILE_UPLOAD"
	coverTimestampMs    = 1000
	refreshExpiresKey   = "refresh_expires_in"
	defaultVideoTitle   = "Untitled"
	videoContentType    = "video/mp4"
	tokenEndpoint       = "/oauth/token/"
	initEndpoint        = "/post/publish/video/init/"
	publishEndpoint     = "/post/publish/"
	statusFetchEndpoint = "/post/publish/status/fetch/"
)

type UploadSession struct {
	PublishID string
	UploadURL string
}

type PublishResult struct {
	PublishID string
}

// TiktokClient is the gateway to the TikTok content posting API.
type TiktokClient interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	InitUpload(ctx context.Context, accessToken, title string, videoSize int64) (*UploadSession, error)
	UploadBytes(ctx context.Context, uploadURL, filePath string) error
	FetchStatus(ctx context.Context, accessToken, publishID string) (*transfer.StatusFetchData, error)
	Publish(ctx context.Context, accessToken, sessionID, caption, title string) (*PublishResult, error)
}

type tiktokClient struct {
	cfg    config.Tiktok
	api    *resty.Client
	upload *resty.Client
}

func NewTiktokClient(cfg config.Tiktok) TiktokClient {
	return &tiktokClient{
		cfg: cfg,
		api: resty.New().
			SetBaseURL(cfg.APIBaseURL).
			SetTimeout(cfg.Timeout),
		upload: resty.New().
			SetTimeout(cfg.UploadTimeout),
	}
}

func (c *tiktokClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.token(ctx, map[string]string{
		"client_key":    c.cfg.ClientKey,
		"client_secret": c.cfg.ClientSecret,
		"code":          code,
		"grant_type":    "authorization_code",
		"redirect_uri":  c.cfg.RedirectURI,
	})
}

func (c *tiktokClient) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return c.token(ctx, map[string]string{
		"client_key":    c.cfg.ClientKey,
		"client_secret": c.cfg.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

func (c *tiktokClient) token(ctx context.Context, form map[string]string) (*oauth2.Token, error) {
	resp, err := c.api.R().
		SetContext(ctx).
		SetFormData(form).
		Post(tokenEndpoint)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.IsError() {
		slog.Info("tiktok token endpoint returned an error", "status", resp.StatusCode(), "body", resp.String())
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchange, resp.StatusCode())
	}

	var tr transfer.TiktokTokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if tr.AccessToken == "" {
		slog.Info("tiktok token response without access token", "body", resp.String())
		return nil, fmt.Errorf("%w: response missing access_token", ErrTokenExchange)
	}

	return tokenFromResponse(tr, time.Now()), nil
}

func tokenFromResponse(tr transfer.TiktokTokenResponse, now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]interface{}{
		refreshExpiresKey: tr.RefreshExpiresIn,
		"open_id":         tr.OpenID,
		"scope":           tr.Scope,
	})
}

// RefreshExpiry returns when the refresh token in tok stops working, or nil
// when the provider did not say.
func RefreshExpiry(tok *oauth2.Token, now time.Time) *time.Time {
	var seconds int
	switch v := tok.Extra(refreshExpiresKey).(type) {
	case int:
		seconds = v
	case float64:
		seconds = int(v)
	}
	if seconds <= 0 {
		return nil
	}
	at := now.Add(time.Duration(seconds) * time.Second)
	return &at
}

func (c *tiktokClient) InitUpload(ctx context.Context, accessToken, title string, videoSize int64) (*UploadSession, error) {
	if title == "" {
		title = defaultVideoTitle
	}
	req := transfer.VideoInitRequest{
		PostInfo: defaultPostInfo(title, ""),
		SourceInfo: transfer.VideoSourceInfo{
			Source:          sourceFileUpload,
			VideoSize:       videoSize,
			ChunkSize:       videoSize,
			TotalChunkCount: 1,
		},
	}

	var out transfer.VideoInitResponse
	if err := c.postJSON(ctx, accessToken, initEndpoint, req, &out, ErrInitFailed); err != nil {
		return nil, err
	}
	if out.Data.UploadURL == "" {
		slog.Info("tiktok init response without upload_url", "code", out.Error.Code, "message", out.Error.Message)
		return nil, fmt.Errorf("%w: response missing upload_url", ErrInitFailed)
	}
	return &UploadSession{PublishID: out.Data.PublishID, UploadURL: out.Data.UploadURL}, nil
}

func (c *tiktokClient) UploadBytes(ctx context.Context, uploadURL, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	size := info.Size()

	req := c.upload.R().
		SetContext(ctx).
		SetHeader("Content-Type", videoContentType).
		SetBody(f)
	if size > 0 {
		req.SetHeader("Content-Range", fmt.Sprintf("bytes 0-%d/%d", size-1, size))
	}

	resp, err := req.Put(uploadURL)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp.IsError() {
		slog.Info("tiktok upload rejected", "status", resp.StatusCode())
		return fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode())
	}
	return nil
}

func (c *tiktokClient) FetchStatus(ctx context.Context, accessToken, publishID string) (*transfer.StatusFetchData, error) {
	var out transfer.StatusFetchResponse
	err := c.postJSON(ctx, accessToken, statusFetchEndpoint, transfer.StatusFetchRequest{PublishID: publishID}, &out, ErrInitFailed)
	if err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Publish waits for TikTok to settle the upload and then publishes it.
func (c *tiktokClient) Publish(ctx context.Context, accessToken, sessionID, caption, title string) (*PublishResult, error) {
	if err := sleepCtx(ctx, c.cfg.SettleDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	if title == "" {
		title = defaultVideoTitle
	}
	req := transfer.VideoPublishRequest{
		PostInfo: defaultPostInfo(title, caption),
		SourceInfo: transfer.VideoSourceInfo{
			Source:  sourceFileUpload,
			VideoID: sessionID,
		},
	}

	var out transfer.VideoPublishResponse
	if err := c.postJSON(ctx, accessToken, publishEndpoint, req, &out, ErrPublishFailed); err != nil {
		return nil, err
	}
	if out.Data.PublishID == "" {
		slog.Info("tiktok publish response without publish_id", "code", out.Error.Code, "message", out.Error.Message)
		return nil, fmt.Errorf("%w: response missing publish_id", ErrPublishFailed)
	}
	return &PublishResult{PublishID: out.Data.PublishID}, nil
}

// postJSON sends an authenticated JSON request. Transport failures and
// timeouts are reported as stageErr, 401 as ErrUnauthorized.
func (c *tiktokClient) postJSON(ctx context.Context, accessToken, endpoint string, body, out any, stageErr error) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json; charset=UTF-8").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		slog.Info(err.Error(), "endpoint", endpoint)
		return fmt.Errorf("%w: %v", stageErr, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, endpoint)
	}
	if resp.IsError() {
		slog.Info("tiktok request failed", "endpoint", endpoint, "status", resp.StatusCode(), "body", resp.String())
		return fmt.Errorf("%w: status %d", stageErr, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		slog.Info(err.Error(), "endpoint", endpoint)
		return fmt.Errorf("%w: %v", stageErr, err)
	}
	return nil
}

func defaultPostInfo(title, caption string) transfer.VideoPostInfo {
	return transfer.VideoPostInfo{
		Title:                 title,
		Description:           caption,
		PrivacyLevel:          privacyPublic,
		DisableDuet:           false,
		DisableComment:        false,
		DisableStitch:         false,
		VideoCoverTimestampMs: coverTimestampMs,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
