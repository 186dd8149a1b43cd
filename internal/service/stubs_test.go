package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository/repotest"
	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
	"github.com/maheshrc27/tiktok-scheduler/pkg/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testSecret = "test-secret"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		SecretKey: testSecret,
		Tiktok: config.Tiktok{
			ClientKey:   "ck",
			RedirectURI: "http://localhost:5000/auth/tiktok/callback",
			AuthURL:     "https://www.tiktok.com/v2/auth/authorize/",
		},
		Storage: config.Storage{
			Type:      StorageLocal,
			UploadDir: filepath.Join(dir, "videos"),
			TempDir:   filepath.Join(dir, "temp"),
		},
		Scheduler: config.Scheduler{
			Window:        60 * time.Second,
			RefreshMargin: 5 * time.Minute,
		},
	}
}

// stubTiktok scripts gateway responses and counts calls.
type stubTiktok struct {
	mu sync.Mutex

	initErr     error
	uploadErr   error
	publishErrs []error
	refreshErr  error
	refreshWait time.Duration
	keepRefresh bool

	refreshCalls   int
	initCalls      int
	publishCalls   int
	publishTokens  []string
	uploadedPaths  []string
	refreshedCount int
}

func (s *stubTiktok) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return tokenFromResponse(transfer.TiktokTokenResponse{
		AccessToken:  "act.from-code",
		RefreshToken: "rft.from-code",
		ExpiresIn:    86400,
	}, time.Now()), nil
}

func (s *stubTiktok) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if s.refreshWait > 0 {
		time.Sleep(s.refreshWait)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	s.refreshedCount++
	resp := transfer.TiktokTokenResponse{
		AccessToken:  "act.refreshed",
		RefreshToken: "rft.refreshed",
		ExpiresIn:    86400,
	}
	if s.keepRefresh {
		resp.RefreshToken = ""
	}
	return tokenFromResponse(resp, time.Now()), nil
}

func (s *stubTiktok) InitUpload(ctx context.Context, accessToken, title string, videoSize int64) (*UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	if s.initErr != nil {
		return nil, s.initErr
	}
	return &UploadSession{PublishID: "session-1", UploadURL: "https://upload.example/1"}, nil
}

func (s *stubTiktok) UploadBytes(ctx context.Context, uploadURL, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadedPaths = append(s.uploadedPaths, filePath)
	return s.uploadErr
}

func (s *stubTiktok) FetchStatus(ctx context.Context, accessToken, publishID string) (*transfer.StatusFetchData, error) {
	return &transfer.StatusFetchData{Status: "PROCESSING_UPLOAD"}, nil
}

func (s *stubTiktok) Publish(ctx context.Context, accessToken, sessionID, caption, title string) (*PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishCalls++
	s.publishTokens = append(s.publishTokens, accessToken)
	if len(s.publishErrs) > 0 {
		err := s.publishErrs[0]
		s.publishErrs = s.publishErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &PublishResult{PublishID: "pub-" + sessionID}, nil
}

func seal(t *testing.T, plain string) string {
	t.Helper()
	out, err := utils.Encrypt([]byte(plain), utils.DeriveKey(testSecret))
	require.NoError(t, err)
	return out
}

func unseal(t *testing.T, sealed string) string {
	t.Helper()
	out, err := utils.Decrypt(sealed, utils.DeriveKey(testSecret))
	require.NoError(t, err)
	return out
}

func seedConnection(t *testing.T, repo *repotest.Connections, userID int64, account, access, refresh string, expires, refreshExpires *time.Time) {
	t.Helper()
	c := &models.PlatformConnection{
		UserID:           userID,
		Platform:         models.PlatformTiktok,
		AccountName:      account,
		AccessToken:      seal(t, access),
		TokenExpiresAt:   expires,
		RefreshExpiresAt: refreshExpires,
	}
	if refresh != "" {
		c.RefreshToken = seal(t, refresh)
	}
	_, err := repo.Upsert(context.Background(), c)
	require.NoError(t, err)
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, mp4Header(), 0o644))
	return path
}

// mp4Header is the start of an ISO base media file, enough for sniffing.
func mp4Header() []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}, make([]byte, 512)...)
}

func at(t time.Time) *time.Time {
	return &t
}
