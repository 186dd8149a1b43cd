package job

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository/repotest"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
	"github.com/maheshrc27/tiktok-scheduler/pkg/utils"
	"github.com/stretchr/testify/require"
)

const testSecret = "job-test-secret"

// tiktokServer stands in for the TikTok API, the upload host and a remote
// media host.
type tiktokServer struct {
	*httptest.Server

	mu           sync.Mutex
	validToken   string
	uploadStatus int
	refreshes    int
}

func newTiktokServer(t *testing.T, validToken string) *tiktokServer {
	t.Helper()
	s := &tiktokServer{validToken: validToken, uploadStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.refreshes++
		s.validToken = "act.new"
		s.mu.Unlock()
		writeJSON(w, map[string]any{
			"access_token":  "act.new",
			"refresh_token": "rft.new",
			"expires_in":    86400,
			"token_type":    "Bearer",
		})
	})
	mux.HandleFunc("/post/publish/video/init/", s.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"data":  map[string]string{"publish_id": "v_inbox_file~1", "upload_url": s.URL + "/upload/1"},
			"error": map[string]string{"code": "ok"},
		})
	}))
	mux.HandleFunc("/post/publish/status/fetch/", s.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]string{"status": "PROCESSING_UPLOAD"}})
	}))
	mux.HandleFunc("/post/publish/", s.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]string{"publish_id": "p_pub~1"}})
	}))
	mux.HandleFunc("/upload/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.uploadStatus
		s.mu.Unlock()
		w.WriteHeader(status)
	})
	mux.HandleFunc("/media/video.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(mp4Header())
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *tiktokServer) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.validToken
		s.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

type fixture struct {
	cfg     config.Config
	srv     *tiktokServer
	posts   *repotest.Posts
	conns   *repotest.Connections
	history *repotest.History
	tokens  service.TokenService
	ps      service.PublishService
	job     *PublishJob
}

func newFixture(t *testing.T, validToken string) *fixture {
	t.Helper()
	srv := newTiktokServer(t, validToken)
	dir := t.TempDir()

	cfg := config.Config{
		SecretKey: testSecret,
		Tiktok: config.Tiktok{
			APIBaseURL:    srv.URL,
			Timeout:       5 * time.Second,
			UploadTimeout: 5 * time.Second,
		},
		Storage: config.Storage{
			Type:      service.StorageLocal,
			UploadDir: filepath.Join(dir, "videos"),
			TempDir:   filepath.Join(dir, "temp"),
		},
		Scheduler: config.Scheduler{
			Window:        60 * time.Second,
			StaleAfter:    15 * time.Minute,
			RefreshMargin: 5 * time.Minute,
			RefreshAhead:  30 * time.Minute,
		},
	}

	f := &fixture{
		cfg:     cfg,
		srv:     srv,
		posts:   repotest.NewPosts(),
		conns:   repotest.NewConnections(),
		history: &repotest.History{},
	}
	tc := service.NewTiktokClient(cfg.Tiktok)
	f.tokens = service.NewTokenService(cfg, f.conns, tc, service.NewLocalLocker())
	st := service.NewStorageService(cfg.Storage, nil, nil)
	f.ps = service.NewPublishService(f.posts, f.history, f.tokens, tc, st)
	f.job = NewPublishJob(cfg.Scheduler, f.posts, NewInlineDispatcher(f.ps))
	return f
}

func (f *fixture) connect(t *testing.T, userID int64, access, refresh string, expires time.Time) *models.PlatformConnection {
	t.Helper()
	c := &models.PlatformConnection{
		UserID:         userID,
		Platform:       models.PlatformTiktok,
		AccountName:    models.DefaultAccount,
		AccessToken:    seal(t, access),
		TokenExpiresAt: &expires,
	}
	if refresh != "" {
		c.RefreshToken = seal(t, refresh)
	}
	_, err := f.conns.Upsert(context.Background(), c)
	require.NoError(t, err)
	stored, err := f.conns.Get(context.Background(), userID, models.PlatformTiktok, models.DefaultAccount)
	require.NoError(t, err)
	return stored
}

func (f *fixture) localVideo(t *testing.T) models.MediaRef {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.cfg.Storage.UploadDir, 0o755))
	path := filepath.Join(f.cfg.Storage.UploadDir, "video-test.mp4")
	require.NoError(t, os.WriteFile(path, mp4Header(), 0o644))
	return models.LocalMedia(path)
}

func (f *fixture) schedule(userID int64, when time.Time, media models.MediaRef) *models.Post {
	return f.posts.Put(&models.Post{
		UserID:            userID,
		Platform:          models.PlatformTiktok,
		Title:             "clip",
		Caption:           "caption #fyp",
		ScheduledDatetime: &when,
		Status:            models.PostStatusScheduled,
		Account:           models.DefaultAccount,
		Media:             media,
	})
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

func mp4Header() []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}, make([]byte, 512)...)
}
