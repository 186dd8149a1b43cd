package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository"
	"github.com/maheshrc27/tiktok-scheduler/pkg/utils"
	"golang.org/x/oauth2"
)

const refreshLockTTL = 90 * time.Second

// Locker serialises work on a key across goroutines or processes.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() Locker {
	return &localLocker{slots: make(map[string]chan struct{})}
}

func (l *localLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type TokenService interface {
	GetValidAccessToken(ctx context.Context, userID int64, account string) (string, error)
	RefreshToken(ctx context.Context, userID int64, account string) (string, error)
	SaveConnection(ctx context.Context, userID int64, account string, tok *oauth2.Token) error
	Status(ctx context.Context, userID int64, account string) (models.ConnectionStatus, error)
	Accounts(ctx context.Context, userID int64) ([]models.ConnectionStatus, error)
	Disconnect(ctx context.Context, userID int64, account string) (bool, error)
}

type tokenService struct {
	cr     repository.ConnectionRepository
	tc     TiktokClient
	lk     Locker
	key    []byte
	margin time.Duration
	now    func() time.Time
}

func NewTokenService(cfg config.Config, cr repository.ConnectionRepository, tc TiktokClient, lk Locker) TokenService {
	return &tokenService{
		cr:     cr,
		tc:     tc,
		lk:     lk,
		key:    utils.DeriveKey(cfg.SecretKey),
		margin: cfg.Scheduler.RefreshMargin,
		now:    time.Now,
	}
}

// GetValidAccessToken returns a usable access token, refreshing it first
// when it expires within the refresh margin. A missing expiry is treated
// as non-expiring.
func (s *tokenService) GetValidAccessToken(ctx context.Context, userID int64, account string) (string, error) {
	conn, err := s.cr.Get(ctx, userID, models.PlatformTiktok, account)
	if err != nil {
		return "", err
	}
	if conn == nil || conn.AccessToken == "" {
		return "", ErrNotConnected
	}

	if s.expiresSoon(conn) {
		slog.Info("access token expiring, refreshing", "user_id", userID, "account", account)
		return s.refresh(ctx, userID, account, false)
	}
	return utils.Decrypt(conn.AccessToken, s.key)
}

// RefreshToken exchanges the stored refresh token for a new pair even if
// the current access token still looks valid.
func (s *tokenService) RefreshToken(ctx context.Context, userID int64, account string) (string, error) {
	return s.refresh(ctx, userID, account, true)
}

func (s *tokenService) expiresSoon(conn *models.PlatformConnection) bool {
	return conn.TokenExpiresAt != nil && conn.TokenExpiresAt.Before(s.now().Add(s.margin))
}

func (s *tokenService) refresh(ctx context.Context, userID int64, account string, force bool) (string, error) {
	unlock, err := s.lk.Lock(ctx, lockKey(userID, account), refreshLockTTL)
	if err != nil {
		return "", fmt.Errorf("acquire refresh lock: %w", err)
	}
	defer unlock()

	conn, err := s.cr.Get(ctx, userID, models.PlatformTiktok, account)
	if err != nil {
		return "", err
	}
	if conn == nil || conn.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	now := s.now()
	if conn.RefreshExpiresAt != nil && conn.RefreshExpiresAt.Before(now) {
		return "", ErrRefreshTokenExpired
	}

	// Someone refreshed while we waited for the lock.
	if !force && conn.AccessToken != "" && !s.expiresSoon(conn) {
		return utils.Decrypt(conn.AccessToken, s.key)
	}

	oldRefresh, err := utils.Decrypt(conn.RefreshToken, s.key)
	if err != nil {
		return "", err
	}

	tok, err := s.tc.RefreshToken(ctx, oldRefresh)
	if err != nil {
		slog.Error("token refresh failed", "user_id", userID, "account", account, "error", err)
		return "", err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = oldRefresh
	}

	updated, err := s.sealed(tok, now)
	if err != nil {
		return "", err
	}
	// A reused refresh token keeps its known expiry.
	if tok.RefreshToken == oldRefresh && updated.RefreshExpiresAt == nil {
		updated.RefreshExpiresAt = conn.RefreshExpiresAt
	}

	swapped, err := s.cr.SwapTokens(ctx, conn.ID, conn.RefreshToken, updated)
	if err != nil {
		return "", err
	}
	if !swapped {
		slog.Info("token pair rotated concurrently, using stored token", "user_id", userID, "account", account)
		winner, err := s.cr.Get(ctx, userID, models.PlatformTiktok, account)
		if err != nil {
			return "", err
		}
		if winner == nil || winner.AccessToken == "" {
			return "", ErrNotConnected
		}
		return utils.Decrypt(winner.AccessToken, s.key)
	}

	slog.Info("access token refreshed", "user_id", userID, "account", account, "expires_at", updated.TokenExpiresAt)
	return tok.AccessToken, nil
}

func (s *tokenService) SaveConnection(ctx context.Context, userID int64, account string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrTokenExchange)
	}
	c, err := s.sealed(tok, s.now())
	if err != nil {
		return err
	}
	c.UserID = userID
	c.Platform = models.PlatformTiktok
	c.AccountName = account

	if _, err := s.cr.Upsert(ctx, c); err != nil {
		return err
	}
	slog.Info("tiktok account connected", "user_id", userID, "account", account)
	return nil
}

// sealed encrypts a fresh token pair into a connection row.
func (s *tokenService) sealed(tok *oauth2.Token, now time.Time) (*models.PlatformConnection, error) {
	access, err := utils.Encrypt([]byte(tok.AccessToken), s.key)
	if err != nil {
		return nil, err
	}
	var refresh string
	if tok.RefreshToken != "" {
		refresh, err = utils.Encrypt([]byte(tok.RefreshToken), s.key)
		if err != nil {
			return nil, err
		}
	}

	c := &models.PlatformConnection{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: RefreshExpiry(tok, now),
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		c.TokenExpiresAt = &expiry
	}
	return c, nil
}

func (s *tokenService) Status(ctx context.Context, userID int64, account string) (models.ConnectionStatus, error) {
	conn, err := s.cr.Get(ctx, userID, models.PlatformTiktok, account)
	if err != nil {
		return models.ConnectionStatus{}, err
	}
	return conn.Status(s.now()), nil
}

// Accounts reports every TikTok account the user has connected.
func (s *tokenService) Accounts(ctx context.Context, userID int64) ([]models.ConnectionStatus, error) {
	conns, err := s.cr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	accounts := []models.ConnectionStatus{}
	for _, c := range conns {
		if c.Platform != models.PlatformTiktok {
			continue
		}
		accounts = append(accounts, c.Status(now))
	}
	return accounts, nil
}

func (s *tokenService) Disconnect(ctx context.Context, userID int64, account string) (bool, error) {
	removed, err := s.cr.Remove(ctx, userID, models.PlatformTiktok, account)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("tiktok account disconnected", "user_id", userID, "account", account)
	}
	return removed, nil
}

func lockKey(userID int64, account string) string {
	return fmt.Sprintf("lock:token:%s:%d:%s", models.PlatformTiktok, userID, account)
}
