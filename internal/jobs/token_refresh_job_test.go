package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type countingTokens struct {
	mu    sync.Mutex
	calls []int64
	fail  map[int64]bool
}

func (c *countingTokens) GetValidAccessToken(ctx context.Context, userID int64, account string) (string, error) {
	return "", errors.New("not used")
}

func (c *countingTokens) RefreshToken(ctx context.Context, userID int64, account string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, userID)
	if c.fail[userID] {
		return "", errors.New("invalid_grant")
	}
	return "act.new", nil
}

func (c *countingTokens) SaveConnection(ctx context.Context, userID int64, account string, tok *oauth2.Token) error {
	return nil
}

func (c *countingTokens) Status(ctx context.Context, userID int64, account string) (models.ConnectionStatus, error) {
	return models.ConnectionStatus{}, nil
}

func (c *countingTokens) Accounts(ctx context.Context, userID int64) ([]models.ConnectionStatus, error) {
	return nil, nil
}

func (c *countingTokens) Disconnect(ctx context.Context, userID int64, account string) (bool, error) {
	return false, nil
}

func TestRefreshTokens_OnlyExpiringConnections(t *testing.T) {
	conns := repotest.NewConnections()
	now := time.Now()
	add := func(userID int64, expires time.Time, refresh string) {
		_, err := conns.Upsert(context.Background(), &models.PlatformConnection{
			UserID:         userID,
			Platform:       models.PlatformTiktok,
			AccountName:    models.DefaultAccount,
			AccessToken:    "a",
			RefreshToken:   refresh,
			TokenExpiresAt: &expires,
		})
		require.NoError(t, err)
	}
	add(1, now.Add(10*time.Minute), "r")
	add(2, now.Add(2*time.Hour), "r")
	add(3, now.Add(-time.Minute), "r")
	add(4, now.Add(5*time.Minute), "")

	tokens := &countingTokens{fail: map[int64]bool{3: true}}
	j := &TokenRefreshJob{cr: conns, ts: tokens, ahead: 30 * time.Minute, now: func() time.Time { return now }}

	refreshed := j.RefreshTokens(context.Background())

	assert.Equal(t, 1, refreshed)
	assert.ElementsMatch(t, []int64{1, 3}, tokens.calls)
}

func TestRefreshTokens_RealTokenService(t *testing.T) {
	f := newFixture(t, "act.new")
	f.connect(t, 7, "act.old", "rft.old", time.Now().Add(10*time.Minute))

	tc := NewTokenRefreshJob(f.cfg.Scheduler, f.conns, f.tokens)
	assert.Equal(t, 1, tc.RefreshTokens(context.Background()))

	conn, err := f.conns.Get(context.Background(), 7, models.PlatformTiktok, models.DefaultAccount)
	require.NoError(t, err)
	assert.Equal(t, "act.new", unseal(t, conn.AccessToken))
	assert.Equal(t, "rft.new", unseal(t, conn.RefreshToken))
}
