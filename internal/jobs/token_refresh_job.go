package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
)

const refreshConcurrency = 10

type TokenRefreshJob struct {
	cr    repository.ConnectionRepository
	ts    service.TokenService
	ahead time.Duration
	now   func() time.Time
}

func NewTokenRefreshJob(cfg config.Scheduler, cr repository.ConnectionRepository, ts service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr:    cr,
		ts:    ts,
		ahead: cfg.RefreshAhead,
		now:   time.Now,
	}
}

func (c *TokenRefreshJob) Run() {
	c.RefreshTokens(context.Background())
}

// RefreshTokens refreshes every connection whose access token expires
// within the look-ahead and returns how many succeeded.
func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) int {
	accounts, err := c.cr.ListExpiring(ctx, models.PlatformTiktok, c.now().Add(c.ahead))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var wg sync.WaitGroup
	var refreshed atomic.Int64
	semaphore := make(chan struct{}, refreshConcurrency)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.PlatformConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := c.ts.RefreshToken(ctx, acc.UserID, acc.AccountName); err != nil {
				slog.Info("unable to refresh tiktok token", "user_id", acc.UserID, "account", acc.AccountName, "error", err)
				return
			}
			refreshed.Add(1)
		}(acc)
	}
	wg.Wait()

	if len(accounts) > 0 {
		slog.Info("token refresh sweep done", "candidates", len(accounts), "refreshed", refreshed.Load())
	}
	return int(refreshed.Load())
}
