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
)

type TickResult struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Due         int
	Claimed     int
	Dispatched  int
	Missed      int64
	Stale       int64
}

type PublishJob struct {
	pr         repository.PostRepository
	d          Dispatcher
	window     time.Duration
	staleAfter time.Duration
	now        func() time.Time

	running  atomic.Bool
	mu       sync.Mutex
	lastEnd  time.Time
	lastScan time.Time
}

func NewPublishJob(cfg config.Scheduler, pr repository.PostRepository, d Dispatcher) *PublishJob {
	return &PublishJob{
		pr:         pr,
		d:          d,
		window:     cfg.Window,
		staleAfter: cfg.StaleAfter,
		now:        time.Now,
	}
}

// Run is the cron entry point. A tick that is still running causes the
// next one to be skipped.
func (j *PublishJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		slog.Warn("previous publish tick still running, skipping")
		return
	}
	defer j.running.Store(false)

	res := j.Tick(context.Background())
	slog.Info("publish tick done",
		"window_start", res.WindowStart,
		"window_end", res.WindowEnd,
		"due", res.Due,
		"claimed", res.Claimed,
		"dispatched", res.Dispatched,
		"missed", res.Missed,
		"stale", res.Stale,
	)
}

// Tick scans (start, end] for due posts, claims each one and hands it to
// the dispatcher. The window normally spans now±window; when the previous
// window ended before now-window, it starts there so nothing is skipped.
// Posts at or before start that were written since the previous scan are
// picked up as well rather than failed as missed.
func (j *PublishJob) Tick(ctx context.Context) TickResult {
	now := j.now().UTC()
	start, end, since := j.bounds(now)
	res := TickResult{WindowStart: start, WindowEnd: end}

	missed, err := j.pr.FailMissed(ctx, start, since)
	if err != nil {
		slog.Error("fail missed posts", "error", err)
	}
	res.Missed = missed
	if missed > 0 {
		slog.Warn("missed scheduled posts marked failed", "count", missed, "before", start)
	}

	if j.staleAfter > 0 {
		stale, err := j.pr.FailStale(ctx, now.Add(-j.staleAfter))
		if err != nil {
			slog.Error("fail stale posts", "error", err)
		}
		res.Stale = stale
		if stale > 0 {
			slog.Warn("stale publishing posts marked failed", "count", stale)
		}
	}

	posts, err := j.pr.FindDue(ctx, start, end, since)
	if err != nil {
		slog.Error("find due posts", "error", err)
		return res
	}
	j.mu.Lock()
	j.lastEnd = end
	j.lastScan = now
	j.mu.Unlock()

	res.Due = len(posts)
	for _, post := range posts {
		log := slog.With("post_id", post.ID, "user_id", post.UserID, "account", post.Account)

		claimed, err := j.pr.Claim(ctx, post.ID, models.PostStatusScheduled)
		if err != nil {
			log.Error("claim post", "error", err)
			continue
		}
		if !claimed {
			log.Info("post already claimed, skipping")
			continue
		}
		res.Claimed++
		post.Status = models.PostStatusPublishing

		if err := j.d.Dispatch(ctx, post); err != nil {
			log.Error("dispatch post", "error", err)
			if _, err := j.pr.MarkFailed(context.WithoutCancel(ctx), post.ID); err != nil {
				log.Error("mark post failed", "error", err)
			}
			continue
		}
		res.Dispatched++
	}
	return res
}

// bounds returns the scan window and the instant after which a write
// counts as new to this scan. Before the first successful scan that
// instant is the window start.
func (j *PublishJob) bounds(now time.Time) (start, end, since time.Time) {
	start = now.Add(-j.window)
	end = now.Add(j.window)

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.lastEnd.IsZero() && j.lastEnd.Before(start) {
		start = j.lastEnd
	}
	since = start
	if !j.lastScan.IsZero() {
		since = j.lastScan
	}
	return start, end, since
}
