package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

// HandlePublishPostTask publishes a post the scheduler already claimed.
// The outcome is recorded on the post, so the task never asks for a retry.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("publish task for missing post", "post_id", payload.PostID)
		return nil
	}
	if post.Status != models.PostStatusPublishing {
		slog.Info("publish task for unclaimed post", "post_id", post.ID, "status", post.Status)
		return nil
	}

	if _, err := q.ps.PublishAndRecord(ctx, post); err != nil {
		slog.Info("queued publish finished with error", "post_id", post.ID, "error", err)
	}
	return nil
}
