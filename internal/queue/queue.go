package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

const publishTaskTimeout = 15 * time.Minute

func taskID(postID int64) string {
	return fmt.Sprintf("publish:%d", postID)
}

// Dispatch hands a claimed post to the worker pool. A post is queued at
// most once; a duplicate enqueue is not an error.
func (q *Queue) Dispatch(ctx context.Context, post *models.Post) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: post.ID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID(post.ID)),
		asynq.MaxRetry(0),
		asynq.Timeout(publishTaskTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("publish task already queued", "post_id", post.ID)
		return nil
	}
	if err != nil {
		slog.Error("enqueue publish task", "post_id", post.ID, "error", err)
		return err
	}

	slog.Info("publish task queued", "post_id", post.ID, "user_id", post.UserID, "account", post.Account)
	return nil
}
