package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
)

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// Enqueuer is the part of *asynq.Client the queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Queue struct {
	client Enqueuer
	pr     repository.PostRepository
	ps     service.PublishService
}

func NewQueue(client Enqueuer, pr repository.PostRepository, ps service.PublishService) *Queue {
	return &Queue{
		client: client,
		pr:     pr,
		ps:     ps,
	}
}

func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
}
