package job

import (
	"context"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
)

// Dispatcher takes over a post once it has been claimed. An error means
// the post was not handed off or could not be settled.
type Dispatcher interface {
	Dispatch(ctx context.Context, post *models.Post) error
}

type inlineDispatcher struct {
	ps service.PublishService
}

// NewInlineDispatcher publishes claimed posts on the calling goroutine.
func NewInlineDispatcher(ps service.PublishService) Dispatcher {
	return &inlineDispatcher{ps: ps}
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, post *models.Post) error {
	settled, err := d.ps.PublishAndRecord(ctx, post)
	if settled == nil {
		return err
	}
	// The publish outcome is already on the post.
	return nil
}
