package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository"
)

// maxAuthRetries bounds how often a 401 from TikTok triggers a token
// refresh and another attempt.
const maxAuthRetries = 1

type PublishService interface {
	UploadAndGetID(ctx context.Context, accessToken, filePath, title string) (string, error)
	Publish(ctx context.Context, post *models.Post) (*PublishResult, error)
	PublishAndRecord(ctx context.Context, post *models.Post) (*models.Post, error)
}

type publishService struct {
	pr repository.PostRepository
	ph repository.PostingHistoryRepository
	ts TokenService
	tc TiktokClient
	st StorageService
}

func NewPublishService(
	pr repository.PostRepository,
	ph repository.PostingHistoryRepository,
	ts TokenService,
	tc TiktokClient,
	st StorageService) PublishService {
	return &publishService{
		pr: pr,
		ph: ph,
		ts: ts,
		tc: tc,
		st: st,
	}
}

// UploadAndGetID runs init and upload for a local file and returns the
// upload session id that Publish expects.
func (s *publishService) UploadAndGetID(ctx context.Context, accessToken, filePath, title string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	session, err := s.tc.InitUpload(ctx, accessToken, title, info.Size())
	if err != nil {
		return "", err
	}

	if err := s.tc.UploadBytes(ctx, session.UploadURL, filePath); err != nil {
		return "", err
	}

	status, err := s.tc.FetchStatus(ctx, accessToken, session.PublishID)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "", err
	case err != nil:
		slog.Info("status fetch failed", "publish_id", session.PublishID, "error", err)
	default:
		slog.Info("upload status", "publish_id", session.PublishID, "status", status.Status)
	}

	return session.PublishID, nil
}

// Publish pushes one post to TikTok. A 401 from any stage refreshes the
// token and retries the whole upload at most maxAuthRetries times.
func (s *publishService) Publish(ctx context.Context, post *models.Post) (*PublishResult, error) {
	token, err := s.ts.GetValidAccessToken(ctx, post.UserID, post.Account)
	if err != nil {
		return nil, err
	}

	if post.Media.IsZero() {
		return nil, ErrNoMedia
	}
	path, cleanup, err := s.st.Materialize(ctx, post.Media)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		result, err := s.attempt(ctx, token, path, post)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrUnauthorized) || attempt >= maxAuthRetries {
			return nil, err
		}

		slog.Info("tiktok returned 401, refreshing token", "post_id", post.ID, "user_id", post.UserID, "account", post.Account)
		token, err = s.ts.RefreshToken(ctx, post.UserID, post.Account)
		if err != nil {
			return nil, err
		}
	}
}

func (s *publishService) attempt(ctx context.Context, token, path string, post *models.Post) (*PublishResult, error) {
	sessionID, err := s.UploadAndGetID(ctx, token, path, post.Title)
	if err != nil {
		return nil, err
	}
	return s.tc.Publish(ctx, token, sessionID, post.Caption, post.Title)
}

// PublishAndRecord publishes a post that is already claimed (status
// publishing) and settles it as posted or failed. The publish error, if
// any, is returned together with the settled post.
func (s *publishService) PublishAndRecord(ctx context.Context, post *models.Post) (*models.Post, error) {
	log := slog.With("post_id", post.ID, "user_id", post.UserID, "account", post.Account)

	result, pubErr := s.Publish(ctx, post)

	// Settle even if the caller's context is gone.
	settleCtx := context.WithoutCancel(ctx)
	history := &models.PostingHistory{
		UserID:  post.UserID,
		PostID:  post.ID,
		Account: post.Account,
	}

	var settled *models.Post
	var err error
	if pubErr == nil {
		history.PublishID = result.PublishID
		settled, err = s.pr.MarkPosted(settleCtx, post.ID)
		log.Info("post published", "publish_id", result.PublishID)
	} else {
		history.ErrorMessage = pubErr.Error()
		settled, err = s.pr.MarkFailed(settleCtx, post.ID)
		log.Error("post publish failed", "error", pubErr)
	}

	if _, herr := s.ph.Create(settleCtx, history); herr != nil {
		log.Error("record posting history", "error", herr)
	}

	if err != nil {
		return nil, err
	}
	if settled == nil {
		log.Info("post was no longer publishing when settled")
		settled, err = s.pr.GetByID(settleCtx, post.ID)
		if err != nil {
			return nil, err
		}
	}
	return settled, pubErr
}
