package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/repository"
	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	UpdatePost(ctx context.Context, userID, postID int64, pe *transfer.PostEdit) (*models.Post, error)
	PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error)
	List(ctx context.Context, userID int64, filter models.PostFilter) ([]*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
	PublishNow(ctx context.Context, userID, postID int64) (*models.Post, error)
	History(ctx context.Context, userID, postID int64) ([]*models.PostingHistory, error)
}

type postService struct {
	pr     repository.PostRepository
	ph     repository.PostingHistoryRepository
	ps     PublishService
	st     StorageService
	window time.Duration
	now    func() time.Time
}

func NewPostService(cfg config.Config, pr repository.PostRepository, ph repository.PostingHistoryRepository, ps PublishService, st StorageService) PostService {
	return &postService{
		pr:     pr,
		ph:     ph,
		ps:     ps,
		st:     st,
		window: cfg.Scheduler.Window,
		now:    time.Now,
	}
}

// CreatePost stores a draft or scheduled post. With PostNow the post is
// scheduled for now and published before returning.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}

	title := strings.TrimSpace(pc.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	media, err := s.mediaRef(pc.MediaKind, pc.MediaURL)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   userID,
		Platform: models.PlatformTiktok,
		Title:    title,
		Caption:  pc.Caption,
		Account:  accountOrDefault(pc.Account),
		Media:    media,
		Status:   models.PostStatusScheduled,
	}

	now := s.now().UTC()
	switch {
	case pc.PostNow:
		if media.IsZero() {
			return nil, ErrNoMedia
		}
		post.ScheduledDatetime = &now

	case pc.Status == models.PostStatusDraft && pc.Date == "" && pc.Time == "":
		post.Status = models.PostStatusDraft

	default:
		if pc.Status != "" && pc.Status != models.PostStatusDraft && pc.Status != models.PostStatusScheduled {
			return nil, fmt.Errorf("%w: status %q cannot be set on create", ErrInvalidInput, pc.Status)
		}
		at, err := parseSchedule(pc.Date, pc.Time, pc.Timezone)
		if err != nil {
			return nil, err
		}
		if pc.Status == models.PostStatusDraft {
			post.Status = models.PostStatusDraft
		} else if at.Before(now.Add(-s.window)) {
			return nil, fmt.Errorf("%w: scheduled time is in the past", ErrInvalidInput)
		}
		post.ScheduledDatetime = &at
	}

	created, err := s.pr.Create(ctx, post)
	if err != nil {
		return nil, err
	}
	slog.Info("post created", "post_id", created.ID, "user_id", userID, "status", created.Status)

	if !pc.PostNow {
		return created, nil
	}
	return s.publishClaimed(ctx, created, models.PostStatusScheduled)
}

func (s *postService) UpdatePost(ctx context.Context, userID, postID int64, pe *transfer.PostEdit) (*models.Post, error) {
	if pe == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}

	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublishing {
		return nil, fmt.Errorf("%w: post is being published", ErrInvalidTransition)
	}

	upd := models.PostUpdate{ExpectStatus: post.Status}

	if pe.Title != nil {
		title := strings.TrimSpace(*pe.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		upd.Title = &title
	}
	upd.Caption = pe.Caption
	if pe.Account != nil {
		account := accountOrDefault(*pe.Account)
		upd.Account = &account
	}
	if pe.MediaURL != nil {
		media, err := s.mediaRef(pe.MediaKind, *pe.MediaURL)
		if err != nil {
			return nil, err
		}
		upd.Media = &media
	}

	if pe.Date != nil || pe.Time != nil {
		if pe.Date == nil || pe.Time == nil {
			return nil, fmt.Errorf("%w: date and time must be set together", ErrInvalidInput)
		}
		at, err := parseSchedule(*pe.Date, *pe.Time, pe.Timezone)
		if err != nil {
			return nil, err
		}
		upd.ScheduledDatetime = &at
	}

	target := post.Status
	if pe.Status != nil {
		target = *pe.Status
		if target != models.PostStatusDraft && target != models.PostStatusScheduled {
			return nil, fmt.Errorf("%w: status %q cannot be set directly", ErrInvalidTransition, target)
		}
	}
	finished := post.Status == models.PostStatusPosted || post.Status == models.PostStatusFailed
	if finished && upd.ScheduledDatetime != nil && pe.Status == nil {
		target = models.PostStatusScheduled
	}

	if target != post.Status {
		if !models.CanTransition(post.Status, target) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, post.Status, target)
		}
		if finished && upd.ScheduledDatetime == nil {
			return nil, fmt.Errorf("%w: rescheduling needs a new date and time", ErrInvalidInput)
		}
		upd.Status = &target
	}

	if target == models.PostStatusScheduled && upd.ScheduledDatetime == nil && post.ScheduledDatetime == nil {
		return nil, fmt.Errorf("%w: a scheduled post needs a date and time", ErrInvalidInput)
	}
	if target == models.PostStatusScheduled && upd.ScheduledDatetime != nil &&
		upd.ScheduledDatetime.Before(s.now().Add(-s.window)) {
		return nil, fmt.Errorf("%w: scheduled time is in the past", ErrInvalidInput)
	}

	return s.update(ctx, postID, upd)
}

// update writes upd and explains a miss: the post is gone, or its status
// moved away from upd.ExpectStatus since it was read.
func (s *postService) update(ctx context.Context, postID int64, upd models.PostUpdate) (*models.Post, error) {
	updated, err := s.pr.Update(ctx, postID, upd)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		return updated, nil
	}

	current, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	switch {
	case current == nil:
		return nil, ErrPostNotFound
	case current.Status == models.PostStatusPublishing:
		return nil, ErrAlreadyClaimed
	default:
		return nil, fmt.Errorf("%w: post is now %s", ErrInvalidTransition, current.Status)
	}
}

func (s *postService) PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if postID <= 0 {
		return nil, fmt.Errorf("%w: post id is not valid", ErrInvalidInput)
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		slog.Info("post access denied", "post_id", postID, "user_id", userID)
		return nil, ErrForbidden
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64, filter models.PostFilter) ([]*models.Post, error) {
	if filter.Status != "" && filter.Status != "all" && !models.IsValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	posts, err := s.pr.ListByUserID(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublishing {
		return fmt.Errorf("%w: post is being published", ErrInvalidTransition)
	}
	return s.pr.Remove(ctx, postID)
}

// PublishNow claims a draft or scheduled post and publishes it inline.
func (s *postService) PublishNow(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled:
	case models.PostStatusPublishing:
		return nil, ErrAlreadyClaimed
	default:
		return nil, fmt.Errorf("%w: %s post cannot be published again, reschedule it", ErrInvalidTransition, post.Status)
	}
	if post.Media.IsZero() {
		return nil, ErrNoMedia
	}

	if post.ScheduledDatetime == nil {
		now := s.now().UTC()
		post, err = s.update(ctx, postID, models.PostUpdate{ScheduledDatetime: &now, ExpectStatus: post.Status})
		if err != nil {
			return nil, err
		}
	}

	return s.publishClaimed(ctx, post, models.PostStatusDraft, models.PostStatusScheduled)
}

// History lists the publish attempts recorded for a post, newest first.
func (s *postService) History(ctx context.Context, userID, postID int64) ([]*models.PostingHistory, error) {
	if _, err := s.PostInfo(ctx, userID, postID); err != nil {
		return nil, err
	}
	history, err := s.ph.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*models.PostingHistory{}
	}
	return history, nil
}

func (s *postService) publishClaimed(ctx context.Context, post *models.Post, from ...string) (*models.Post, error) {
	ok, err := s.pr.Claim(ctx, post.ID, from...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyClaimed
	}
	post.Status = models.PostStatusPublishing
	return s.ps.PublishAndRecord(ctx, post)
}

func (s *postService) mediaRef(kind, value string) (models.MediaRef, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.MediaRef{}, nil
	}
	ref := models.MediaRef{Kind: models.MediaKind(kind), Value: value}
	if ref.Kind == models.MediaNone {
		ref.Kind = s.st.DefaultKind()
	}
	if err := s.st.Check(ref); err != nil {
		return models.MediaRef{}, err
	}
	return ref, nil
}

// parseSchedule reads a wall-clock date and time in the given IANA zone
// (UTC when empty) and returns the UTC instant.
func parseSchedule(date, clock, tz string) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: date and time are required", ErrInvalidInput)
	}

	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
		}
		loc = l
	}

	at, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date or time: %v", ErrInvalidInput, err)
	}
	return at.UTC(), nil
}

func accountOrDefault(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return models.DefaultAccount
	}
	return account
}
