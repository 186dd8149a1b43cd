// Package repotest holds in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

type Posts struct {
	mu     sync.Mutex
	rows   map[int64]*models.Post
	nextID int64

	Now     func() time.Time
	FindErr error
}

func NewPosts() *Posts {
	return &Posts{rows: make(map[int64]*models.Post), Now: time.Now}
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	if p.ScheduledDatetime != nil {
		t := *p.ScheduledDatetime
		c.ScheduledDatetime = &t
	}
	if p.PostedAt != nil {
		t := *p.PostedAt
		c.PostedAt = &t
	}
	return &c
}

// Put stores a post as is, assigning an id when it has none.
func (r *Posts) Put(p *models.Post) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	r.rows[p.ID] = clonePost(p)
	return clonePost(p)
}

func (r *Posts) Get(id int64) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok {
		return clonePost(p)
	}
	return nil
}

func (r *Posts) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	p := clonePost(post)
	p.ID = 0
	p.CreatedAt = time.Time{}
	return r.Put(p), nil
}

func (r *Posts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return r.Get(id), nil
}

func (r *Posts) ListByUserID(ctx context.Context, userID int64, filter models.PostFilter) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.rows {
		if p.UserID != userID {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && p.Status != filter.Status {
			continue
		}
		if filter.Platform != "" && p.Platform != filter.Platform {
			continue
		}
		out = append(out, clonePost(p))
	}
	sortPosts(out)
	return out, nil
}

func (r *Posts) Update(ctx context.Context, id int64, upd models.PostUpdate) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	if upd.IsEmpty() {
		return clonePost(p), nil
	}
	if upd.ExpectStatus != "" && p.Status != upd.ExpectStatus {
		return nil, nil
	}

	now := r.Now().UTC()
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Caption != nil {
		p.Caption = *upd.Caption
	}
	if upd.ScheduledDatetime != nil {
		t := upd.ScheduledDatetime.UTC()
		p.ScheduledDatetime = &t
	}
	if upd.Account != nil {
		p.Account = *upd.Account
	}
	if upd.Media != nil {
		p.Media = *upd.Media
	}
	if upd.Status != nil {
		p.Status = *upd.Status
		if p.Status == models.PostStatusPosted {
			p.PostedAt = &now
		} else {
			p.PostedAt = nil
		}
	}
	p.UpdatedAt = now
	return clonePost(p), nil
}

func (r *Posts) Claim(ctx context.Context, id int64, from ...string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if p.Status == s {
			p.Status = models.PostStatusPublishing
			p.UpdatedAt = r.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

func (r *Posts) settle(id int64, status string) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return nil
	}
	now := r.Now().UTC()
	p.Status = status
	p.UpdatedAt = now
	if status == models.PostStatusPosted {
		p.PostedAt = &now
	}
	return clonePost(p)
}

func (r *Posts) MarkPosted(ctx context.Context, id int64) (*models.Post, error) {
	return r.settle(id, models.PostStatusPosted), nil
}

func (r *Posts) MarkFailed(ctx context.Context, id int64) (*models.Post, error) {
	return r.settle(id, models.PostStatusFailed), nil
}

func (r *Posts) FindDue(ctx context.Context, windowStart, windowEnd, touchedSince time.Time) ([]*models.Post, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.rows {
		if p.Status != models.PostStatusScheduled || p.ScheduledDatetime == nil {
			continue
		}
		if p.ScheduledDatetime.After(windowEnd) {
			continue
		}
		if p.ScheduledDatetime.After(windowStart) || !p.UpdatedAt.Before(touchedSince) {
			out = append(out, clonePost(p))
		}
	}
	sortPosts(out)
	return out, nil
}

func (r *Posts) FailMissed(ctx context.Context, before, untouchedSince time.Time) (int64, error) {
	return r.failWhere(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && p.ScheduledDatetime != nil &&
			!p.ScheduledDatetime.After(before) && p.UpdatedAt.Before(untouchedSince)
	}), nil
}

func (r *Posts) FailStale(ctx context.Context, before time.Time) (int64, error) {
	return r.failWhere(func(p *models.Post) bool {
		return p.Status == models.PostStatusPublishing && p.UpdatedAt.Before(before)
	}), nil
}

func (r *Posts) failWhere(match func(*models.Post) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.rows {
		if match(p) {
			p.Status = models.PostStatusFailed
			p.UpdatedAt = r.Now().UTC()
			n++
		}
	}
	return n
}

func (r *Posts) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func sortPosts(posts []*models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i].ScheduledDatetime, posts[j].ScheduledDatetime
		switch {
		case a == nil && b == nil:
			return posts[i].ID < posts[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return posts[i].ID < posts[j].ID
	})
}
