package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

type History struct {
	mu   sync.Mutex
	rows []models.PostingHistory
}

func (r *History) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *ph
	row.ID = int64(len(r.rows) + 1)
	row.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, row)
	return row.ID, nil
}

func (r *History) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PostingHistory
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].PostID == postID {
			row := r.rows[i]
			out = append(out, &row)
		}
	}
	return out, nil
}

type Users struct {
	mu   sync.Mutex
	rows []models.User
}

func (r *Users) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.ID == id {
			out := u
			return &out, true, nil
		}
	}
	return nil, false, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.Email == email {
			out := u
			return &out, true, nil
		}
	}
	return nil, false, nil
}

func (r *Users) Create(ctx context.Context, user *models.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *user
	row.ID = int64(len(r.rows) + 1)
	row.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, row)
	return row.ID, nil
}
