package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

type connKey struct {
	userID   int64
	platform string
	account  string
}

type Connections struct {
	mu     sync.Mutex
	rows   map[connKey]*models.PlatformConnection
	nextID int64

	// BeforeSwap runs inside SwapTokens before the compare, so tests can
	// simulate a concurrent writer.
	BeforeSwap func()
	Swaps      int
}

func NewConnections() *Connections {
	return &Connections{rows: make(map[connKey]*models.PlatformConnection)}
}

func keyOf(c *models.PlatformConnection) connKey {
	return connKey{c.UserID, c.Platform, c.AccountName}
}

func cloneConn(c *models.PlatformConnection) *models.PlatformConnection {
	out := *c
	if c.TokenExpiresAt != nil {
		t := *c.TokenExpiresAt
		out.TokenExpiresAt = &t
	}
	if c.RefreshExpiresAt != nil {
		t := *c.RefreshExpiresAt
		out.RefreshExpiresAt = &t
	}
	return &out
}

func (r *Connections) Get(ctx context.Context, userID int64, platform, account string) (*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rows[connKey{userID, platform, account}]; ok {
		return cloneConn(c), nil
	}
	return nil, nil
}

func (r *Connections) Upsert(ctx context.Context, c *models.PlatformConnection) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	row := cloneConn(c)
	if existing, ok := r.rows[keyOf(c)]; ok {
		row.ID = existing.ID
	} else {
		r.nextID++
		row.ID = r.nextID
	}
	row.ConnectedAt = now
	row.UpdatedAt = now
	r.rows[keyOf(c)] = row
	return row.ID, nil
}

func (r *Connections) SwapTokens(ctx context.Context, id int64, oldRefreshToken string, c *models.PlatformConnection) (bool, error) {
	if r.BeforeSwap != nil {
		r.BeforeSwap()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != id || row.RefreshToken != oldRefreshToken {
			continue
		}
		row.AccessToken = c.AccessToken
		row.RefreshToken = c.RefreshToken
		row.TokenExpiresAt = cloneConn(c).TokenExpiresAt
		row.RefreshExpiresAt = cloneConn(c).RefreshExpiresAt
		row.UpdatedAt = time.Now().UTC()
		r.Swaps++
		return true, nil
	}
	return false, nil
}

func (r *Connections) ListExpiring(ctx context.Context, platform string, before time.Time) ([]*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*models.PlatformConnection
	for _, c := range r.rows {
		if c.Platform != platform || c.RefreshToken == "" || c.TokenExpiresAt == nil || !c.TokenExpiresAt.Before(before) {
			continue
		}
		if c.RefreshExpiresAt != nil && !c.RefreshExpiresAt.After(now) {
			continue
		}
		out = append(out, cloneConn(c))
	}
	return out, nil
}

func (r *Connections) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlatformConnection
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, cloneConn(c))
		}
	}
	return out, nil
}

func (r *Connections) Remove(ctx context.Context, userID int64, platform, account string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := connKey{userID, platform, account}
	if _, ok := r.rows[k]; !ok {
		return false, nil
	}
	delete(r.rows, k)
	return true, nil
}
