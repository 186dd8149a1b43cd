package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64, filter models.PostFilter) ([]*models.Post, error)
	Update(ctx context.Context, id int64, upd models.PostUpdate) (*models.Post, error)
	Claim(ctx context.Context, id int64, from ...string) (bool, error)
	MarkPosted(ctx context.Context, id int64) (*models.Post, error)
	MarkFailed(ctx context.Context, id int64) (*models.Post, error)
	FindDue(ctx context.Context, windowStart, windowEnd, touchedSince time.Time) ([]*models.Post, error)
	FailMissed(ctx context.Context, before, untouchedSince time.Time) (int64, error)
	FailStale(ctx context.Context, before time.Time) (int64, error)
	Remove(ctx context.Context, id int64) error
}

const postColumns = `id, user_id, platform, title, caption, scheduled_datetime, status, account, media_kind, media_ref, created_at, updated_at, posted_at`

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var mediaKind string
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.Platform,
		&post.Title,
		&post.Caption,
		&post.ScheduledDatetime,
		&post.Status,
		&post.Account,
		&mediaKind,
		&post.Media.Value,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.PostedAt,
	)
	if err != nil {
		return nil, err
	}
	post.Media.Kind = models.MediaKind(mediaKind)
	return &post, nil
}

func (r *postRepository) queryPost(ctx context.Context, query string, args ...any) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (user_id, platform, title, caption, scheduled_datetime, status, account, media_kind, media_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + postColumns

	return r.queryPost(ctx, query,
		post.UserID,
		post.Platform,
		post.Title,
		post.Caption,
		post.ScheduledDatetime,
		post.Status,
		post.Account,
		string(post.Media.Kind),
		post.Media.Value,
	)
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return r.queryPost(ctx, query, id)
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64, filter models.PostFilter) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1`
	args := []any{userID}

	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		query += fmt.Sprintf(" AND platform = $%d", len(args))
	}
	query += " ORDER BY scheduled_datetime ASC NULLS LAST, id ASC"

	return r.queryPosts(ctx, query, args...)
}

// Update applies the non-nil fields of upd. An empty update returns the
// stored row without touching updated_at. A nil post means no row matched,
// either because it is gone or because its status is no longer
// upd.ExpectStatus.
func (r *postRepository) Update(ctx context.Context, id int64, upd models.PostUpdate) (*models.Post, error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	now := time.Now().UTC()

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Caption != nil {
		add("caption", *upd.Caption)
	}
	if upd.ScheduledDatetime != nil {
		add("scheduled_datetime", upd.ScheduledDatetime.UTC())
	}
	if upd.Account != nil {
		add("account", *upd.Account)
	}
	if upd.Media != nil {
		add("media_kind", string(upd.Media.Kind))
		add("media_ref", upd.Media.Value)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
		if *upd.Status == models.PostStatusPosted {
			add("posted_at", now)
		} else {
			sets = append(sets, "posted_at = NULL")
		}
	}
	add("updated_at", now)

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if upd.ExpectStatus != "" {
		args = append(args, upd.ExpectStatus)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE posts SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, postColumns)

	return r.queryPost(ctx, query, args...)
}

// Claim moves a post into publishing if its current status is one of from.
// It reports false when another worker got there first.
func (r *postRepository) Claim(ctx context.Context, id int64, from ...string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now().UTC(), id, pq.Array(from))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkPosted(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		UPDATE posts
		SET status = $1,
			posted_at = $2,
			updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + postColumns
	return r.queryPost(ctx, query, models.PostStatusPosted, time.Now().UTC(), id, models.PostStatusPublishing)
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + postColumns
	return r.queryPost(ctx, query, models.PostStatusFailed, time.Now().UTC(), id, models.PostStatusPublishing)
}

// FindDue returns scheduled posts due in (windowStart, windowEnd], plus
// posts at or before windowStart that were written at or after
// touchedSince. The latter were scheduled into a window the previous scan
// had already passed.
func (r *postRepository) FindDue(ctx context.Context, windowStart, windowEnd, touchedSince time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1
		AND scheduled_datetime <= $3
		AND (scheduled_datetime > $2 OR updated_at >= $4)
		ORDER BY scheduled_datetime ASC, id ASC`
	return r.queryPosts(ctx, query, models.PostStatusScheduled, windowStart.UTC(), windowEnd.UTC(), touchedSince.UTC())
}

// FailMissed fails scheduled posts whose time is at or before the given
// instant and that were last written before untouchedSince. They are
// outside every future scan window. Rows written later are left for
// FindDue.
func (r *postRepository) FailMissed(ctx context.Context, before, untouchedSince time.Time) (int64, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE status = $3 AND scheduled_datetime <= $4 AND updated_at < $5
	`
	return r.execCount(ctx, query, models.PostStatusFailed, time.Now().UTC(), models.PostStatusScheduled, before.UTC(), untouchedSince.UTC())
}

// FailStale fails posts stuck in publishing since before the given instant.
func (r *postRepository) FailStale(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE status = $3 AND updated_at < $4
	`
	return r.execCount(ctx, query, models.PostStatusFailed, time.Now().UTC(), models.PostStatusPublishing, before.UTC())
}

func (r *postRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return affected, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
