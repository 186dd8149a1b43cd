package models

import "time"

type Post struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"-"`
	Platform          string     `db:"platform" json:"platform"`
	Title             string     `db:"title" json:"title"`
	Caption           string     `db:"caption" json:"caption"`
	ScheduledDatetime *time.Time `db:"scheduled_datetime" json:"dateTime"`
	Status            string     `db:"status" json:"status"` // draft, scheduled, publishing, posted, failed
	Account           string     `db:"account" json:"account"`
	Media             MediaRef   `json:"media"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	PostedAt          *time.Time `db:"posted_at" json:"posted_at"`
}

// PostUpdate holds the fields an update may touch. Nil means "leave as is".
type PostUpdate struct {
	Title             *string
	Caption           *string
	ScheduledDatetime *time.Time
	Status            *string
	Account           *string
	Media             *MediaRef

	// ExpectStatus, when set, makes the update apply only while the post
	// still has this status.
	ExpectStatus string
}

func (u PostUpdate) IsEmpty() bool {
	return u.Title == nil && u.Caption == nil && u.ScheduledDatetime == nil &&
		u.Status == nil && u.Account == nil && u.Media == nil
}

type PostFilter struct {
	Status   string
	Platform string
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPosted     = "posted"
	PostStatusFailed     = "failed"
)

const (
	PlatformTiktok = "tiktok"
	DefaultAccount = "primary"
)

var postTransitions = map[string][]string{
	PostStatusDraft:      {PostStatusScheduled, PostStatusPublishing},
	PostStatusScheduled:  {PostStatusDraft, PostStatusPublishing},
	PostStatusPublishing: {PostStatusPosted, PostStatusFailed},
	PostStatusPosted:     {PostStatusScheduled},
	PostStatusFailed:     {PostStatusScheduled},
}

// CanTransition reports whether a post may move from one status to another.
// Leaving posted or failed is only possible by rescheduling.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range postTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsValidStatus(status string) bool {
	_, ok := postTransitions[status]
	return ok
}
