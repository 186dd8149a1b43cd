package models

import (
	"time"
)

// PlatformConnection is a stored OAuth token pair. Tokens are encrypted at
// rest and never leave the service.
type PlatformConnection struct {
	ID               int64      `db:"id" json:"-"`
	UserID           int64      `db:"user_id" json:"-"`
	Platform         string     `db:"platform" json:"platform"`
	AccountName      string     `db:"account_name" json:"account"`
	AccessToken      string     `db:"access_token" json:"-"`
	RefreshToken     string     `db:"refresh_token" json:"-"`
	TokenExpiresAt   *time.Time `db:"token_expires_at" json:"-"`
	RefreshExpiresAt *time.Time `db:"refresh_expires_at" json:"-"`
	ConnectedAt      time.Time  `db:"connected_at" json:"-"`
	UpdatedAt        time.Time  `db:"updated_at" json:"-"`
}

type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	Account     string     `json:"account,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	IsValid     bool       `json:"isValid"`
}

func (c *PlatformConnection) Status(now time.Time) ConnectionStatus {
	if c == nil {
		return ConnectionStatus{Connected: false}
	}
	connectedAt := c.ConnectedAt
	return ConnectionStatus{
		Connected:   true,
		Account:     c.AccountName,
		ConnectedAt: &connectedAt,
		ExpiresAt:   c.TokenExpiresAt,
		IsValid:     c.TokenExpiresAt != nil && c.TokenExpiresAt.After(now),
	}
}
