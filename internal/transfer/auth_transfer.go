package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// StateClaims travel through the TikTok consent screen as the OAuth state.
type StateClaims struct {
	UserID  int64  `json:"uid"`
	Account string `json:"account"`
	jwt.RegisteredClaims
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
