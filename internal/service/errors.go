package service

import "errors"

var (
	ErrNotConnected        = errors.New("tiktok account not connected")
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrUnauthorized        = errors.New("tiktok rejected the access token")

	ErrInitFailed    = errors.New("failed to initialize video upload")
	ErrUploadFailed  = errors.New("failed to upload video")
	ErrPublishFailed = errors.New("failed to publish video")
	ErrTokenExchange = errors.New("tiktok token exchange failed")

	ErrNoMedia           = errors.New("no video file provided")
	ErrUnsupportedMedia  = errors.New("only video files are allowed")
	ErrFileNotFound      = errors.New("file not found")
	ErrPostNotFound      = errors.New("post not found")
	ErrForbidden         = errors.New("post belongs to another user")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyClaimed    = errors.New("post is already being published")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// RequiresAuth reports whether err means the user has to reconnect TikTok.
func RequiresAuth(err error) bool {
	return errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrRefreshTokenExpired) ||
		errors.Is(err, ErrUnauthorized)
}

// IsGatewayError reports whether err came from a TikTok API stage.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrInitFailed) ||
		errors.Is(err, ErrUploadFailed) ||
		errors.Is(err, ErrPublishFailed) ||
		errors.Is(err, ErrTokenExchange)
}
