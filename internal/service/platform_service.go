package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/pkg/utils"
)

const stateTTL = 10 * time.Minute

var ErrInvalidState = errors.New("invalid or expired oauth state")

type PlatformService interface {
	GetAuthURL(ctx context.Context, userID int64, account string) (string, error)
	Callback(ctx context.Context, code, state string) (account string, err error)
}

type platformService struct {
	cfg config.Config
	tc  TiktokClient
	ts  TokenService
}

func NewPlatformService(cfg config.Config, tc TiktokClient, ts TokenService) PlatformService {
	return &platformService{
		cfg: cfg,
		tc:  tc,
		ts:  ts,
	}
}

// GetAuthURL builds the TikTok consent URL. The state parameter is a signed
// token naming the user and account, checked again in Callback.
func (s *platformService) GetAuthURL(ctx context.Context, userID int64, account string) (string, error) {
	account = accountOrDefault(account)
	state, err := utils.GenerateStateToken(s.cfg.SecretKey, userID, account, stateTTL)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Add("client_key", s.cfg.Tiktok.ClientKey)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.cfg.Tiktok.RedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", s.cfg.Tiktok.AuthURL, params.Encode()), nil
}

func (s *platformService) Callback(ctx context.Context, code, state string) (string, error) {
	claims, err := utils.ValidateStateToken(s.cfg.SecretKey, state)
	if err != nil {
		return "", ErrInvalidState
	}
	if code == "" {
		err = fmt.Errorf("%w: missing authorization code", ErrInvalidInput)
		slog.Info(err.Error())
		return claims.Account, err
	}

	tok, err := s.tc.ExchangeCode(ctx, code)
	if err != nil {
		return claims.Account, err
	}

	if err := s.ts.SaveConnection(ctx, claims.UserID, claims.Account, tok); err != nil {
		return claims.Account, err
	}
	return claims.Account, nil
}
