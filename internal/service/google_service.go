package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"membership-service/internal/config"
	"membership-service/internal/models"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthService struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
}

func NewGoogleOAuthService(cfg config.GoogleConfig) *GoogleOAuthService {
	return &GoogleOAuthService{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (s *GoogleOAuthService) AuthURL(state string) string {
	return s.oauth2Config.AuthCodeURL(state)
}

// Identify exchanges an authorization code and returns the account's
// verified e-mail address.
func (s *GoogleOAuthService) Identify(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: authorization code is missing", models.ErrIdentityRejected)
	}

	token, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: code exchange failed: %v", models.ErrIdentityRejected, err)
	}

	client := s.oauth2Config.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get user info: %v", models.ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: userinfo request failed with status: %d", models.ErrIdentityUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", models.ErrIdentityUnavailable, err)
	}

	var userInfo models.GoogleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return "", fmt.Errorf("%w: failed to parse user info: %v", models.ErrIdentityUnavailable, err)
	}
	if userInfo.Email == "" || !userInfo.VerifiedEmail {
		return "", fmt.Errorf("%w: google account has no verified email", models.ErrIdentityRejected)
	}
	return userInfo.Email, nil
}
