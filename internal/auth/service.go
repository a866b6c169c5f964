// Package auth implements Google sign-in for the booking API. A successful
// login stores the user's profile and calendar authorization, then issues a
// session token the booking endpoints verify.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"slotly/internal/users/repository"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/model"
	"slotly/pkg/token"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type AuthService interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) (string, *model.User, error)
}

type authService struct {
	oauth *oauth2.Config
	users repository.UserRepository
	cfg   *config.Config
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				oauth2api.UserinfoEmailScope,
				oauth2api.UserinfoProfileScope,
				gcal.CalendarReadonlyScope,
			},
			Endpoint: google.Endpoint,
		},
		users: users,
		cfg:   cfg,
	}
}

// AuthURL builds the Google consent URL. Offline access is requested so a
// refresh token is stored alongside the calendar authorization.
func (s *authService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code, loads the Google profile,
// upserts the user with the calendar credential and returns a session token.
func (s *authService) HandleCallback(ctx context.Context, code string) (string, *model.User, error) {
	oauthToken, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, apperrors.Wrap(err, apperrors.CodeUnauthorized, "Authorization code exchange failed", http.StatusUnauthorized)
	}

	profile, err := s.fetchProfile(ctx, oauthToken)
	if err != nil {
		return "", nil, apperrors.Internal("Failed to load Google profile", err)
	}

	user := &model.User{
		GoogleID: profile.Id,
		Email:    profile.Email,
		Name:     profile.Name,
		Picture:  profile.Picture,
		Calendar: &model.Credential{
			AccessToken:  oauthToken.AccessToken,
			RefreshToken: oauthToken.RefreshToken,
			Expiry:       oauthToken.Expiry,
		},
	}

	stored, err := s.users.Upsert(ctx, user)
	if err != nil {
		return "", nil, apperrors.Internal("Failed to store user", err)
	}

	sessionToken, err := token.Generate(s.cfg.JWTSecret, s.cfg.JWTTTL, stored.ID, stored.Email)
	if err != nil {
		return "", nil, apperrors.Internal("Failed to issue session token", err)
	}

	s.cfg.Log.Info("User logged in",
		"user_id", stored.ID,
		"email", stored.Email,
	)
	return sessionToken, stored, nil
}

func (s *authService) fetchProfile(ctx context.Context, oauthToken *oauth2.Token) (*oauth2api.Userinfo, error) {
	service, err := oauth2api.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, oauthToken)))
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo service: %w", err)
	}

	profile, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	return profile, nil
}
