// Package oauth supplies access tokens for the tracking service, backed by
// the user profile document.
package oauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	shared "github.com/carbonpath/server/pkg"
)

// FirestoreTokenSource reads the tracking-service token from the user
// document and refreshes it when it is about to expire.
// Safe for concurrent use by multiple goroutines.
type FirestoreTokenSource struct {
	db     shared.Database
	userID string
	conf   *oauth2.Config
	mu     sync.Mutex
}

func NewFirestoreTokenSource(db shared.Database, userID string, conf *oauth2.Config) *FirestoreTokenSource {
	return &FirestoreTokenSource{
		db:     db,
		userID: userID,
		conf:   conf,
	}
}

// AccessToken returns a valid access token, refreshing and persisting it if
// necessary.
func (s *FirestoreTokenSource) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.db.GetUser(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("unknown user %s", s.userID)
	}

	if user.Integrations == nil || user.Integrations.Moves == nil || !user.Integrations.Moves.Enabled {
		return "", fmt.Errorf("tracking service not linked/enabled")
	}
	integ := user.Integrations.Moves

	if integ.AccessToken == "" {
		return "", fmt.Errorf("missing access token")
	}

	// Proactive refresh: refresh if expired or expiring in the next minute.
	if integ.ExpiresAt.IsZero() || time.Now().Add(1*time.Minute).Before(integ.ExpiresAt) {
		return integ.AccessToken, nil
	}

	if integ.RefreshToken == "" {
		return "", fmt.Errorf("token expired and no refresh token stored; user must re-connect")
	}

	refreshed, err := s.conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  integ.AccessToken,
		RefreshToken: integ.RefreshToken,
		Expiry:       integ.ExpiresAt,
	}).Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	// Dotted paths avoid overwriting the whole integration sub-object
	// (which would wipe enabled, moves_user_id, etc.)
	updateData := map[string]interface{}{
		"integrations.moves.access_token": refreshed.AccessToken,
		"integrations.moves.expires_at":   refreshed.Expiry,
	}
	// Only persist refresh_token if the provider rotated it; writing an
	// empty response value would wipe the stored token.
	if refreshed.RefreshToken != "" {
		updateData["integrations.moves.refresh_token"] = refreshed.RefreshToken
	}

	if err := s.db.UpdateUser(ctx, s.userID, updateData); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return refreshed.AccessToken, nil
}
