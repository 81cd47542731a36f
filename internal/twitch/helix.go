// Package twitch adapts the Helix API to the domain.StreamingPlatform
// interface using app access tokens (client credentials).
package twitch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

// HelixClient implements domain.StreamingPlatform.
type HelixClient struct {
	mu          sync.Mutex
	client      *helix.Client
	clock       clockwork.Clock
	tokenExpiry time.Time
}

// NewHelixClient creates a Helix client and fetches an initial app access
// token.
func NewHelixClient(ctx context.Context, clientID, clientSecret string, clock clockwork.Clock) (*HelixClient, error) {
	client, err := helix.NewClientWithContext(ctx, &helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	hc := &HelixClient{client: client, clock: clock}
	if err := hc.refreshAppToken(); err != nil {
		return nil, err
	}
	return hc, nil
}

// refreshAppToken requests a fresh app access token. Caller must hold mu or
// be the constructor.
func (hc *HelixClient) refreshAppToken() error {
	resp, err := hc.client.RequestAppAccessToken(nil)
	if err != nil {
		return fmt.Errorf("failed to request app access token: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("unexpected status code requesting app token: %d, error: %s", resp.StatusCode, resp.ErrorMessage)
	}

	hc.client.SetAppAccessToken(resp.Data.AccessToken)
	hc.tokenExpiry = hc.clock.Now().Add(time.Duration(resp.Data.ExpiresIn) * time.Second)
	return nil
}

// ensureValidToken refreshes the app token when it expires within a minute.
func (hc *HelixClient) ensureValidToken() error {
	if hc.clock.Now().Add(60 * time.Second).Before(hc.tokenExpiry) {
		return nil
	}
	return hc.refreshAppToken()
}

func (hc *HelixClient) getUsers(params *helix.UsersParams) ([]domain.StreamUser, error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if err := hc.ensureValidToken(); err != nil {
		return nil, err
	}

	resp, err := hc.client.GetUsers(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status code getting users: %d, error: %s", resp.StatusCode, resp.ErrorMessage)
	}

	users := make([]domain.StreamUser, 0, len(resp.Data.Users))
	for _, u := range resp.Data.Users {
		users = append(users, domain.StreamUser{
			ID:              u.ID,
			Login:           u.Login,
			DisplayName:     u.DisplayName,
			ProfileImageURL: u.ProfileImageURL,
			OfflineImageURL: u.OfflineImageURL,
		})
	}
	return users, nil
}

// GetUsersByIDs resolves users by their Twitch ids. Unknown ids are simply
// absent from the result.
func (hc *HelixClient) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.StreamUser, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return hc.getUsers(&helix.UsersParams{IDs: ids})
}

// GetUsersByLogins resolves users by their login names.
func (hc *HelixClient) GetUsersByLogins(ctx context.Context, logins []string) ([]domain.StreamUser, error) {
	if len(logins) == 0 {
		return nil, nil
	}
	return hc.getUsers(&helix.UsersParams{Logins: logins})
}

// GetStreamsByUserIDs returns the live streams of the given users. A user
// with no entry in the result is offline.
func (hc *HelixClient) GetStreamsByUserIDs(ctx context.Context, ids []string) ([]domain.Stream, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	if err := hc.ensureValidToken(); err != nil {
		return nil, err
	}

	resp, err := hc.client.GetStreams(&helix.StreamsParams{UserIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to get streams: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status code getting streams: %d, error: %s", resp.StatusCode, resp.ErrorMessage)
	}

	streams := make([]domain.Stream, 0, len(resp.Data.Streams))
	for _, s := range resp.Data.Streams {
		streams = append(streams, domain.Stream{
			ID:           s.ID,
			UserID:       s.UserID,
			Title:        s.Title,
			GameName:     s.GameName,
			ViewerCount:  s.ViewerCount,
			ThumbnailURL: s.ThumbnailURL,
			StartedAt:    s.StartedAt,
		})
	}
	return streams, nil
}

var _ domain.StreamingPlatform = (*HelixClient)(nil)
