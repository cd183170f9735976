// Package identity resolves the current authenticated user through the
// external auth service. Only "who is this token" is consumed here; account
// management lives entirely with the collaborator.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chat-sync/internal/models"
)

var ErrUnauthorized = errors.New("invalid token")

// Provider exposes the current authenticated user.
type Provider interface {
	CurrentUser(ctx context.Context, token string) (models.UserProfile, error)
}

// Client is an HTTP Provider backed by the auth service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs the auth client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// CurrentUser validates the bearer token and returns the user's profile.
func (c *Client) CurrentUser(ctx context.Context, token string) (models.UserProfile, error) {
	if token == "" {
		return models.UserProfile{}, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/users/me", nil)
	if err != nil {
		return models.UserProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("auth service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.UserProfile{}, ErrUnauthorized
	default:
		return models.UserProfile{}, fmt.Errorf("auth service: unexpected status %d", resp.StatusCode)
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("auth service: decode: %w", err)
	}
	if profile.UserID == "" {
		return models.UserProfile{}, ErrUnauthorized
	}
	return profile, nil
}

// Static is a Provider returning a fixed profile regardless of token. Used in
// tests and for pre-resolved connections.
type Static struct {
	Profile models.UserProfile
}

func (s Static) CurrentUser(ctx context.Context, token string) (models.UserProfile, error) {
	return s.Profile, nil
}
