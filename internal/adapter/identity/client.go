// Package identity wraps the identity collaborator: the standard sync
// surface plus user registration, which is the one call that issues a new
// canonical user id instead of accepting one.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/baron-png/quality-core/internal/adapter/collabhttp"
	"github.com/baron-png/quality-core/internal/port/collaborator"
	"github.com/baron-png/quality-core/internal/resilience"
)

// Client implements collaborator.Identity over HTTP.
type Client struct {
	*collabhttp.Client
}

// New creates an identity client. breaker may be nil.
func New(baseURL string, timeout time.Duration, breaker *resilience.Breaker) *Client {
	return &Client{Client: collabhttp.New("identity", baseURL, timeout, breaker)}
}

// registerResponse mirrors the identity service's envelope.
type registerResponse struct {
	User collaborator.RegisteredUser `json:"user"`
}

// Register creates a user in the identity service and returns its record.
// The returned id becomes the user's primary key everywhere else, so a
// response without one is treated as a protocol error.
func (c *Client) Register(ctx context.Context, req collaborator.RegisterRequest) (*collaborator.RegisteredUser, error) {
	var resp registerResponse
	if err := c.Post(ctx, "/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.User.ID == "" {
		return nil, fmt.Errorf("identity: register response missing user id")
	}
	return &resp.User, nil
}
