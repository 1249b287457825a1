// Package collabhttp implements the collaborator sync contract over HTTP.
// One Client fronts one downstream service; a circuit breaker per client
// keeps a dead collaborator from stalling every provisioning request.
package collabhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/middleware"
	"github.com/baron-png/quality-core/internal/resilience"
)

// Client is a collaborator.Syncer backed by a remote HTTP service.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	breaker *resilience.Breaker
}

// New creates a sync client for one collaborator. breaker may be nil, in
// which case every call goes straight through.
func New(name, baseURL string, timeout time.Duration, breaker *resilience.Breaker) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// Name identifies the collaborator in logs and saga step names.
func (c *Client) Name() string { return c.name }

func (c *Client) SyncTenant(ctx context.Context, t tenant.Tenant) error {
	return c.Post(ctx, "/sync/tenants", t, nil)
}

func (c *Client) SyncRole(ctx context.Context, r role.Role) error {
	return c.Post(ctx, "/sync/roles", r, nil)
}

func (c *Client) SyncDepartment(ctx context.Context, d department.Department) error {
	return c.Post(ctx, "/sync/departments", d, nil)
}

func (c *Client) SyncUser(ctx context.Context, u user.User) error {
	return c.Post(ctx, "/sync/users", u, nil)
}

// Post sends a JSON payload to the collaborator and decodes the response
// into out when out is non-nil. Errors are mapped to domain sentinels so
// the saga executor can classify them: transport failures, circuit-open and
// 5xx responses are domain.ErrUnavailable (retryable); everything else is
// fatal.
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	do := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token := middleware.TokenFromContext(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", path, domain.ErrUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if err := classifyStatus(resp.StatusCode); err != nil {
			// Body is best-effort detail; collaborators are not required
			// to return structured errors.
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("%s returned %d (%s): %w", path, resp.StatusCode, bytes.TrimSpace(detail), err)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("%s: decode response: %w", path, err)
			}
		}
		return nil
	}

	if c.breaker == nil {
		err = do()
	} else {
		err = c.breaker.Execute(do)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = fmt.Errorf("%s: %w: %w", path, domain.ErrUnavailable, err)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

// classifyStatus maps an HTTP status to a domain sentinel, or nil for 2xx.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusConflict:
		return domain.ErrConflict
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrUnauthorized
	case status >= 500:
		return domain.ErrUnavailable
	default:
		return domain.ErrValidation
	}
}
