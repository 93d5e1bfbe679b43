package api

import (
	"context"
	"net/http"
)

// Credentials are posted to the upstream login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token   string `json:"token"`
	Account struct {
		Email   string `json:"email"`
		Area    string `json:"area"`
		OwnerID string `json:"owner_id"`
	} `json:"account"`
}

// Login exchanges credentials for a token. The caller stores the token in its session.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	payload, err := c.roundTrip(ctx, request{method: http.MethodPost, path: "/auth/login", payload: creds})
	if err != nil {
		return out, err
	}
	if err := decodeInto(payload, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Logout revokes the current token upstream and drops every cached read.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.roundTrip(ctx, request{method: http.MethodPost, path: "/auth/logout"}); err != nil {
		return err
	}
	c.cache.Clear()
	return nil
}
