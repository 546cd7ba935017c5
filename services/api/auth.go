package apisvc

import (
	"context"
	"net/http"
)

type (
	credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	tokenPair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
)

// Login authenticates against the platform and installs the returned token
// pair on the session. The login endpoint is exempt from the 401 interception
// rule: a bad password must not trigger a refresh.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var pair tokenPair
	creds := credentials{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", creds, &pair); err != nil {
		return err
	}
	return c.session.SetTokens(pair.AccessToken, pair.RefreshToken)
}

// refreshToken exchanges the current refresh token for a new pair. Exempt from
// interception to avoid an infinite refresh loop on the refresh call itself.
func (c *Client) refreshToken(ctx context.Context) error {
	var pair tokenPair
	req := refreshRequest{RefreshToken: c.session.RefreshToken()}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", req, &pair); err != nil {
		return err
	}
	return c.session.SetTokens(pair.AccessToken, pair.RefreshToken)
}

// Logout clears the local auth state. Voluntary, unlike the forced variant.
func (c *Client) Logout() {
	c.session.Clear()
	if c.onLogout != nil {
		c.onLogout()
	}
}
