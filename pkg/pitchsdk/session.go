package pitchsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reelpitch/reelpitch/pkg/jwtx"
)

var refreshPaths = []string{"/api/auth/refresh", "/auth/refresh"}

// doAuthed executes req with bearer attachment and the full token lifecycle:
//
//	read credential → proactive refresh if near expiry (best effort) →
//	attempt → on 401: one reactive refresh and one retry → on a second
//	401 or a failed refresh: clear the session and fail.
//
// Refresh calls go through the plain executor, never back through doAuthed,
// so the lifecycle cannot recurse into itself.
func (c *Client) doAuthed(ctx context.Context, req request) (*http.Response, []byte, error) {
	cred, ok := c.store.Credential(ctx)
	if !ok {
		return nil, nil, ErrNoSession
	}

	// Proactive refresh is an optimization, not a precondition: when it
	// fails we still attempt with the token we have. The server gets the
	// final say on whether it is stale.
	if jwtx.IsExpiringSoon(cred.AccessToken, c.expiryBuffer) {
		fresh, err := c.refreshCredential(ctx, cred)
		if err == nil {
			cred = fresh
		} else {
			c.logger.Debug("proactive refresh failed, attempting with current token", "err", err)
		}
	}

	resp, body, err := c.executeAs(ctx, req, cred)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, body, err
	}

	// Reactive path: the token was rejected. Refresh once and retry once.
	fresh, err := c.refreshCredential(ctx, cred)
	if err != nil {
		c.store.ClearSession(ctx)
		return nil, nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	resp, body, err = c.executeAs(ctx, req, fresh)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// A fresh token that still gets 401 means the session is dead
		// server-side. Stop here rather than loop refreshing forever.
		c.store.ClearSession(ctx)
		return nil, nil, ErrSessionExpired
	}

	return resp, body, nil
}

// executeAs runs req with cred's bearer token attached.
func (c *Client) executeAs(ctx context.Context, req request, cred Credential) (*http.Response, []byte, error) {
	header := http.Header{}
	for key, values := range req.header {
		header[key] = values
	}
	header.Set("Authorization", "Bearer "+cred.AccessToken)
	if req.userIDHeader {
		if claims := jwtx.Decode(cred.AccessToken); claims != nil && claims.Subject != "" {
			header.Set("User-ID", claims.Subject)
		}
	}

	req.header = header
	return c.execute(ctx, req)
}

// refreshCredential exchanges the refresh token for a new pair and persists
// it. Refreshes are single-flight: the mutex serializes them, and a caller
// that was queued behind another refresh adopts that refresh's result
// instead of spending its own refresh token use.
func (c *Client) refreshCredential(ctx context.Context, stale Credential) (Credential, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Someone else may have refreshed while we waited for the lock.
	if cred, ok := c.store.Credential(ctx); ok &&
		cred.AccessToken != stale.AccessToken &&
		!jwtx.IsExpiringSoon(cred.AccessToken, c.expiryBuffer) {
		return cred, nil
	}

	body, err := json.Marshal(map[string]string{"refresh_token": stale.RefreshToken})
	if err != nil {
		return Credential{}, err
	}

	resp, respBody, err := c.execute(ctx, request{
		method:  http.MethodPost,
		paths:   refreshPaths,
		bases:   c.endpoints.Auth,
		body:    body,
		timeout: c.timeouts.Auth,
		limiter: c.authLimiter,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("refresh request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		return Credential{}, fmt.Errorf("refresh rejected: %w", apiErr)
	}

	var tokens tokenResponse
	if err := decodeJSON(respBody, &tokens); err != nil {
		return Credential{}, err
	}
	if !tokens.complete() {
		return Credential{}, fmt.Errorf("refresh returned incomplete token pair")
	}

	fresh := Credential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}
	c.store.SaveCredential(ctx, fresh)
	return fresh, nil
}

// subject returns the JWT subject of the current access token, or "" when
// no session is stored.
func (c *Client) subject(ctx context.Context) string {
	cred, ok := c.store.Credential(ctx)
	if !ok {
		return ""
	}
	claims := jwtx.Decode(cred.AccessToken)
	if claims == nil {
		return ""
	}
	return claims.Subject
}
