package pitchsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	loginPaths        = []string{"/api/auth/login", "/auth/login"}
	registerPaths     = []string{"/api/users/register", "/users/register"}
	resetRequestPaths = []string{"/api/auth/password-reset", "/auth/password-reset"}
	resetConfirmPaths = []string{"/api/auth/password-reset/confirm", "/auth/password-reset/confirm"}
	mePaths           = []string{"/users/me", "/api/users/me"}
	interestsPaths    = []string{"/users/me/interests", "/api/users/me/interests"}
	discoveryPaths    = []string{"/users/me/discovery-preferences", "/api/users/me/discovery-preferences"}
)

// Login authenticates with email and password and persists the returned
// token pair. Invalid credentials surface as an APIError with a stable
// message regardless of which wording the backend used.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}

	resp, respBody, err := c.execute(ctx, request{
		method:  http.MethodPost,
		paths:   loginPaths,
		bases:   c.endpoints.Auth,
		body:    body,
		timeout: c.timeouts.Auth,
		limiter: c.authLimiter,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		if apiErr.Message == "" {
			apiErr.Message = "invalid email or password"
		}
		return apiErr
	}
	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp.StatusCode, respBody)
	}

	return c.adoptTokens(ctx, respBody)
}

// Register creates an account. When the backend responds with a token pair
// (most deployments log the user straight in) it is persisted; otherwise the
// caller should follow up with Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	body, err := json.Marshal(req.payload())
	if err != nil {
		return err
	}

	resp, respBody, err := c.execute(ctx, request{
		method:  http.MethodPost,
		paths:   registerPaths,
		bases:   c.endpoints.Auth,
		body:    body,
		timeout: c.timeouts.Auth,
		limiter: c.authLimiter,
	})
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		// Duplicate email and duplicate identity-provider conflicts arrive
		// with inconsistent server wording; pin one message for both.
		apiErr := parseAPIError(resp.StatusCode, respBody)
		apiErr.Message = "an account with this email already exists"
		return apiErr
	case resp.StatusCode >= 400:
		return parseAPIError(resp.StatusCode, respBody)
	}

	// Token pair is optional on register.
	var tokens tokenResponse
	if json.Unmarshal(respBody, &tokens) == nil && tokens.complete() {
		c.store.SaveCredential(ctx, Credential{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		})
	}
	return nil
}

// Logout clears the stored session. Revocation is local: the backend has no
// revoke endpoint, tokens simply age out server-side.
func (c *Client) Logout(ctx context.Context) {
	c.store.ClearSession(ctx)
}

// RequestPasswordReset asks the backend to send a reset code to email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return err
	}
	return c.unauthPost(ctx, resetRequestPaths, body)
}

// ConfirmPasswordReset completes a reset with the emailed code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	body, err := json.Marshal(map[string]string{
		"email":        email,
		"code":         code,
		"new_password": newPassword,
	})
	if err != nil {
		return err
	}
	return c.unauthPost(ctx, resetConfirmPaths, body)
}

// Me returns the current user's profile. When the canonical /users/me shape
// 404s on every host (older deployments only expose the identity-provider
// lookup) it falls back to /users/keycloak/{sub}.
func (c *Client) Me(ctx context.Context) (*User, error) {
	user, err := c.getUser(ctx, mePaths)
	if err == nil {
		return user, nil
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.LastStatus != http.StatusNotFound {
		return nil, err
	}

	sub := c.subject(ctx)
	if sub == "" {
		return nil, err
	}
	return c.getUser(ctx, []string{
		"/users/keycloak/" + url.PathEscape(sub),
		"/api/users/keycloak/" + url.PathEscape(sub),
	})
}

func (c *Client) getUser(ctx context.Context, paths []string) (*User, error) {
	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   paths,
		bases:   c.endpoints.Auth,
		timeout: c.timeouts.Auth,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var user User
	if err := decodeJSON(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Interests returns the current user's interest tags.
func (c *Client) Interests(ctx context.Context) ([]string, error) {
	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   interestsPaths,
		bases:   c.endpoints.Auth,
		timeout: c.timeouts.Auth,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return decodeStringList(body, "interests")
}

// SaveInterests replaces the current user's interest tags.
func (c *Client) SaveInterests(ctx context.Context, interests []string) error {
	body, err := json.Marshal(map[string][]string{"interests": interests})
	if err != nil {
		return err
	}
	return c.authedPut(ctx, interestsPaths, c.endpoints.Auth, body, c.timeouts.Auth)
}

// DiscoveryPreferences returns the current user's feed filters.
func (c *Client) DiscoveryPreferences(ctx context.Context) (*DiscoveryPreferences, error) {
	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   discoveryPaths,
		bases:   c.endpoints.Auth,
		timeout: c.timeouts.Auth,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var prefs DiscoveryPreferences
	if err := decodeJSON(body, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SaveDiscoveryPreferences replaces the current user's feed filters.
func (c *Client) SaveDiscoveryPreferences(ctx context.Context, prefs DiscoveryPreferences) error {
	body, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return c.authedPut(ctx, discoveryPaths, c.endpoints.Auth, body, c.timeouts.Auth)
}

// adoptTokens parses a token response and persists the pair.
func (c *Client) adoptTokens(ctx context.Context, body []byte) error {
	var tokens tokenResponse
	if err := decodeJSON(body, &tokens); err != nil {
		return err
	}
	if !tokens.complete() {
		return fmt.Errorf("%w: token pair incomplete", ErrMalformedResponse)
	}

	c.store.SaveCredential(ctx, Credential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
	return nil
}

func (c *Client) unauthPost(ctx context.Context, paths []string, body []byte) error {
	resp, respBody, err := c.execute(ctx, request{
		method:  http.MethodPost,
		paths:   paths,
		bases:   c.endpoints.Auth,
		body:    body,
		timeout: c.timeouts.Auth,
		limiter: c.authLimiter,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}
	return nil
}

func (c *Client) authedPut(ctx context.Context, paths, bases []string, body []byte, timeout time.Duration) error {
	resp, respBody, err := c.doAuthed(ctx, request{
		method:  http.MethodPut,
		paths:   paths,
		bases:   bases,
		body:    body,
		timeout: timeout,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}
	return nil
}

// decodeStringList accepts either a bare JSON array of strings or an object
// wrapping one under the given key.
func decodeStringList(body []byte, key string) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	raw, ok := wrapped[key]
	if !ok {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return list, nil
}

// lowerContains reports a case-insensitive substring match.
func lowerContains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
