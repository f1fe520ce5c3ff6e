package pitchsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var listUsersPaths = []string{"/api/users", "/users"}

// SearchUsers finds users matching query. Two tiers:
//
//  1. The dedicated search endpoint, under its historical path and
//     query-parameter spellings.
//  2. When tier one 404-exhausts (the deployment predates the search
//     endpoint), fetch the full listing and filter client-side with a
//     case-insensitive substring match over name, email, job and sector.
//
// A 503 at either tier is surfaced immediately: overload is not absence,
// and hammering an overloaded deployment with the full-listing fallback
// would make it worse.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	escaped := url.QueryEscape(query)
	searchPaths := []string{
		"/api/users/search?q=" + escaped,
		"/users/search?q=" + escaped,
		"/api/users?search=" + escaped,
	}

	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   searchPaths,
		bases:   c.endpoints.Auth,
		timeout: c.timeouts.Auth,
		limiter: c.generalLimiter,
	})
	switch {
	case err == nil && resp.StatusCode == http.StatusOK:
		return decodeUserList(body)
	case err == nil:
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.LastStatus != http.StatusNotFound {
		// ServiceUnavailableError, transport exhaustion, session errors:
		// all surface as-is, none of them mean "endpoint missing".
		return nil, err
	}

	users, err := c.listUsers(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]User, 0, len(users))
	for _, u := range users {
		if lowerContains(u.Name, query) ||
			lowerContains(u.Email, query) ||
			lowerContains(u.Job, query) ||
			lowerContains(u.Sector, query) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

// listUsers fetches the full user listing.
func (c *Client) listUsers(ctx context.Context) ([]User, error) {
	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   listUsersPaths,
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
	return decodeUserList(body)
}

// decodeUserList accepts the shapes the listing endpoint has shipped over
// time: a bare array, or an array wrapped under "users", "data" or "results".
func decodeUserList(body []byte) ([]User, error) {
	var bare []User
	if err := json.Unmarshal(body, &bare); err == nil {
		if bare == nil {
			bare = []User{}
		}
		return bare, nil
	}

	var wrapped struct {
		Users   []User `json:"users"`
		Data    []User `json:"data"`
		Results []User `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, list := range [][]User{wrapped.Users, wrapped.Data, wrapped.Results} {
		if list != nil {
			return list, nil
		}
	}
	return []User{}, nil
}
