package pitchsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoAuthedNoSession(t *testing.T) {
	t.Parallel()

	client := newTestClient(newMemStore(), "http://unused.invalid")
	_, _, err := client.doAuthed(context.Background(), testRequest([]string{"/op"}, client.endpoints.Auth))
	require.ErrorIs(t, err, ErrNoSession)
}

// authBackend fakes the API: /api/auth/refresh rotates tokens, everything
// else demands the current access token.
type authBackend struct {
	t *testing.T

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshCalls int
	failRefresh  bool
	alwaysReject bool
	rotations    int
}

func (b *authBackend) handler(newAccess func(generation int) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if r.URL.Path == "/api/auth/refresh" {
			b.refreshCalls++
			if b.failRefresh {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"invalid_grant"}`)
				return
			}

			var body struct {
				RefreshToken string `json:"refresh_token"`
			}
			require.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(b.t, b.refreshToken, body.RefreshToken)

			b.rotations++
			b.accessToken = newAccess(b.rotations)
			b.refreshToken = fmt.Sprintf("refresh-%d", b.rotations)
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  b.accessToken,
				"refresh_token": b.refreshToken,
				"expires_in":    900,
			})
			return
		}

		if b.alwaysReject || r.Header.Get("Authorization") != "Bearer "+b.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	})
}

func TestDoAuthedReactiveRefresh(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	stale := loggedIn(t, store, "user-1")

	backend := &authBackend{t: t, accessToken: "server-side-rotated", refreshToken: stale.RefreshToken}
	server := httptest.NewServer(backend.handler(func(gen int) string {
		return mintToken(t, "user-1", time.Hour)
	}))
	defer server.Close()

	client := newTestClient(store, server.URL)
	resp, body, err := client.doAuthed(context.Background(),
		testRequest([]string{"/op"}, client.endpoints.Auth))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.Equal(t, 1, backend.refreshCalls)

	// The stored pair must equal the refreshed pair.
	cred, ok := store.Credential(context.Background())
	require.True(t, ok)
	require.Equal(t, backend.accessToken, cred.AccessToken)
	require.Equal(t, "refresh-1", cred.RefreshToken)
}

func TestDoAuthedSecond401ClearsSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	stale := loggedIn(t, store, "user-1")

	backend := &authBackend{
		t:            t,
		refreshToken: stale.RefreshToken,
		alwaysReject: true, // even refreshed tokens get 401
	}
	server := httptest.NewServer(backend.handler(func(gen int) string {
		return mintToken(t, "user-1", time.Hour)
	}))
	defer server.Close()

	client := newTestClient(store, server.URL)
	_, _, err := client.doAuthed(context.Background(),
		testRequest([]string{"/op"}, client.endpoints.Auth))
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, 1, backend.refreshCalls, "exactly one refresh, no loop")

	_, ok := store.Credential(context.Background())
	require.False(t, ok, "credentials must be cleared")
}

func TestDoAuthedRefreshFailureClearsSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	stale := loggedIn(t, store, "user-1")

	backend := &authBackend{
		t:            t,
		accessToken:  "rotated-away", // stored token gets 401
		refreshToken: stale.RefreshToken,
		failRefresh:  true,
	}
	server := httptest.NewServer(backend.handler(nil))
	defer server.Close()

	client := newTestClient(store, server.URL)
	_, _, err := client.doAuthed(context.Background(),
		testRequest([]string{"/op"}, client.endpoints.Auth))
	require.ErrorIs(t, err, ErrSessionExpired)

	_, ok := store.Credential(context.Background())
	require.False(t, ok)
}

func TestDoAuthedProactiveRefresh(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	// Expires within the 5 minute buffer: refresh should happen up front.
	nearExpiry := Credential{
		AccessToken:  mintToken(t, "user-1", time.Minute),
		RefreshToken: "refresh-0",
	}
	store.SaveCredential(context.Background(), nearExpiry)

	backend := &authBackend{t: t, refreshToken: "refresh-0"}
	server := httptest.NewServer(backend.handler(func(gen int) string {
		return mintToken(t, "user-1", time.Hour)
	}))
	defer server.Close()

	client := newTestClient(store, server.URL)
	resp, _, err := client.doAuthed(context.Background(),
		testRequest([]string{"/op"}, client.endpoints.Auth))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, backend.refreshCalls)
}

func TestDoAuthedProactiveRefreshFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	nearExpiry := Credential{
		AccessToken:  mintToken(t, "user-1", time.Minute),
		RefreshToken: "refresh-0",
	}
	store.SaveCredential(context.Background(), nearExpiry)

	// Refresh endpoint is down, but the stale token is still accepted.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" || r.URL.Path == "/auth/refresh" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(t, "Bearer "+nearExpiry.AccessToken, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	client := newTestClient(store, server.URL)
	resp, _, err := client.doAuthed(context.Background(),
		testRequest([]string{"/op"}, client.endpoints.Auth))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshIsSingleFlight(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	stale := Credential{
		AccessToken:  mintToken(t, "user-1", time.Minute),
		RefreshToken: "refresh-0",
	}
	store.SaveCredential(context.Background(), stale)

	var refreshCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
			time.Sleep(50 * time.Millisecond) // widen the race window
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  mintToken(t, "user-1", time.Hour),
				"refresh_token": "refresh-next",
			})
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	client := newTestClient(store, server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.refreshCredential(context.Background(), stale)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	// Callers queued behind the first refresh must adopt its result.
	require.Equal(t, int32(1), refreshCalls.Load())
}
