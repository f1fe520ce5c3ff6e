/*
Package pitchsdk is the client for the ReelPitch backend services: auth and
users, pitch videos, community (likes, favorites, stats, watch history),
chat and notifications.

# Overview

The package is organized around a single Client that layers three concerns:

  - Resilient execution: every logical operation maps to an ordered set of
    path variants and an ordered set of base URLs. Candidates are walked
    path-major (all bases for one path variant, then the next variant),
    each with its own timeout. Transport errors and the retryable statuses
    404, 502, 503 and 504 skip to the next candidate; any other response
    wins immediately.
  - Token lifecycle: authenticated operations read the credential pair from
    the injected Store, refresh proactively when the access token is near
    expiry, and on a 401 refresh reactively exactly once before retrying.
    A failed refresh, or a second 401, clears the session.
  - Domain facades: Login, Register, Me, SearchUsers, Feed, CreateVideo,
    Upload, ToggleVideoLike, Conversations, SendMessage, Notify and
    friends. Facades normalize the response shapes the backend has shipped
    over time and classify failures; they never add retries of their own.

# Usage

	store := vault.New(secrets, logger) // implements pitchsdk.Store
	client := pitchsdk.New(pitchsdk.Config{
		Endpoints: pitchsdk.DefaultEndpoints(),
		Store:     store,
	})

	if err := client.Login(ctx, email, password); err != nil {
		// handle
	}

	page, err := client.Feed(ctx, 20)
	if errors.Is(err, pitchsdk.ErrEmptyFeed) {
		// render the "no pitches yet" state
	}

# Error Handling

Failures are classified, never raw:

  - ErrNoSession: no stored credential; send the user to login.
  - ErrSessionExpired: refresh failed or a retried request was still 401;
    the credential has been cleared.
  - *ServiceUnavailableError: a candidate answered 503 and nothing better
    was found.
  - *ExhaustedError: every candidate soft-failed; names the hosts tried.
  - *APIError: a hard HTTP failure with the server's message when present.
  - ErrMalformedResponse: the body was empty or not the expected JSON.

# Concurrency

A Client is safe for concurrent use. Refreshes are single-flight: when two
operations observe a stale token at once they share one refresh instead of
both spending the refresh token. The Store is last-writer-wins; per-user
liked/favorited sets are read-modify-write without versioning, so two
simultaneous toggles on the same video can race (the later write sticks).
*/
package pitchsdk
