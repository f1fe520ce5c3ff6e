package pitchsdk

import "context"

// Credential is the stored token pair. It is either fully present (both
// tokens) or fully absent; no operation persists one half without the other.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// Store is the client's view of on-device secure storage. Reads never fail:
// storage trouble degrades to "absent" so callers can force a fresh login.
// Writes are best effort: implementations log and swallow persistence
// failures because the caller already holds the data in memory.
//
// The production implementation lives in internal/vault; tests inject
// in-memory doubles.
type Store interface {
	// Credential returns the stored token pair, or ok=false when absent.
	Credential(ctx context.Context) (Credential, bool)

	// SaveCredential persists both tokens atomically.
	SaveCredential(ctx context.Context, cred Credential)

	// ClearSession removes the token pair and session-scoped caches while
	// preserving per-user liked/favorited sets.
	ClearSession(ctx context.Context)

	// LikedVideos returns the liked-video ID set for owner.
	LikedVideos(ctx context.Context, owner string) map[string]bool
	SaveLikedVideos(ctx context.Context, owner string, ids map[string]bool)

	// FavoriteVideos returns the favorited-video ID set for owner.
	FavoriteVideos(ctx context.Context, owner string) map[string]bool
	SaveFavoriteVideos(ctx context.Context, owner string, ids map[string]bool)

	// ChatCache returns the cached conversation list when it belongs to owner.
	ChatCache(ctx context.Context, owner string) ([]byte, bool)
	SaveChatCache(ctx context.Context, owner string, data []byte)
}
