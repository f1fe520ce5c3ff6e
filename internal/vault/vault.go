// Package vault is the on-device secret store. It persists the credential
// pair, per-user liked/favorited sets and a handful of session caches,
// sealed at rest, and mirrors the degradation rules the client relies on:
// reads never fail (they degrade to "absent"), writes are best effort.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/reelpitch/reelpitch/pkg/pitchsdk"
)

// ErrNotFound is returned by Secrets drivers for missing or unreadable keys.
var ErrNotFound = errors.New("vault: not found")

// Secrets is the low-level sealed key-value contract implemented by drivers.
type Secrets interface {
	Get(ctx context.Context, name string) ([]byte, error)

	// PutMany writes all entries atomically. A nil value deletes the key.
	PutMany(ctx context.Context, entries map[string][]byte) error

	Close() error
}

// Key names. Per-user data carries the owner as a suffix so sets survive
// logout/login cycles and never leak across accounts on a shared device.
const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyHomeHint     = "ui.home_hint_seen"
	keyChatCache    = "cache.chats"
	keyChatOwner    = "cache.chats_owner"
	keyFilterCache  = "cache.filters"
	keyFilterOwner  = "cache.filters_owner"

	prefixLiked    = "likes."
	prefixFavorite = "favorites."
)

// Vault exposes the typed store operations over a Secrets driver.
type Vault struct {
	secrets Secrets
	logger  *slog.Logger
}

func New(secrets Secrets, logger *slog.Logger) *Vault {
	return &Vault{secrets: secrets, logger: logger}
}

func (v *Vault) Close() error { return v.secrets.Close() }

// Credential returns the stored token pair. Any storage failure, and a pair
// with either half missing, reads as absent so the caller forces a fresh
// login instead of limping along with half a session.
func (v *Vault) Credential(ctx context.Context) (pitchsdk.Credential, bool) {
	access, err := v.secrets.Get(ctx, keyAccessToken)
	if err != nil {
		v.logMiss("access token", err)
		return pitchsdk.Credential{}, false
	}
	refresh, err := v.secrets.Get(ctx, keyRefreshToken)
	if err != nil {
		v.logMiss("refresh token", err)
		return pitchsdk.Credential{}, false
	}
	if len(access) == 0 || len(refresh) == 0 {
		return pitchsdk.Credential{}, false
	}

	return pitchsdk.Credential{
		AccessToken:  string(access),
		RefreshToken: string(refresh),
	}, true
}

// SaveCredential persists both tokens atomically. Failures are logged and
// swallowed: the caller already holds the tokens in memory for the current
// request, so a persistence miss only costs the next process start a login.
func (v *Vault) SaveCredential(ctx context.Context, cred pitchsdk.Credential) {
	err := v.secrets.PutMany(ctx, map[string][]byte{
		keyAccessToken:  []byte(cred.AccessToken),
		keyRefreshToken: []byte(cred.RefreshToken),
	})
	if err != nil {
		v.logger.Warn("failed to persist credential", "err", err)
	}
}

// ClearSession removes the token pair and the session-scoped caches.
// Per-user liked/favorited sets and the home hint flag survive: they are
// namespaced by user and meant to outlive logout/login cycles.
func (v *Vault) ClearSession(ctx context.Context) {
	err := v.secrets.PutMany(ctx, map[string][]byte{
		keyAccessToken:  nil,
		keyRefreshToken: nil,
		keyChatCache:    nil,
		keyChatOwner:    nil,
		keyFilterCache:  nil,
		keyFilterOwner:  nil,
	})
	if err != nil {
		v.logger.Warn("failed to clear session state", "err", err)
	}
}

// LikedVideos returns the liked-video ID set for owner. Missing or corrupt
// data degrades to an empty set.
func (v *Vault) LikedVideos(ctx context.Context, owner string) map[string]bool {
	return v.idSet(ctx, prefixLiked+owner)
}

func (v *Vault) SaveLikedVideos(ctx context.Context, owner string, ids map[string]bool) {
	v.saveIDSet(ctx, prefixLiked+owner, ids)
}

// FavoriteVideos returns the favorited-video ID set for owner.
func (v *Vault) FavoriteVideos(ctx context.Context, owner string) map[string]bool {
	return v.idSet(ctx, prefixFavorite+owner)
}

func (v *Vault) SaveFavoriteVideos(ctx context.Context, owner string, ids map[string]bool) {
	v.saveIDSet(ctx, prefixFavorite+owner, ids)
}

// ChatCache returns the cached conversation list, but only when it was
// written for the same owner. A stale owner marker reads as a miss.
func (v *Vault) ChatCache(ctx context.Context, owner string) ([]byte, bool) {
	marker, err := v.secrets.Get(ctx, keyChatOwner)
	if err != nil || string(marker) != owner {
		return nil, false
	}
	data, err := v.secrets.Get(ctx, keyChatCache)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (v *Vault) SaveChatCache(ctx context.Context, owner string, data []byte) {
	err := v.secrets.PutMany(ctx, map[string][]byte{
		keyChatCache: data,
		keyChatOwner: []byte(owner),
	})
	if err != nil {
		v.logger.Warn("failed to persist chat cache", "err", err)
	}
}

// FilterCache returns the cached discovery filters for owner.
func (v *Vault) FilterCache(ctx context.Context, owner string) ([]byte, bool) {
	marker, err := v.secrets.Get(ctx, keyFilterOwner)
	if err != nil || string(marker) != owner {
		return nil, false
	}
	data, err := v.secrets.Get(ctx, keyFilterCache)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (v *Vault) SaveFilterCache(ctx context.Context, owner string, data []byte) {
	err := v.secrets.PutMany(ctx, map[string][]byte{
		keyFilterCache: data,
		keyFilterOwner: []byte(owner),
	})
	if err != nil {
		v.logger.Warn("failed to persist filter cache", "err", err)
	}
}

// HomeHintSeen reports whether the first-run home hint was dismissed.
func (v *Vault) HomeHintSeen(ctx context.Context) bool {
	data, err := v.secrets.Get(ctx, keyHomeHint)
	return err == nil && string(data) == "1"
}

func (v *Vault) SetHomeHintSeen(ctx context.Context) {
	err := v.secrets.PutMany(ctx, map[string][]byte{keyHomeHint: []byte("1")})
	if err != nil {
		v.logger.Warn("failed to persist home hint flag", "err", err)
	}
}

func (v *Vault) idSet(ctx context.Context, key string) map[string]bool {
	data, err := v.secrets.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			v.logMiss(key, err)
		}
		return map[string]bool{}
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		v.logMiss(key, err)
		return map[string]bool{}
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (v *Vault) saveIDSet(ctx context.Context, key string, set map[string]bool) {
	ids := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}

	data, err := json.Marshal(ids)
	if err == nil {
		err = v.secrets.PutMany(ctx, map[string][]byte{key: data})
	}
	if err != nil {
		v.logger.Warn("failed to persist id set", "key", key, "err", err)
	}
}

func (v *Vault) logMiss(what string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	v.logger.Debug("vault read degraded to absent", "what", what, "err", err)
}
