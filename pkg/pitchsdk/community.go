package pitchsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

var (
	likePaths     = []string{"/api/v1/likes"}
	favoritePaths = []string{"/api/v1/favorites"}
	historyPaths  = []string{"/api/v1/watch-history"}
)

// ToggleVideoLike flips the like state of a video and returns the new state
// as the server settled it. On success the per-user local liked set is
// updated to match.
func (c *Client) ToggleVideoLike(ctx context.Context, videoID string) (bool, error) {
	liked, err := c.toggle(ctx, likePaths, videoID, "liked")
	if err != nil {
		return false, err
	}

	if owner := c.subject(ctx); owner != "" {
		set := c.store.LikedVideos(ctx, owner)
		if liked {
			set[videoID] = true
		} else {
			delete(set, videoID)
		}
		c.store.SaveLikedVideos(ctx, owner, set)
	}
	return liked, nil
}

// ToggleVideoFavorite flips the favorite state of a video, mirroring the
// result into the per-user local favorited set.
func (c *Client) ToggleVideoFavorite(ctx context.Context, videoID string) (bool, error) {
	favorited, err := c.toggle(ctx, favoritePaths, videoID, "favorited")
	if err != nil {
		return false, err
	}

	if owner := c.subject(ctx); owner != "" {
		set := c.store.FavoriteVideos(ctx, owner)
		if favorited {
			set[videoID] = true
		} else {
			delete(set, videoID)
		}
		c.store.SaveFavoriteVideos(ctx, owner, set)
	}
	return favorited, nil
}

// LikedVideoIDs returns the locally tracked liked-video IDs for the current
// user, sorted for stable output. Empty when no session is stored.
func (c *Client) LikedVideoIDs(ctx context.Context) []string {
	return c.localIDs(ctx, c.store.LikedVideos)
}

// FavoriteVideoIDs returns the locally tracked favorited-video IDs for the
// current user.
func (c *Client) FavoriteVideoIDs(ctx context.Context) []string {
	return c.localIDs(ctx, c.store.FavoriteVideos)
}

// VideoStats returns the public counters for a video.
func (c *Client) VideoStats(ctx context.Context, videoID string) (*VideoStats, error) {
	resp, body, err := c.doAuthed(ctx, request{
		method:       http.MethodGet,
		paths:        []string{"/api/v1/videos/" + url.PathEscape(videoID) + "/stats"},
		bases:        c.endpoints.Community,
		timeout:      c.timeouts.Community,
		limiter:      c.generalLimiter,
		userIDHeader: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var stats VideoStats
	if err := decodeJSON(body, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// WatchHistory returns one page of the viewing history.
func (c *Client) WatchHistory(ctx context.Context, page, pageSize int) ([]WatchEntry, error) {
	query := "?page=" + strconv.Itoa(page) + "&page_size=" + strconv.Itoa(pageSize)
	paths := make([]string, len(historyPaths))
	for i, p := range historyPaths {
		paths[i] = p + query
	}

	resp, body, err := c.doAuthed(ctx, request{
		method:       http.MethodGet,
		paths:        paths,
		bases:        c.endpoints.Community,
		timeout:      c.timeouts.Community,
		limiter:      c.generalLimiter,
		userIDHeader: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var entries []WatchEntry
	if err := decodeJSON(body, &entries); err == nil {
		return entries, nil
	}

	var wrapped struct {
		Items []WatchEntry `json:"items"`
	}
	if err := decodeJSON(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Items, nil
}

// toggle posts {video_id} and reads back the named boolean field.
func (c *Client) toggle(ctx context.Context, paths []string, videoID, field string) (bool, error) {
	body, err := json.Marshal(map[string]string{"video_id": videoID})
	if err != nil {
		return false, err
	}

	resp, respBody, err := c.doAuthed(ctx, request{
		method:       http.MethodPost,
		paths:        paths,
		bases:        c.endpoints.Community,
		body:         body,
		timeout:      c.timeouts.Community,
		limiter:      c.generalLimiter,
		userIDHeader: true,
	})
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return false, parseAPIError(resp.StatusCode, respBody)
	}

	var state map[string]json.RawMessage
	if err := decodeJSON(respBody, &state); err != nil {
		return false, err
	}
	raw, ok := state[field]
	if !ok {
		return false, fmt.Errorf("%w: missing %q field", ErrMalformedResponse, field)
	}
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return value, nil
}

func (c *Client) localIDs(ctx context.Context, read func(context.Context, string) map[string]bool) []string {
	owner := c.subject(ctx)
	if owner == "" {
		return nil
	}

	set := read(ctx, owner)
	ids := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
