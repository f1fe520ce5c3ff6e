package pitchsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

var (
	feedPaths        = []string{"/feed", "/api/feed"}
	createVideoPaths = []string{"/videos", "/api/videos"}
	myVideosPaths    = []string{"/videos/my", "/api/videos/my"}
)

// Feed returns one page of the pitch feed. An empty page is reported as
// ErrEmptyFeed: the backend means "nothing for you yet", and screens render
// that state differently from a loaded page.
func (c *Client) Feed(ctx context.Context, limit int) (*FeedPage, error) {
	query := "?limit=" + strconv.Itoa(limit)
	paths := make([]string, len(feedPaths))
	for i, p := range feedPaths {
		paths[i] = p + query
	}

	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   paths,
		bases:   c.endpoints.Video,
		timeout: c.timeouts.Video,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var page FeedPage
	if err := decodeJSON(body, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, ErrEmptyFeed
	}
	return &page, nil
}

// CreateVideo registers a new pitch and returns its direct-upload slot.
func (c *Client) CreateVideo(ctx context.Context, req CreateVideoRequest) (*VideoUpload, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, respBody, err := c.doAuthed(ctx, request{
		method:  http.MethodPost,
		paths:   createVideoPaths,
		bases:   c.endpoints.Video,
		body:    body,
		timeout: c.timeouts.Video,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	var upload VideoUpload
	if err := decodeJSON(respBody, &upload); err != nil {
		return nil, err
	}
	if upload.UploadURL == "" {
		return nil, fmt.Errorf("%w: missing upload URL", ErrMalformedResponse)
	}
	return &upload, nil
}

// Upload streams the video binary to the storage URL returned by
// CreateVideo. The URL targets third-party storage: no bearer token, no
// multi-host failover, and a much longer timeout than API calls get.
func (c *Client) Upload(ctx context.Context, uploadURL, contentType string, media io.Reader) error {
	if err := c.uploadLimiter.Wait(ctx); err != nil {
		return err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, c.timeouts.Upload)
	defer cancel()

	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPut, uploadURL, media)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// MyVideos lists the current user's own pitches, including ones still
// processing.
func (c *Client) MyVideos(ctx context.Context) ([]Video, error) {
	resp, body, err := c.doAuthed(ctx, request{
		method:  http.MethodGet,
		paths:   myVideosPaths,
		bases:   c.endpoints.Video,
		timeout: c.timeouts.Video,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var videos []Video
	if err := decodeJSON(body, &videos); err == nil {
		return videos, nil
	}

	// Some deployments wrap the list like the feed does.
	var page FeedPage
	if err := decodeJSON(body, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}
