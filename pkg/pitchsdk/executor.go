package pitchsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelpitch/reelpitch/pkg/httpx"
	"github.com/reelpitch/reelpitch/pkg/idx"
)

// retryableStatuses are soft failures: the same logical endpoint exists
// under multiple historical path prefixes and hosts, so a 404 means "not
// here", not "does not exist", and 502/503/504 mean this deployment is
// struggling while a sibling may not be. Anything else is a hard answer
// and short-circuits the candidate walk.
var retryableStatuses = map[int]bool{
	http.StatusNotFound:           true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// maxResponseBytes caps how much of a response body is read. Feed pages and
// user listings are small; anything bigger is a misbehaving endpoint.
const maxResponseBytes = 8 << 20

// request describes one logical API call before candidate expansion.
type request struct {
	method string
	paths  []string // ordered path variants, tried in order
	bases  []string // ordered base URLs, deduplicated before use
	body   []byte   // JSON body; empty means no body
	header http.Header

	timeout time.Duration
	limiter *httpx.Limiter

	// userIDHeader adds a User-ID header derived from the JWT subject
	// alongside the bearer token. Community endpoints require it.
	userIDHeader bool
}

// execute walks the candidate matrix path-major with bases inner: every base
// is tried for the first path variant before moving to the next variant.
// The first hard response wins; transport errors and retryable statuses move
// on to the next candidate. The response body is fully read and returned
// alongside the (already closed) response.
func (c *Client) execute(ctx context.Context, req request) (*http.Response, []byte, error) {
	if req.limiter != nil {
		if err := req.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	bases := dedupeBases(req.bases)
	if len(bases) == 0 {
		return nil, nil, fmt.Errorf("pitchsdk: no base URLs configured")
	}

	var (
		lastStatus int
		lastErr    error
		saw503     bool
	)

	for _, path := range req.paths {
		for _, base := range bases {
			resp, body, err := c.attempt(ctx, req, base+path)
			if err != nil {
				if ctx.Err() != nil {
					// The caller gave up; stop burning candidates.
					return nil, nil, ctx.Err()
				}
				c.logger.Debug("candidate failed", "url", base+path, "err", err)
				lastErr, lastStatus = err, 0
				continue
			}

			if retryableStatuses[resp.StatusCode] {
				c.logger.Debug("candidate soft-failed",
					"url", base+path, "status", resp.StatusCode)
				lastStatus, lastErr = resp.StatusCode, nil
				if resp.StatusCode == http.StatusServiceUnavailable {
					saw503 = true
				}
				continue
			}

			return resp, body, nil
		}
	}

	if saw503 {
		return nil, nil, &ServiceUnavailableError{Hosts: bases}
	}
	return nil, nil, &ExhaustedError{Hosts: bases, LastStatus: lastStatus, LastErr: lastErr}
}

// attempt issues one candidate request with its own timeout and returns the
// response with its body fully read and closed.
func (c *Client) attempt(ctx context.Context, req request, url string) (*http.Response, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	var body io.Reader
	if len(req.body) > 0 {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, url, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if len(req.body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", idx.New().String())
	for key, values := range req.header {
		for i, v := range values {
			if i == 0 {
				httpReq.Header.Set(key, v)
			} else {
				httpReq.Header.Add(key, v)
			}
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp, respBody, nil
}

// dedupeBases drops empty and repeated entries while preserving order, and
// normalizes away trailing slashes so base+path concatenation stays clean.
func dedupeBases(bases []string) []string {
	out := make([]string, 0, len(bases))
	seen := make(map[string]bool, len(bases))
	for _, base := range bases {
		base = strings.TrimSuffix(strings.TrimSpace(base), "/")
		if base == "" || seen[base] {
			continue
		}
		seen[base] = true
		out = append(out, base)
	}
	return out
}

// decodeJSON unmarshals a successful response body, mapping empty or
// non-JSON bodies to ErrMalformedResponse.
func decodeJSON(body []byte, target any) error {
	if len(body) == 0 {
		return ErrMalformedResponse
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
