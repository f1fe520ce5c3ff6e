package pitchsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoSession is returned when an authenticated operation is attempted
	// with no stored credential. Not retried; the caller should send the
	// user to login.
	ErrNoSession = errors.New("pitchsdk: no active session")

	// ErrSessionExpired is returned when a refresh failed or a retried
	// request still came back 401. The stored credential has already been
	// cleared by the time the caller sees this.
	ErrSessionExpired = errors.New("pitchsdk: session expired")

	// ErrEmptyFeed marks a feed response with zero items. The backend
	// treats this as "no content for you yet" rather than success.
	ErrEmptyFeed = errors.New("pitchsdk: feed has no content yet")

	// ErrMalformedResponse covers empty or non-JSON bodies where JSON was
	// expected. Callers surface a generic message instead of a parse error.
	ErrMalformedResponse = errors.New("pitchsdk: malformed server response")
)

// APIError is a classified, non-retryable HTTP failure (4xx other than 401,
// or 500) carrying the server-provided message when one was available.
// It never clears credentials.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pitchsdk: api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pitchsdk: api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ServiceUnavailableError means at least one candidate answered 503 and no
// candidate produced a usable response. 503 indicates overload rather than
// absence, so callers must not treat this like a missing endpoint.
type ServiceUnavailableError struct {
	Hosts []string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("pitchsdk: service unavailable (tried %s)", strings.Join(e.Hosts, ", "))
}

// ExhaustedError means every candidate soft-failed (timeout, connection
// error, or a retryable status) without any hard response.
type ExhaustedError struct {
	Hosts []string

	// LastStatus is the most recent retryable HTTP status seen, or 0 when
	// the final failure was a transport error.
	LastStatus int

	// LastErr is the most recent transport error, when there was one.
	LastErr error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("pitchsdk: all endpoints failed (tried %s)", strings.Join(e.Hosts, ", "))
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(": last status %d", e.LastStatus)
	}
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// parseAPIError builds an APIError from a hard error response, digging the
// human-readable message out of whichever shape the backend used.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Detail           string `json:"detail"`
		Code             string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = firstNonEmpty(payload.Code, payload.Error)
		apiErr.Message = firstNonEmpty(payload.Message, payload.ErrorDescription, payload.Detail)
		// Some endpoints put the message itself under "error".
		if apiErr.Message == "" && payload.Error != "" {
			apiErr.Message = payload.Error
		}
	}

	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
