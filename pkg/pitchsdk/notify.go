package pitchsdk

import (
	"context"
	"encoding/json"
	"net/http"
)

var notifyPaths = []string{"/notify", "/api/notify"}

// Notify asks the notification service to deliver a message to a user.
func (c *Client) Notify(ctx context.Context, req NotifyRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	resp, respBody, err := c.doAuthed(ctx, request{
		method:  http.MethodPost,
		paths:   notifyPaths,
		bases:   c.endpoints.Notify,
		body:    body,
		timeout: c.timeouts.Community,
		limiter: c.generalLimiter,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return parseAPIError(resp.StatusCode, respBody)
	}
	return nil
}
