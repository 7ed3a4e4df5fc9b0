package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"weatherpush.app/config"
	"weatherpush.app/errors"
)

// HTTPWebhookProvider implements WebhookProvider using a bounded-timeout
// HTTP client. Delivery is best-effort; callers decide whether a failure
// matters.
type HTTPWebhookProvider struct {
	client *http.Client
}

// NewHTTPWebhookProvider creates a new webhook provider
func NewHTTPWebhookProvider(config *config.WebhookConfig) *HTTPWebhookProvider {
	return &HTTPWebhookProvider{
		client: &http.Client{Timeout: config.Timeout()},
	}
}

// Post sends the payload as JSON to the given URL
func (p *HTTPWebhookProvider) Post(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewWebhookError("failed to encode webhook payload", err)
	}

	resp, err := p.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.NewWebhookError("failed to post webhook", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewWebhookError(fmt.Sprintf("webhook returned status code %d", resp.StatusCode), nil)
	}

	return nil
}
