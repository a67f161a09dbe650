// Package sink posts debug event records to the log sink endpoint.
package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
)

// HTTPSink posts records as form-encoded requests.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink creates a sink for endpoint. A nil client gets a client with a
// ten second timeout.
func NewHTTPSink(endpoint string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSink{endpoint: endpoint, client: client}
}

// Send posts one record. Any non-2xx response is an error.
func (s *HTTPSink) Send(ctx context.Context, record tracking.SinkRecord) error {
	form := url.Values{}
	form.Set("event_name", record.EventName)
	form.Set("event_data", record.EventData)
	form.Set("page_url", record.PageURL)
	form.Set("token", record.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to sink: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sink responded with status %d", resp.StatusCode)
	}
	return nil
}
