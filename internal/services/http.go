package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpBackend is the shared JSON-over-HTTP transport for classifier-style
// services. The per-call deadline comes from the context; Timeout on the
// embedded client is only a safety net.
type httpBackend struct {
	baseURL string
	client  *http.Client
}

func newHTTPBackend(baseURL string, timeout time.Duration) httpBackend {
	return httpBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// postJSON sends in to path and decodes the response body into out.
func (b httpBackend) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calling %s: status %d: %s", path, resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
