package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// Client delivers payloads to a webhook endpoint the way Jira does.
type Client struct {
	URL    string
	Secret string
	HTTP   *http.Client
}

func NewClient(url, secret string) *Client {
	return &Client{
		URL:    url,
		Secret: secret,
		HTTP:   &http.Client{Timeout: defaultTimeout},
	}
}

// Delivery is the outcome of one POST.
type Delivery struct {
	ID         string
	StatusCode int
	Body       map[string]any
	RawBody    string
}

// Accepted reports whether the endpoint took the delivery.
func (d *Delivery) Accepted() bool {
	return d.StatusCode == http.StatusOK || d.StatusCode == http.StatusCreated || d.StatusCode == http.StatusAccepted
}

// TraceID returns the trace id the intake assigned, if any.
func (d *Delivery) TraceID() string {
	id, _ := d.Body["trace_id"].(string)
	return id
}

// Send posts payload with a fresh delivery id and, if a secret is set, a
// signature header.
func (c *Client) Send(ctx context.Context, payload WebhookPayload) (*Delivery, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, deliveryID)
	if c.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(c.Secret, body))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	d := &Delivery{ID: deliveryID, StatusCode: resp.StatusCode, RawBody: string(raw)}
	_ = json.Unmarshal(raw, &d.Body)
	return d, nil
}

// CurlCommand renders an equivalent curl invocation for payload.
func (c *Client) CurlCommand(payload WebhookPayload) (string, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "curl -X POST %s \\\n", c.URL)
	b.WriteString("  -H \"Content-Type: application/json\" \\\n")
	fmt.Fprintf(&b, "  -H \"%s: $(uuidgen)\" \\\n", DeliveryHeader)
	if c.Secret != "" {
		fmt.Fprintf(&b, "  -H \"%s: %s\" \\\n", SignatureHeader, Sign(c.Secret, body))
	}
	fmt.Fprintf(&b, "  -d '%s'", strings.ReplaceAll(string(body), "'", `'\''`))
	return b.String(), nil
}
