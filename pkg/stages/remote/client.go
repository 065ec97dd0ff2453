// Package remote implements the stage collaborator interfaces as HTTP
// clients against the deployed segmenter, detector, encoder, transcriber,
// and telemetry services. Every call carries its own bounded timeout.
package remote

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "time"
)

type client struct {
    http    *http.Client
    baseURL string
    timeout time.Duration
}

func newClient(baseURL string, timeout time.Duration) client {
    return client{http: &http.Client{}, baseURL: baseURL, timeout: timeout}
}

// postJSON sends body as JSON and decodes the response into out. Non-2xx
// responses are returned as errors with the status and a response excerpt.
func (c client) postJSON(ctx context.Context, path string, body, out any) error {
    if c.baseURL == "" {
        return errUnconfigured
    }
    ctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()

    raw, err := json.Marshal(body)
    if err != nil {
        return fmt.Errorf("encode request: %w", err)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")

    resp, err := c.http.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()

    if resp.StatusCode/100 != 2 {
        excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
        return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, excerpt)
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

func (c client) getJSON(ctx context.Context, path string, out any) error {
    if c.baseURL == "" {
        return errUnconfigured
    }
    ctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
    if err != nil {
        return err
    }
    resp, err := c.http.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode/100 != 2 {
        excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
        return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, excerpt)
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

var errUnconfigured = errors.New("collaborator URL not configured")

// IsUnconfigured reports whether err means the collaborator has no endpoint
// configured, which callers treat as "degrade, do not retry".
func IsUnconfigured(err error) bool { return errors.Is(err, errUnconfigured) }
