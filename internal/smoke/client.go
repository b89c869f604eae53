package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnexpectedStatus is returned when a response status is not the expected one.
var ErrUnexpectedStatus = errors.New("unexpected status")

// client wraps http.Client with a base URL and an optional bearer token.
type client struct {
	base  string
	http  *http.Client
	token string
}

func newClient(base string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// withToken returns a copy that authenticates as token.
func (c *client) withToken(token string) *client {
	cp := *c
	cp.token = token
	return &cp
}

// do sends body as JSON and decodes a JSON response into out when the
// status is want. Extra headers come as key/value pairs.
func (c *client) do(ctx context.Context, method, path string, body, out any, want int, hdr ...string) (int, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if want != 0 && resp.StatusCode != want {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return resp.StatusCode, fmt.Errorf("%w: %s %s: got %d want %d: %s",
			ErrUnexpectedStatus, method, path, resp.StatusCode, want, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) get(ctx context.Context, path string, out any, want int) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, out, want)
	return err
}

func (c *client) post(ctx context.Context, path string, body, out any, want int, hdr ...string) error {
	_, err := c.do(ctx, http.MethodPost, path, body, out, want, hdr...)
	return err
}

func (c *client) delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent)
	return err
}
