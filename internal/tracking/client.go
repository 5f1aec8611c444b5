// Package tracking is the client of the reachout tracking service.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nbenliogludev/webagent/internal/action"
)

const (
	PathRecordReachout = "/record-reachout"
	PathDeleteReachout = "/delete-reachout"
	PathRecordResponse = "/record-response"
)

// StatusError is returned for any non-2xx answer from the service.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracking service %s returned %d: %s", e.Path, e.Code, e.Body)
}

type responseBody struct {
	action.Reachout
	Response string `json:"response"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Result is the status line and body of a successful call, kept for logging.
type Result struct {
	Code int
	Body string
}

func (c *Client) RecordReachout(ctx context.Context, r action.Reachout) (Result, error) {
	return c.post(ctx, PathRecordReachout, r)
}

func (c *Client) DeleteReachout(ctx context.Context, r action.Reachout) (Result, error) {
	return c.post(ctx, PathDeleteReachout, r)
}

func (c *Client) RecordResponse(ctx context.Context, r action.Reachout, response string) (Result, error) {
	return c.post(ctx, PathRecordResponse, responseBody{Reachout: r, Response: response})
}

func (c *Client) post(ctx context.Context, path string, body any) (Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	res := Result{Code: resp.StatusCode, Body: string(data)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, &StatusError{Path: path, Code: resp.StatusCode, Body: res.Body}
	}
	if readErr != nil {
		return res, fmt.Errorf("read %s response: %w", path, readErr)
	}
	return res, nil
}
