// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Result is the uniform outcome of every remote operation. Exactly one of Data
// (when Success) or Message/Err (when not) is meaningful.
type Result[T any] struct {
	Success bool
	Data    T
	Message string
	Err     error
}

// Success wraps data in a successful Result.
func Success[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Failure wraps err in a failed Result with a user-facing message.
func Failure[T any](err error) Result[T] {
	return Result[T]{Message: UserMessage(err), Err: err}
}

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// Client is a typed wrapper over the game server's JSON API. It holds no session
// state of its own; every method is a single request.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  logrus.FieldLogger
}

// NewClient builds a Client. A nil tokens source sends unauthenticated requests.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type errorBody struct {
	Message string `json:"message"`
}

// do performs one request and decodes a JSON response into out (which may be nil).
// Transport failures become *ConnectionError, non-2xx statuses *ServerError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	fields := logrus.Fields{
		"op":         op,
		"method":     method,
		"path":       path,
		"request_id": requestID,
		"duration":   time.Since(start),
	}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("request failed")
		return &ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	fields["status"] = resp.StatusCode
	c.logger.WithFields(fields).Debug("request done")

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if jsonErr := json.Unmarshal(data, &eb); jsonErr != nil || eb.Message == "" {
			eb.Message = fmt.Sprintf("Error: %d", resp.StatusCode)
		}
		return &ServerError{Op: op, Status: resp.StatusCode, Message: eb.Message}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ConnectionError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// call runs do and folds the outcome into a Result.
func call[T any](ctx context.Context, c *Client, op, method, path string, body any) Result[T] {
	var data T
	if err := c.do(ctx, op, method, path, body, &data); err != nil {
		return Failure[T](err)
	}
	return Success(data)
}

// Empty is the payload type of operations that return nothing useful.
type Empty struct{}

// ErrNotAuthenticated is returned before any request when an operation needs a token.
var ErrNotAuthenticated = errors.New("not authenticated")
