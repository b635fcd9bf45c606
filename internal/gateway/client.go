package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"calendar-planner/internal/logger"
)

const (
	DefaultTimeout  = 10 * time.Second
	RequestIDHeader = "X-Request-ID"
)

// Client performs one HTTP call per logical operation against the planner backend.
// It holds no per-user state other than the optional bearer token.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	token      string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that sends "Authorization: Bearer <token>".
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Timeout is the per-call deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// WithHTTPClient swaps the transport, keeping the configured timeout.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	cp := *c
	if h.Timeout == 0 {
		h.Timeout = c.timeout
	}
	cp.httpClient = h
	return &cp
}

func userQuery(userID int64) url.Values {
	return url.Values{"user_id": []string{strconv.FormatInt(userID, 10)}}
}

// do sends the request and returns the body of a 2xx response. Non-2xx statuses
// and transport failures are mapped onto the error taxonomy.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, validationError(op, "encode request body", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: KindNetworkError, Op: op, Message: "build request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)

	log := logger.WithRequestID(ctx).With("op", op, "method", method, "path", path, "request_id", requestID)
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("gateway call failed", "error", err, "elapsed", time.Since(started))
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, err)
	}

	log.Debug("gateway call done", "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}
	return nil, statusError(op, resp.StatusCode, payload)
}

// ContextError maps a caller giving up on op onto the taxonomy, the same way a
// transport failure from that context would be.
func ContextError(op string, err error) error {
	return transportError(op, err)
}

func transportError(op string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Op: op, Message: "request timed out", Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Op: op, Message: "request timed out", Err: err}
	default:
		return &Error{Kind: KindNetworkError, Op: op, Message: "network error", Err: err}
	}
}

func statusError(op string, status int, body []byte) *Error {
	detail := serverDetail(body)
	e := &Error{Op: op, Status: status, Message: detail}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status >= 500:
		e.Kind = KindServerError
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		// The backend rejected the shape of what we sent.
		e.Kind = KindValidationError
	default:
		e.Kind = KindMalformedResponse
		if e.Message == "" {
			e.Message = fmt.Sprintf("unexpected status %d", status)
		}
	}
	return e
}

// serverDetail pulls a human-readable reason out of a FastAPI-style error body.
func serverDetail(body []byte) string {
	var envelope struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if s, ok := envelope.Detail.(string); ok {
		return s
	}
	return envelope.Message
}
