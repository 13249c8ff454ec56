// Package transport talks to the government endpoints. Every client shares the same
// HTTP core so that status codes map to the same error kinds whatever the profile.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/logger"
	"github.com/google/uuid"
)

// CorrelationHeader is set on every outbound request.
const CorrelationHeader = "X-Correlation-ID"

// maxResponseSize bounds what is read from an upstream response.
const maxResponseSize = 32 << 20

// Doer sends HTTP requests; satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one outbound call.
type Request struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
	Header      http.Header
}

// Response is a successful (HTTP 200) upstream answer.
type Response struct {
	Body        []byte
	ContentType string
}

// Client is the HTTP core shared by the endpoint clients.
type Client struct {
	name   string
	doer   Doer
	logger *slog.Logger
}

// NewClient builds a core for the named upstream with its own request timeout.
func NewClient(logger *slog.Logger, name string, timeout time.Duration) *Client {
	return &Client{
		name:   name,
		doer:   &http.Client{Timeout: timeout},
		logger: logger.With("upstream", name),
	}
}

// WithDoer returns a copy of c sending requests through d.
func (c *Client) WithDoer(d Doer) *Client {
	clone := *c
	clone.doer = d
	return &clone
}

// HTTPClient returns the underlying *http.Client, or nil when a custom Doer is set.
func (c *Client) HTTPClient() *http.Client {
	hc, _ := c.doer.(*http.Client)
	return hc
}

// Do sends r and maps the upstream status to an error kind:
// 204 is a rate limit, 400 a business error quoting the body, 401 and 403 an auth
// failure, anything else (including timeouts and network errors) a transport failure.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return nil, shared.NewError(shared.KindConfiguration, "invalid "+c.name+" request", err)
	}
	for k, values := range r.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	correlationID := logger.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	req.Header.Set(CorrelationHeader, correlationID)

	log := c.logger.With("correlation_id", correlationID, "method", r.Method)
	start := time.Now()

	resp, err := c.doer.Do(req)
	if err != nil {
		log.Error("Failed to reach upstream", "error", err)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, shared.NewError(shared.KindTransport, c.name+" request timed out", err)
		}
		return nil, shared.NewError(shared.KindTransport, c.name+" is unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		log.Error("Failed to read upstream response", "status", resp.StatusCode, "error", err)
		return nil, shared.NewError(shared.KindTransport, "failed to read "+c.name+" response", err)
	}
	log.Debug("Upstream call completed", "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		return &Response{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
	case resp.StatusCode == http.StatusNoContent:
		return nil, shared.NewError(shared.KindRateLimit, c.name+" asked to try again later", nil)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, shared.NewError(shared.KindUpstreamBusiness, verbatim(body, resp.Status), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, shared.NewError(shared.KindAuth, fmt.Sprintf("%s rejected the credentials (%s)", c.name, resp.Status), nil)
	default:
		log.Warn("Unexpected upstream status", "status", resp.StatusCode)
		return nil, shared.NewError(shared.KindTransport, fmt.Sprintf("%s answered %s", c.name, resp.Status), nil)
	}
}

func verbatim(body []byte, fallback string) string {
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fallback
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
