// Package proxy forwards opaque generation requests to the configured
// image-generation backend and relays its responses verbatim.
package proxy

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	errs "framegen/pkg/errors"
	"framegen/pkg/logger"
)

// Result carries the backend's verbatim response
type Result struct {
	Status int
	Body   []byte
}

// Err classifies an error status from the backend. The relay still
// passes Status and Body through unchanged; this only feeds logging
// and callers that want the classification.
func (r *Result) Err() error {
	if r.Status < 400 {
		return nil
	}
	return errs.WithCode(errs.ErrorTypeBackendRejected, r.Status,
		"backend rejected the request with status %d", r.Status)
}

// Client proxies request bodies to the generation backend
type Client struct {
	endpoint   string
	maxBody    int64
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a proxy client for the given backend endpoint. The timeout
// bounds the whole backend call; maxBody bounds accepted request bodies.
func New(endpoint string, timeout time.Duration, maxBody int64, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		endpoint: endpoint,
		maxBody:  maxBody,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// Endpoint returns the configured backend URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Forward sends body to the backend and returns its response verbatim.
// An empty or oversized body is rejected before any network call. A
// backend error status is still a successful relay: the caller passes
// Result.Status and Result.Body through unchanged. Only an unreachable
// or timed-out backend produces an error.
func (c *Client) Forward(body []byte) (*Result, error) {
	if len(body) == 0 {
		return nil, errs.New(errs.ErrorTypeClientInput, "request body is required")
	}
	if int64(len(body)) > c.maxBody {
		return nil, errs.WithCode(errs.ErrorTypeClientInput, http.StatusRequestEntityTooLarge,
			"request body exceeds %d bytes", c.maxBody)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, "failed to create backend request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("backend request failed", map[string]interface{}{
			"endpoint": c.endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		if isTimeout(err) {
			return nil, errs.New(errs.ErrorTypeBackendUnavailable, "backend timed out after %s", duration.Round(time.Second))
		}
		return nil, errs.New(errs.ErrorTypeBackendUnavailable, "cannot reach backend: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeBackendUnavailable, "failed to read backend response: %v", err)
	}

	c.logger.DebugWithFields("backend request completed", map[string]interface{}{
		"endpoint": c.endpoint,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return &Result{Status: resp.StatusCode, Body: respBody}, nil
}

// isTimeout distinguishes a timed-out backend from other transport failures
func isTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
