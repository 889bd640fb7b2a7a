package frames

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "framegen/pkg/errors"
	"framegen/pkg/logger"
)

// Client talks to the external captioned-frame search API and image CDN
type Client struct {
	httpClient     *http.Client
	searchEndpoint string
	imageEndpoint  string
	headers        map[string]string
	logger         logger.Logger
}

// NewClient creates a frame index client
func NewClient(searchEndpoint, imageEndpoint string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		searchEndpoint: searchEndpoint,
		imageEndpoint:  imageEndpoint,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "framegen/1.0",
		},
		logger: log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Search queries the frame index for screenshots matching the phrase
func (c *Client) Search(query string) ([]Frame, error) {
	endpoint := fmt.Sprintf("%s?q=%s", c.searchEndpoint, url.QueryEscape(query))

	resp, err := c.get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, "failed to read search response: %v", err)
	}

	var results []Frame
	if err := json.Unmarshal(body, &results); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse search response", map[string]interface{}{
			"query":        query,
			"status":       resp.StatusCode,
			"body_preview": preview,
		})
		return nil, errs.New(errs.ErrorTypeParsing, "failed to parse search response: %v", err)
	}

	return results, nil
}

// ImageURL constructs the deterministic CDN URL for a frame
func (c *Client) ImageURL(f Frame) string {
	return fmt.Sprintf("%s/%s/%d.jpg", c.imageEndpoint, url.PathEscape(f.Episode), f.Timestamp)
}

// DownloadFrame fetches the raw image bytes for a frame
func (c *Client) DownloadFrame(f Frame) ([]byte, error) {
	resp, err := c.get(c.ImageURL(f))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, "failed to read image body: %v", err)
	}

	return data, nil
}

// get performs a GET request with the configured headers and debug logging
func (c *Client) get(endpoint string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      endpoint,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps non-200 responses to classified errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.WithCode(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.WithCode(errs.ErrorTypeNetwork, resp.StatusCode, "rate limited by remote")
	case resp.StatusCode >= 500:
		return errs.WithCode(errs.ErrorTypeNetwork, resp.StatusCode, "server returned status %d", resp.StatusCode)
	default:
		return errs.WithCode(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status %d", resp.StatusCode)
	}
}
