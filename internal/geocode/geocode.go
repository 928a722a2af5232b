// Package geocode provides best-effort reverse geocoding via a Nominatim
// endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/pkg/logger"
	"github.com/civicpulse/engagement-platform/pkg/metrics"
)

// Client resolves coordinates to display addresses. Every failure mode
// collapses to absent so the dialogue is never blocked on geocoding.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// New creates a geocoding client. An empty baseURL yields a client that
// always reports absent.
func New(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     log,
	}
}

// ReverseGeocode resolves a coordinate pair to an address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, bool) {
	if c.baseURL == "" {
		return "", false
	}

	start := time.Now()
	addr, ok := c.reverse(ctx, lat, lng)

	status := "ok"
	if !ok {
		status = "absent"
	}
	metrics.GeocodeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return addr, ok
}

func (c *Client) reverse(ctx context.Context, lat, lng float64) (string, bool) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "engagement-platform/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("reverse geocoding failed", zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("reverse geocoding returned non-OK status", zap.Int("status", resp.StatusCode))
		return "", false
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Warn("reverse geocoding response malformed", zap.Error(err))
		return "", false
	}

	if body.DisplayName == "" {
		return "", false
	}
	return body.DisplayName, true
}
