// Package ebird resolves hotspot names by scraping eBird hotspot pages.
package ebird

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/ebird-barchart/internal/observability"
)

// DefaultHotspotURL is the base of eBird's public hotspot pages.
const DefaultHotspotURL = "https://ebird.org/hotspot"

// ErrNameNotFound is returned when a hotspot page has no heading to take the
// name from.
var ErrNameNotFound = errors.New("hotspot name not found")

// Client implements domain.HotspotNamer by fetching <baseURL>/<locationID> and
// reading the page's first <h1>.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an eBird hotspot page client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// HotspotName fetches the hotspot page for locationID and returns its title.
func (c *Client) HotspotName(ctx context.Context, locationID string) (string, error) {
	start := time.Now()
	name, err := c.fetchName(ctx, locationID)
	c.metrics.NameFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.NameLookups.WithLabelValues(observability.SourceEBird, observability.OutcomeError).Inc()
		return "", err
	}
	c.metrics.NameLookups.WithLabelValues(observability.SourceEBird, observability.OutcomeSuccess).Inc()
	c.logger.Debug("hotspot name fetched", "location_id", locationID, "name", name)
	return name, nil
}

func (c *Client) fetchName(ctx context.Context, locationID string) (string, error) {
	u := c.baseURL + "/" + url.PathEscape(locationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hotspot page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ebird hotspot page %s: status %d: %s", locationID, resp.StatusCode, body)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse hotspot page: %w", err)
	}

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrNameNotFound, locationID)
	}
	return name, nil
}
