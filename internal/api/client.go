// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/parser"
	"github.com/teammap/teammap/pkg/core"

	"github.com/peterstace/simplefeatures/geom"
)

// RosterPath is the team roster endpoint on the web server.
const RosterPath = "/api/v1/team/roster"

// maxBoundaryBytes caps a timezone boundary download.
const maxBoundaryBytes = 256 << 20

// ErrNoTimezoneSource is returned when every timezone boundary source failed.
var ErrNoTimezoneSource = errors.New("all timezone boundary sources failed")

// Client handles communication with the teammap web server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	parser     *parser.Parser
	logger     *slog.Logger
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		parser:     parser.NewParser(slog.Default()),
		logger:     slog.Default(),
	}
}

// NewFromConfig creates a client from the api config section.
func NewFromConfig(cfg config.APIConfig, logger *slog.Logger) *Client {
	c := New(cfg.ServerURL, cfg.APIKey)
	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	if logger != nil {
		c.logger = logger
		c.parser = parser.NewParser(logger)
	}
	return c
}

// Healthcheck checks if the web server is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchRoster downloads the team roster. Entries without an id or a usable
// position are skipped by the parser.
func (c *Client) FetchRoster(ctx context.Context) ([]core.Person, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+RosterPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return c.parser.ParseRoster(body)
}

// FetchTimezoneBoundaries tries each source once, in order, and returns the
// first non-empty feature collection with the source it came from. Sources
// are http(s) URLs or local file paths.
func (c *Client) FetchTimezoneBoundaries(ctx context.Context, sources []string) (geom.GeoJSONFeatureCollection, string, error) {
	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		fc, err := c.fetchBoundaries(ctx, src)
		if err != nil {
			c.logger.Warn("Timezone boundary source failed", "source", src, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}
		c.logger.Info("Loaded timezone boundaries", "source", src, "features", len(fc))
		return fc, src, nil
	}
	return nil, "", errors.Join(append([]error{ErrNoTimezoneSource}, errs...)...)
}

func (c *Client) fetchBoundaries(ctx context.Context, src string) (geom.GeoJSONFeatureCollection, error) {
	var data []byte
	var err error
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = c.download(ctx, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, err
	}

	var fc geom.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decoding feature collection: %w", err)
	}
	if len(fc) == 0 {
		return nil, errors.New("feature collection is empty")
	}
	return fc, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBoundaryBytes))
}
