// Package enrich backfills document metadata from an external scraper service.
package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/config"
	"github.com/meghashyamc/linkindex/logger"
)

const maxResponseBytes = 4 << 20

// Metadata holds whatever the scraper found. Missing fields are nil.
type Metadata struct {
	Title       *string
	Description *string
	Favicon     *string
}

type Enricher interface {
	Enrich(ctx context.Context, pageURL string) (*Metadata, error)
}

// New returns a scraper client, or a no-op enricher when no scraper URL is configured.
func New(logger logger.Logger, cfg *config.Config) Enricher {
	if strings.TrimSpace(cfg.GetEnrichmentURL()) == "" {
		logger.Info("enrichment disabled, no scraper url configured")
		return Noop{}
	}

	return NewClient(logger, cfg.GetEnrichmentURL(), cfg.GetEnrichmentTimeout())
}

type Noop struct{}

func (Noop) Enrich(context.Context, string) (*Metadata, error) {
	return &Metadata{}, nil
}

// Client calls GET <baseURL><escaped page url> and expects the scraper's JSON envelope.
type Client struct {
	logger     logger.Logger
	baseURL    string
	httpClient *http.Client
}

var _ Enricher = (*Client)(nil)

func NewClient(logger logger.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type scraperResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Error   string `json:"error"`
	Results struct {
		Title        []string `json:"title"`
		Descriptions []string `json:"descriptions"`
		Favicon      []string `json:"favicon"`
	} `json:"results"`
}

func (c *Client) Enrich(ctx context.Context, pageURL string) (*Metadata, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.QueryEscape(pageURL), nil)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrEnrichmentUnavailable, "failed to build scraper request: %s", err.Error())
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("scraper request failed", "url", pageURL, "err", err.Error())
		return nil, apperrors.Newf(apperrors.ErrEnrichmentUnavailable, "scraper request failed: %s", err.Error())
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.logger.Warn("scraper returned an unexpected status", "url", pageURL, "status", response.StatusCode)
		return nil, apperrors.Newf(apperrors.ErrEnrichmentUnavailable, "scraper returned status %d", response.StatusCode)
	}

	var body scraperResponse
	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBytes)).Decode(&body); err != nil {
		c.logger.Warn("failed to decode scraper response", "url", pageURL, "err", err.Error())
		return nil, apperrors.Newf(apperrors.ErrEnrichmentUnavailable, "failed to decode scraper response: %s", err.Error())
	}
	if !body.Success {
		c.logger.Warn("scraper reported a failure", "url", pageURL, "error", body.Error)
		return nil, apperrors.Newf(apperrors.ErrEnrichmentUnavailable, "scraper error: %s", body.Error)
	}

	return &Metadata{
		Title:       first(body.Results.Title),
		Description: first(body.Results.Descriptions),
		Favicon:     first(body.Results.Favicon),
	}, nil
}

func first(values []string) *string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return &trimmed
		}
	}
	return nil
}
