// Package adzuna fetches job offers from the Adzuna public search API.
package adzuna

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/fetch"
	"github.com/jonathan/job-aggregator/internal/logging"
	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

const (
	DefaultBaseURL = "https://api.adzuna.com/v1/api/jobs"
	pageSize       = 50
	defaultPages   = 3
	maxAttempts    = 4
	httpTimeout    = 15 * time.Second
)

// ErrMissingCredentials is returned when app id or key is not configured.
var ErrMissingCredentials = errors.New("adzuna app id and key are required")

// Config configures the connector.
type Config struct {
	Name     string
	AppID    string
	AppKey   string
	Country  string // "fr", "gb", "us", ...
	BaseURL  string
	MaxPages int
	// InitialBackoff is the first retry delay; tests shrink it.
	InitialBackoff time.Duration
}

// Connector pages through Adzuna search results.
type Connector struct {
	cfg    Config
	logger *logging.Logger
}

// New builds the connector, filling defaults.
func New(cfg Config, logger *logging.Logger) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = "fr"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultPages
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.Name == "" {
		cfg.Name = types.PlatformAdzuna
	}
	return &Connector{cfg: cfg, logger: logging.OrNop(logger).With("connector", cfg.Name)}
}

func (c *Connector) Name() string     { return c.cfg.Name }
func (c *Connector) Platform() string { return types.PlatformAdzuna }

// Fetch retrieves up to q.Limit offers, stopping at the first short page.
func (c *Connector) Fetch(ctx context.Context, q connectors.Query) ([]raw.Record, error) {
	if c.cfg.AppID == "" || c.cfg.AppKey == "" {
		return nil, ErrMissingCredentials
	}

	var out []raw.Record
	for page := 1; page <= c.cfg.MaxPages; page++ {
		batch, err := c.fetchPage(ctx, q, page)
		if err != nil {
			return nil, fmt.Errorf("adzuna page %d: %w", page, err)
		}
		out = append(out, batch...)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if len(batch) < pageSize {
			break
		}
	}
	return connectors.Truncate(out, q.Limit), nil
}

func (c *Connector) fetchPage(ctx context.Context, q connectors.Query, page int) ([]raw.Record, error) {
	params := url.Values{}
	params.Set("app_id", c.cfg.AppID)
	params.Set("app_key", c.cfg.AppKey)
	params.Set("results_per_page", strconv.Itoa(pageSize))
	params.Set("what", q.Keywords)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("sort_by", "date")
	reqURL := fmt.Sprintf("%s/%s/search/%d?%s", c.cfg.BaseURL, c.cfg.Country, page, params.Encode())

	opts := &fetch.Options{
		Timeout: httpTimeout,
		Headers: map[string]string{"Accept": "application/json"},
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff

	attempt := 0
	result, err := backoff.Retry(ctx, func() (*fetch.Result, error) {
		attempt++
		res, err := fetch.URL(ctx, reqURL, opts)
		if err == nil {
			return res, nil
		}
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) && fetchErr.Retryable() {
			c.logger.Warn("adzuna request failed, retrying", "page", page, "attempt", attempt, "status", fetchErr.StatusCode)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
	if err != nil {
		return nil, err
	}

	doc, err := raw.Decode(result.Body)
	if err != nil {
		return nil, err
	}
	body, ok := raw.FromAny(doc)
	if !ok {
		return nil, fmt.Errorf("unexpected adzuna response shape")
	}
	return raw.Records(body.Slice("results")), nil
}
