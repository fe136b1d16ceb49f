// Package board scrapes job cards from HTML search result pages.
//
// It targets boards such as Welcome to the Jungle whose result lists can be
// rendered either server-side (plain HTTP) or only in a browser (chromedp).
package board

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/fetch"
	"github.com/jonathan/job-aggregator/internal/logging"
	"github.com/jonathan/job-aggregator/internal/raw"
)

// DefaultSearchURL is the Welcome to the Jungle search template.
const DefaultSearchURL = "https://www.welcometothejungle.com/fr/jobs?query={keywords}&refinementList%5Boffices.country_code%5D%5B%5D=FR&refinementList%5Boffices.state%5D%5B%5D={location}&page={page}"

// Selectors tells the scraper where card fields live.
type Selectors struct {
	Cards    []string
	Title    []string
	Company  []string
	Location []string
	Contract []string
	Remote   []string
	Link     []string
}

// DefaultSelectors are tuned for Welcome to the Jungle and degrade to
// generic card markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Cards: []string{
			`[data-testid="search-results-list-item-wrapper"]`,
			`[data-testid="job-card"]`,
			`div[class*="JobCard"]`,
			`article`,
			`div[role="listitem"]`,
		},
		Title:    []string{`[data-testid="job-title"]`, "h3", "h2", "h4", ".job-title", `a[class*="title"]`},
		Company:  []string{`[data-testid="company-name"]`, ".company-name", `span[class*="company"]`, `div[class*="company"]`},
		Location: []string{`[data-testid="job-location"]`, ".location", `span[class*="location"]`, `div[class*="location"]`},
		Contract: []string{`[data-testid="job-contract"]`, `[class*="contract"]`},
		Remote:   []string{`[data-testid="job-remote"]`, `[class*="remote"]`},
		Link:     []string{`a[href*="/jobs/"]`, "a[href]"},
	}
}

// Config configures a board connector.
type Config struct {
	Name     string
	Platform string
	// SearchURL may contain {keywords}, {location} and {page} placeholders.
	SearchURL  string
	MaxPages   int
	PageDelay  time.Duration
	UseBrowser bool
	Selectors  Selectors
}

// Connector scrapes listing pages.
type Connector struct {
	cfg    Config
	logger *logging.Logger
	// pageFn is swapped in tests.
	pageFn func(ctx context.Context, url string, opts *fetch.Options) (string, error)
}

// New builds a board connector, filling defaults.
func New(cfg Config, logger *logging.Logger) *Connector {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.Platform == "" {
		cfg.Platform = fetch.DetectPlatform(cfg.SearchURL)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Platform
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if len(cfg.Selectors.Cards) == 0 {
		cfg.Selectors = DefaultSelectors()
	}
	return &Connector{
		cfg:    cfg,
		logger: logging.OrNop(logger).With("connector", cfg.Name),
		pageFn: fetch.Page,
	}
}

func (c *Connector) Name() string     { return c.cfg.Name }
func (c *Connector) Platform() string { return c.cfg.Platform }

// Fetch walks result pages until MaxPages, q.Limit, or an empty page. A
// failure on the first page fails the fetch; a later failure ends paging and
// keeps what was collected.
func (c *Connector) Fetch(ctx context.Context, q connectors.Query) ([]raw.Record, error) {
	opts := fetch.DefaultOptions()
	opts.UseBrowser = c.cfg.UseBrowser
	if c.cfg.UseBrowser {
		opts.WaitSelector = c.cfg.Selectors.Cards[0]
	}

	var out []raw.Record
	seen := make(map[string]bool)
	for page := 1; page <= c.cfg.MaxPages; page++ {
		if page > 1 {
			if err := connectors.Sleep(ctx, c.cfg.PageDelay); err != nil {
				return nil, err
			}
		}

		pageURL := c.searchURL(q, page)
		html, err := c.pageFn(ctx, pageURL, opts)
		if err != nil {
			if page == 1 || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("stopping pagination after page error", "page", page, "error", err)
			break
		}

		cards, err := ParseCards(html, pageURL, c.cfg.Selectors)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("parsed listing page", "page", page, "cards", len(cards))

		added := 0
		for _, card := range cards {
			key := card.String("source_url")
			if key == "" {
				key = card.String("title") + "|" + card.String("company_name")
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, card)
			added++
		}
		if added == 0 || (q.Limit > 0 && len(out) >= q.Limit) {
			break
		}
	}
	return connectors.Truncate(out, q.Limit), nil
}

func (c *Connector) searchURL(q connectors.Query, page int) string {
	r := strings.NewReplacer(
		"{keywords}", url.QueryEscape(q.Keywords),
		"{location}", url.QueryEscape(q.Location),
		"{page}", strconv.Itoa(page),
	)
	return r.Replace(c.cfg.SearchURL)
}

// ParseCards extracts one raw record per job card. Cards with neither a title
// nor a link are skipped. Links are resolved against pageURL.
func ParseCards(html, pageURL string, sel Selectors) ([]raw.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &fetch.Error{URL: pageURL, Message: "failed to parse HTML", Cause: err}
	}

	var cards *goquery.Selection
	for _, selector := range sel.Cards {
		if found := doc.Find(selector); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil, nil
	}

	out := make([]raw.Record, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		title := fetch.FirstText(card, sel.Title)
		link := fetch.FirstAttr(card, sel.Link, "href")
		if link == "" && goquery.NodeName(card) == "a" {
			link, _ = card.Attr("href")
		}
		if title == "" && link == "" {
			return
		}

		rec := raw.Record{
			"title":        title,
			"company_name": fetch.FirstText(card, sel.Company),
			"location":     fetch.FirstText(card, sel.Location),
			"source_url":   fetch.ResolveURL(pageURL, link),
		}
		if contract := fetch.FirstText(card, sel.Contract); contract != "" {
			rec["job_type"] = contract
		}
		if remote := fetch.FirstText(card, sel.Remote); remote != "" {
			rec["work_mode"] = remote
		}
		if posted := fetch.FirstAttr(card, []string{"time"}, "datetime"); posted != "" {
			rec["posted_at"] = posted
		}
		out = append(out, rec)
	})
	return out, nil
}
