package board

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/fetch"
	"github.com/jonathan/job-aggregator/internal/types"
)

const listingPage = `
<html><body>
<ul>
  <li data-testid="search-results-list-item-wrapper">
    <a href="/fr/companies/acme/jobs/seo-manager_paris"><h4>SEO Manager</h4></a>
    <span class="company-name">Acme</span>
    <span data-testid="job-location">Paris</span>
    <span data-testid="job-contract">CDI</span>
    <span data-testid="job-remote">Télétravail partiel</span>
    <time datetime="2025-02-01T10:00:00Z">il y a 3 jours</time>
  </li>
  <li data-testid="search-results-list-item-wrapper">
    <a href="/fr/companies/beta/jobs/content-lead_lyon"><h4>Content Lead</h4></a>
    <span class="company-name">Beta</span>
  </li>
  <li data-testid="search-results-list-item-wrapper"><span>ad slot</span></li>
</ul>
</body></html>`

func TestParseCards(t *testing.T) {
	cards, err := ParseCards(listingPage, "https://www.welcometothejungle.com/fr/jobs?page=1", DefaultSelectors())
	require.NoError(t, err)
	require.Len(t, cards, 2)

	first := cards[0]
	assert.Equal(t, "SEO Manager", first.String("title"))
	assert.Equal(t, "Acme", first.String("company_name"))
	assert.Equal(t, "Paris", first.String("location"))
	assert.Equal(t, "CDI", first.String("job_type"))
	assert.Equal(t, "Télétravail partiel", first.String("work_mode"))
	assert.NotContains(t, first, "description", "cards carry no description")
	assert.Equal(t, "2025-02-01T10:00:00Z", first.String("posted_at"))
	assert.Equal(t, "https://www.welcometothejungle.com/fr/companies/acme/jobs/seo-manager_paris", first.String("source_url"))

	assert.Equal(t, "Content Lead", cards[1].String("title"))
	assert.Equal(t, "", cards[1].String("location"))
}

func TestParseCards_NoCards(t *testing.T) {
	cards, err := ParseCards("<html><body><p>Aucun résultat</p></body></html>", "https://x.example", DefaultSelectors())
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestFetch_PaginatesUntilRepeat(t *testing.T) {
	c := New(Config{MaxPages: 5}, nil)
	var urls []string
	c.pageFn = func(_ context.Context, url string, _ *fetch.Options) (string, error) {
		urls = append(urls, url)
		return listingPage, nil
	}

	records, err := c.Fetch(context.Background(), connectors.Query{Keywords: "seo manager", Location: "Île-de-France"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "query=seo+manager")
	assert.Contains(t, urls[0], "page=1")
	assert.Contains(t, urls[1], "page=2")
	assert.Equal(t, types.PlatformWelcomeToTheJungle, c.Platform())
	assert.Equal(t, types.PlatformWelcomeToTheJungle, c.Name())
}

func TestFetch_Limit(t *testing.T) {
	c := New(Config{MaxPages: 5}, nil)
	c.pageFn = func(context.Context, string, *fetch.Options) (string, error) { return listingPage, nil }

	records, err := c.Fetch(context.Background(), connectors.Query{Keywords: "seo", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetch_FirstPageErrorFails(t *testing.T) {
	c := New(Config{}, nil)
	c.pageFn = func(context.Context, string, *fetch.Options) (string, error) { return "", errors.New("blocked") }

	records, err := c.Fetch(context.Background(), connectors.Query{Keywords: "seo"})
	assert.Error(t, err)
	assert.Nil(t, records)
}

func TestFetch_LaterPageErrorKeepsResults(t *testing.T) {
	c := New(Config{MaxPages: 3}, nil)
	calls := 0
	c.pageFn = func(context.Context, string, *fetch.Options) (string, error) {
		calls++
		if calls == 1 {
			return listingPage, nil
		}
		return "", errors.New("rate limited")
	}

	records, err := c.Fetch(context.Background(), connectors.Query{Keywords: "seo"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetch_OverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(strings.ReplaceAll(listingPage, "/fr/companies", "/companies")))
	}))
	defer server.Close()

	c := New(Config{Name: "custom", Platform: "indeed", SearchURL: server.URL + "/jobs?q={keywords}&p={page}"}, nil)
	records, err := c.Fetch(context.Background(), connectors.Query{Keywords: "go"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, server.URL+"/companies/acme/jobs/seo-manager_paris", records[0].String("source_url"))
	assert.Equal(t, "indeed", c.Platform())
}
