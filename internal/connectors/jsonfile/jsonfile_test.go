package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-aggregator/internal/connectors"
)

func TestParse_Shapes(t *testing.T) {
	list, err := Parse([]byte(`[{"title": "a"}, {"title": "b"}]`))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	wrapped, err := Parse([]byte(`{"export_date": "2025-01-01", "jobs": [{"title": "a"}]}`))
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.Equal(t, "a", wrapped[0].String("title"))

	_, err = Parse([]byte(`{"nothing": true}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`"scalar"`))
	assert.Error(t, err)
}

func TestFetch_NewestFile(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "linkedin_jobs_1.json")
	newer := filepath.Join(dir, "linkedin_jobs_2.json")
	require.NoError(t, os.WriteFile(older, []byte(`[{"title": "old"}]`), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte(`{"jobs": [{"title": "new"}, {"title": "newer"}]}`), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	c := New("", "linkedin", filepath.Join(dir, "linkedin_jobs_*.json"))
	assert.Equal(t, "linkedin", c.Name())

	records, err := c.Fetch(context.Background(), connectors.Query{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].String("title"))

	records, err = c.Fetch(context.Background(), connectors.Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetch_NoMatch(t *testing.T) {
	c := New("li", "linkedin", filepath.Join(t.TempDir(), "*.json"))
	_, err := c.Fetch(context.Background(), connectors.Query{})
	assert.Error(t, err)
}

func TestFetch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("li", "linkedin", "*.json").Fetch(ctx, connectors.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}
