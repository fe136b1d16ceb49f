// Package jsonfile replays job records from JSON export files on disk,
// such as the output of a browser-extension LinkedIn export.
package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/raw"
)

// listKeys are the top-level keys that may hold the record list, in order.
var listKeys = []string{"jobs", "jobs_analyzed", "all_jobs_normalized", "results", "records"}

// Connector reads the newest file matching a glob.
type Connector struct {
	name     string
	platform string
	pattern  string
}

// New returns a connector for files matching pattern.
func New(name, platform, pattern string) *Connector {
	if name == "" {
		name = platform
	}
	return &Connector{name: name, platform: platform, pattern: pattern}
}

func (c *Connector) Name() string     { return c.name }
func (c *Connector) Platform() string { return c.platform }

// Fetch loads the most recently modified matching file. Keywords and
// location are ignored; the export already reflects a search.
func (c *Connector) Fetch(ctx context.Context, q connectors.Query) ([]raw.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := newestMatch(c.pattern)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", path, err)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse export %s: %w", path, err)
	}
	return connectors.Truncate(records, q.Limit), nil
}

// Parse accepts either a top-level array of objects or an object holding
// the array under a well-known key.
func Parse(data []byte) ([]raw.Record, error) {
	doc, err := raw.Decode(data)
	if err != nil {
		return nil, err
	}
	if list := raw.Records(doc); list != nil {
		return list, nil
	}
	obj, ok := raw.FromAny(doc)
	if !ok {
		return nil, fmt.Errorf("export is neither an array nor an object")
	}
	for _, key := range listKeys {
		if items := obj.Slice(key); items != nil {
			return raw.Records(items), nil
		}
	}
	return nil, fmt.Errorf("export has no job list (looked for %v)", listKeys)
}

func newestMatch(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid export pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no export file matches %q", pattern)
	}

	type candidate struct {
		path    string
		modUnix int64
	}
	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: m, modUnix: info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no export file matches %q", pattern)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modUnix == candidates[j].modUnix {
			return candidates[i].path > candidates[j].path
		}
		return candidates[i].modUnix > candidates[j].modUnix
	})
	return candidates[0].path, nil
}
