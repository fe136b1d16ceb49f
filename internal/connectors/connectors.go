// Package connectors defines the contract between the aggregator and the
// producers of raw source records.
package connectors

import (
	"context"
	"time"

	"github.com/jonathan/job-aggregator/internal/raw"
)

// Query is what every connector is asked for.
type Query struct {
	Keywords string `json:"keywords"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

// Connector produces raw records for one source. Fetch must honor ctx
// cancellation and fail soft: on error it returns a nil slice and the error.
type Connector interface {
	// Name identifies the source in statistics and logs.
	Name() string
	// Platform is the source_platform assigned to the records.
	Platform() string
	Fetch(ctx context.Context, q Query) ([]raw.Record, error)
}

// Static is a connector backed by fixed records, used for replays and tests.
type Static struct {
	SourceName     string
	SourcePlatform string
	Records        []raw.Record
	Err            error
	// Delay simulates a slow source; it is interrupted by ctx.
	Delay time.Duration
}

func (s *Static) Name() string {
	if s.SourceName == "" {
		return s.SourcePlatform
	}
	return s.SourceName
}

func (s *Static) Platform() string { return s.SourcePlatform }

func (s *Static) Fetch(ctx context.Context, q Query) ([]raw.Record, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return Truncate(s.Records, q.Limit), nil
}

// Truncate caps records at limit; a non-positive limit means no cap.
func Truncate(records []raw.Record, limit int) []raw.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
