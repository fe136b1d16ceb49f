package connectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-aggregator/internal/raw"
)

func TestStatic_Fetch(t *testing.T) {
	s := &Static{SourcePlatform: "indeed", Records: []raw.Record{{"a": 1}, {"b": 2}, {"c": 3}}}
	assert.Equal(t, "indeed", s.Name())

	records, err := s.Fetch(context.Background(), Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStatic_ErrorAndDelay(t *testing.T) {
	boom := errors.New("boom")
	_, err := (&Static{SourceName: "x", Err: boom}).Fetch(context.Background(), Query{})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = (&Static{Delay: time.Second}).Fetch(ctx, Query{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Second), context.Canceled)
}
