package metricsagg

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/tesseract-hub/translation-router/internal/cachestore"
)

func newTestAggregator() *Aggregator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(cachestore.NewMemoryCache(), logrus.NewEntry(log))
}

func TestRecordSuccessAccumulates(t *testing.T) {
	agg := newTestAggregator()
	ctx := context.Background()

	agg.RecordSuccess(ctx, "claude", 120, 0.002)
	agg.RecordSuccess(ctx, "claude", 80, 0.001)

	m := agg.Get(ctx, "claude")
	assert.Equal(t, int64(2), m.TotalRequests)
	assert.Equal(t, int64(2), m.SuccessfulRequests)
	assert.Equal(t, int64(200), m.TotalResponseTimeMs)
	assert.InDelta(t, 0.003, m.TotalCost, 1e-9)
}

func TestRecordFailureOnlyIncrementsTotal(t *testing.T) {
	agg := newTestAggregator()
	ctx := context.Background()

	agg.RecordFailure(ctx, "libre")
	m := agg.Get(ctx, "libre")
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(0), m.SuccessfulRequests)
}

func TestAvgResponseTimeMsNoSamples(t *testing.T) {
	agg := newTestAggregator()
	lookup := agg.AvgResponseTimeMs(context.Background())

	_, ok := lookup("gpt")
	assert.False(t, ok)
}

func TestAvgResponseTimeMsComputesAverage(t *testing.T) {
	agg := newTestAggregator()
	ctx := context.Background()

	agg.RecordSuccess(ctx, "gpt", 100, 0)
	agg.RecordSuccess(ctx, "gpt", 300, 0)

	lookup := agg.AvgResponseTimeMs(ctx)
	ms, ok := lookup("gpt")
	assert.True(t, ok)
	assert.Equal(t, int64(200), ms)
}

func TestAggregatorWithNilCacheDoesNotPanic(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	agg := New(nil, logrus.NewEntry(log))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		agg.RecordSuccess(ctx, "claude", 120, 0.002)
		agg.RecordFailure(ctx, "claude")
	})

	m := agg.Get(ctx, "claude")
	assert.Equal(t, int64(0), m.TotalRequests)

	lookup := agg.AvgResponseTimeMs(ctx)
	_, ok := lookup("claude")
	assert.False(t, ok)
}
