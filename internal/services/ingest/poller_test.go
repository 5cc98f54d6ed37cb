package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ScanPipe/internal/broker/messages"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type funcFeed struct {
	mu        sync.Mutex
	fn        func(after string, limit int) ([]scanfeed.RawScanEvent, error)
	calls     int
	lastAfter string
	lastLimit int
}

func (f *funcFeed) FetchScanEvents(ctx context.Context, after string, limit int) ([]scanfeed.RawScanEvent, error) {
	f.mu.Lock()
	f.calls++
	f.lastAfter = after
	f.lastLimit = limit
	f.mu.Unlock()
	return f.fn(after, limit)
}

type recordingProducer struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	values [][]byte
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	return nil
}

func TestPoller_CycleStoresBatch(t *testing.T) {
	st := newMemStore()
	feed := &funcFeed{fn: func(after string, limit int) ([]scanfeed.RawScanEvent, error) {
		if after != "" {
			return nil, nil
		}
		return []scanfeed.RawScanEvent{
			rawEvent("e1", 123, "STATUS", "ORDER_RECEIVED", t0),
		}, nil
	}}

	p := New(st, feed, nil, "")
	require.NoError(t, p.runCycle(context.Background()))

	require.Equal(t, "e1", *st.st.cursor)
	require.NotNil(t, st.st.parcels[123])

	stats := p.Stats()
	require.Equal(t, int64(1), stats.TotalCycles)
	require.Equal(t, int64(1), stats.TotalFetched)
	require.Equal(t, int64(1), stats.TotalStored)
	require.Zero(t, stats.TotalErrors)
	require.NotNil(t, stats.LastCycleAt)
}

func TestPoller_PassesCursorAndBatchSize(t *testing.T) {
	st := newMemStore()
	cur := "e42"
	st.st.cursor = &cur

	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		return nil, nil
	}}

	p := New(st, feed, nil, "").WithSettings(time.Minute, 25, 3)
	require.NoError(t, p.runCycle(context.Background()))

	require.Equal(t, "e42", feed.lastAfter)
	require.Equal(t, 25, feed.lastLimit)
}

func TestPoller_EmptyPageSkipsProcessing(t *testing.T) {
	st := newMemStore()
	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		return nil, nil
	}}

	p := New(st, feed, nil, "")
	require.NoError(t, p.runCycle(context.Background()))

	require.Zero(t, st.txCount)
	require.Nil(t, st.st.cursor)
}

func TestPoller_RetriesTransientFailure(t *testing.T) {
	st := newMemStore()
	attempts := 0
	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		attempts++
		if attempts == 1 {
			return nil, scanfeed.Transient(errors.New("connection reset"))
		}
		return []scanfeed.RawScanEvent{
			rawEvent("e1", 1, "STATUS", "ORDER_RECEIVED", t0),
		}, nil
	}}

	p := New(st, feed, nil, "").WithSettings(time.Minute, 100, 2)
	require.NoError(t, p.runCycle(context.Background()))

	require.Equal(t, 2, feed.calls)
	require.Equal(t, "e1", *st.st.cursor)
}

func TestPoller_NonTransientNotRetried(t *testing.T) {
	st := newMemStore()
	boom := errors.New("bad api key")
	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		return nil, boom
	}}

	p := New(st, feed, nil, "").WithSettings(time.Minute, 100, 3)
	err := p.runCycle(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, feed.calls)
}

func TestPoller_FinalAttemptPropagates(t *testing.T) {
	st := newMemStore()
	boom := scanfeed.Transient(errors.New("still down"))
	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		return nil, boom
	}}

	p := New(st, feed, nil, "").WithSettings(time.Minute, 100, 2)
	err := p.runCycle(context.Background())
	require.Error(t, err)
	require.True(t, scanfeed.IsTransient(err))
	require.Equal(t, 2, feed.calls)
	require.Nil(t, st.st.cursor)
}

func TestPoller_PublishesParcelUpdates(t *testing.T) {
	st := newMemStore()
	feed := &funcFeed{fn: func(after string, limit int) ([]scanfeed.RawScanEvent, error) {
		if after != "" {
			return nil, nil
		}
		return []scanfeed.RawScanEvent{
			rawEvent("e1", 123, "STATUS", "ORDER_RECEIVED", t0),
		}, nil
	}}
	producer := &recordingProducer{}

	p := New(st, feed, producer, "parcel.updated")
	require.NoError(t, p.runCycle(context.Background()))

	require.Len(t, producer.values, 1)
	require.Equal(t, "parcel.updated", producer.topics[0])
	require.Equal(t, "123", producer.keys[0])

	var msg messages.ParcelUpdated
	require.NoError(t, json.Unmarshal(producer.values[0], &msg))
	require.Equal(t, int64(123), msg.ParcelID)
	require.Equal(t, "TR000123", msg.TrackingNumber)
	require.Equal(t, "e1", *msg.LastEventID)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	st := newMemStore()
	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(st, feed, nil, "")
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoller_TriggerForcesImmediateCycle(t *testing.T) {
	st := newMemStore()
	cycleDone := make(chan struct{}, 16)
	feed := &funcFeed{fn: func(string, int) ([]scanfeed.RawScanEvent, error) {
		cycleDone <- struct{}{}
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(st, feed, nil, "").WithSettings(time.Hour, 100, 3)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-cycleDone:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never ran")
	}

	// Без триггера следующий цикл наступил бы только через час.
	p.Trigger()
	select {
	case <-cycleDone:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not force a cycle")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_Health(t *testing.T) {
	st := newMemStore()
	cur := "e7"
	st.st.cursor = &cur

	p := New(st, &funcFeed{}, nil, "").WithSettings(45*time.Second, 50, 3)
	h := p.Health(context.Background())
	require.True(t, h.IsHealthy)
	require.Equal(t, "e7", *h.LastProcessedEventID)
	require.Equal(t, 50, h.BatchSize)
	require.Equal(t, 45, h.PollIntervalSeconds)
	require.Empty(t, h.ErrorMessage)
}

func TestPoller_HealthReportsStorageError(t *testing.T) {
	st := newMemStore()
	st.cursorErr = errors.New("pg unreachable")

	p := New(st, &funcFeed{}, nil, "")
	h := p.Health(context.Background())
	require.False(t, h.IsHealthy)
	require.Contains(t, h.ErrorMessage, "pg unreachable")
}
