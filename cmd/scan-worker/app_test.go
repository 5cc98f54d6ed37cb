package main

import (
	"context"
	"testing"

	"github.com/BearBump/ScanPipe/config"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed/cached"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed/fake"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed/scanfeedhttp"
	"github.com/BearBump/ScanPipe/internal/models"
	"github.com/BearBump/ScanPipe/internal/services/ingest"
	"github.com/BearBump/ScanPipe/internal/storage/pgscan"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{}

func (s *fakeStore) GetCursor(ctx context.Context) (*models.Cursor, error) {
	return &models.Cursor{}, nil
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(tx pgscan.Tx) error) error {
	return nil
}

type noopFeed struct{}

func (f noopFeed) FetchScanEvents(ctx context.Context, afterEventID string, limit int) ([]scanfeed.RawScanEvent, error) {
	return nil, nil
}

func TestDefaultWorkerFactories_SelectFeedClient(t *testing.T) {
	f := defaultWorkerFactories()

	// Нет base_url — встроенный fake.
	c1 := f.newFeedClient(&config.Config{})
	_, ok := c1.(*fake.FakeFeed)
	require.True(t, ok)

	// base_url без redis — чистый HTTP-клиент.
	c2 := f.newFeedClient(&config.Config{
		ScanFeed: config.ScanFeedConfig{BaseURL: "http://localhost:9000"},
	})
	_, ok = c2.(*scanfeedhttp.Client)
	require.True(t, ok)

	// base_url + redis — обёртка с кэшем.
	c3 := f.newFeedClient(&config.Config{
		ScanFeed: config.ScanFeedConfig{BaseURL: "http://localhost:9000", CacheTTLSeconds: 60},
		Redis:    config.RedisConfig{Host: "localhost", Port: 6379},
	})
	_, ok = c3.(*cached.Client)
	require.True(t, ok)
}

func TestDefaultWorkerFactories_Producer(t *testing.T) {
	f := defaultWorkerFactories()

	require.Nil(t, f.newProducer(&config.Config{}))
	require.NotNil(t, f.newProducer(&config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
	}))
}

func TestRunScanWorker_ContextCanceled(t *testing.T) {
	calledClose := false

	f := workerFactories{
		newStorage: func(cfg *config.Config) (ingest.Store, func(), error) {
			return &fakeStore{}, func() { calledClose = true }, nil
		},
		newFeedClient: func(cfg *config.Config) scanfeed.Client {
			return noopFeed{}
		},
		newProducer: func(cfg *config.Config) ingest.Producer {
			return nil
		},
	}

	cfg := &config.Config{
		Worker: config.WorkerConfig{HTTPAddr: "127.0.0.1:0", PollIntervalSeconds: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunScanWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}
