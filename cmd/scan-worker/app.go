package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ScanPipe/config"
	"github.com/BearBump/ScanPipe/internal/broker/kafka"
	"github.com/BearBump/ScanPipe/internal/cache/rediscache"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed/cached"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed/fake"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed/scanfeedhttp"
	"github.com/BearBump/ScanPipe/internal/services/ingest"
	"github.com/BearBump/ScanPipe/internal/storage/pgscan"
)

type workerFactories struct {
	newStorage    func(cfg *config.Config) (store ingest.Store, closeFn func(), err error)
	newFeedClient func(cfg *config.Config) scanfeed.Client
	newProducer   func(cfg *config.Config) ingest.Producer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (ingest.Store, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgscan.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newFeedClient: func(cfg *config.Config) scanfeed.Client {
			// Без base_url работаем на встроенной детерминированной заглушке.
			if cfg.ScanFeed.BaseURL == "" {
				return fake.New(cfg.ScanFeed.FakeParcels)
			}

			timeout := time.Duration(cfg.ScanFeed.TimeoutSeconds) * time.Second
			client := scanfeed.Client(scanfeedhttp.New(cfg.ScanFeed.BaseURL, cfg.ScanFeed.APIKey, timeout))

			// Кэш страниц совещательный: есть redis — хорошо, нет — фид напрямую.
			if cfg.Redis.Host != "" {
				ttl := time.Duration(cfg.ScanFeed.CacheTTLSeconds) * time.Second
				redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
				client = cached.New(client, rediscache.New(redisAddr), ttl)
			}
			return client
		},
		newProducer: func(cfg *config.Config) ingest.Producer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
	}
}

func RunScanWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	topic := cfg.Kafka.ParcelUpdatedTopicName
	if topic == "" {
		topic = "parcel.updated"
	}

	pollInterval := time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	batchSize := cfg.Worker.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxRetries := cfg.Worker.MaxRetryAttempts
	if maxRetries <= 0 {
		maxRetries = 3
	}

	store, closeFn, err := f.newStorage(cfg)
	if err != nil {
		// Недоступное хранилище на старте — единственный фатальный случай.
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	feed := f.newFeedClient(cfg)
	producer := f.newProducer(cfg)

	p := ingest.New(store, feed, producer, topic).
		WithSettings(pollInterval, batchSize, maxRetries)

	go func() {
		err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.Worker.HTTPAddr,
			poller:   p,
			cfg:      cfg,
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("worker http server", "error", err.Error())
		}
	}()

	return p.Run(ctx)
}
