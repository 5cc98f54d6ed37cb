package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ScanPipe/internal/broker/messages"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/BearBump/ScanPipe/internal/models"
	"github.com/pkg/errors"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Poller struct {
	store     Store
	feed      scanfeed.Client
	processor *Processor
	producer  Producer

	topic string

	pollInterval time.Duration
	batchSize    int
	maxRetries   int

	triggerCh chan struct{}

	startedAtUnixNano int64
	lastCycleUnixNano atomic.Int64
	totalFetched      atomic.Int64
	totalStored       atomic.Int64
	totalFiltered     atomic.Int64
	totalCycles       atomic.Int64
	totalErrors       atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(store Store, feed scanfeed.Client, producer Producer, topic string) *Poller {
	return &Poller{
		store:        store,
		feed:         feed,
		processor:    NewProcessor(store),
		producer:     producer,
		topic:        topic,
		pollInterval: 30 * time.Second,
		batchSize:    100,
		maxRetries:   3,
		triggerCh:    make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize, maxRetries int) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if maxRetries > 0 {
		p.maxRetries = maxRetries
	}
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	TotalCycles   int64      `json:"totalCycles"`
	TotalFetched  int64      `json:"totalFetched"`
	TotalStored   int64      `json:"totalStored"`
	TotalFiltered int64      `json:"totalFiltered"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalCycles:   p.totalCycles.Load(),
		TotalFetched:  p.totalFetched.Load(),
		TotalStored:   p.totalStored.Load(),
		TotalFiltered: p.totalFiltered.Load(),
		TotalErrors:   p.totalErrors.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

type HealthStatus struct {
	IsHealthy            bool    `json:"isHealthy"`
	LastProcessedEventID *string `json:"lastProcessedEventId"`
	LastCheckTime        time.Time `json:"lastCheckTime"`
	BatchSize            int     `json:"batchSize"`
	PollIntervalSeconds  int     `json:"pollIntervalSeconds"`
	ErrorMessage         string  `json:"errorMessage,omitempty"`
}

func (p *Poller) Health(ctx context.Context) HealthStatus {
	now := time.Now().UTC()
	cur, err := p.store.GetCursor(ctx)
	if err != nil {
		return HealthStatus{
			IsHealthy:     false,
			LastCheckTime: now,
			ErrorMessage:  err.Error(),
		}
	}
	return HealthStatus{
		IsHealthy:            true,
		LastProcessedEventID: cur.LastProcessedEventID,
		LastCheckTime:        now,
		BatchSize:            p.batchSize,
		PollIntervalSeconds:  int(p.pollInterval.Seconds()),
	}
}

// Run is the poll loop: один цикл за раз, строго последовательно. Любая
// ошибка цикла логируется и превращается в backoff-паузу, а не в падение
// процесса.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("scan worker starting",
		"batch_size", p.batchSize,
		"poll_interval_seconds", int(p.pollInterval.Seconds()),
		"max_retries", p.maxRetries)

	for {
		if err := p.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("scan worker stopped")
				return ctx.Err()
			}
			p.totalErrors.Add(1)
			p.lastErrorMu.Lock()
			p.lastError = err.Error()
			p.lastErrorMu.Unlock()
			slog.Error("process scan events", "error", err.Error())

			if !p.sleep(ctx, p.errorBackoff()) {
				slog.Info("scan worker stopped")
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("scan worker stopped")
			return ctx.Err()
		case <-time.After(p.pollInterval):
		case <-p.triggerCh:
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) error {
	now := time.Now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())
	p.totalCycles.Add(1)

	cur, err := p.store.GetCursor(ctx)
	if err != nil {
		return err
	}
	after := ""
	if cur.LastProcessedEventID != nil {
		after = *cur.LastProcessedEventID
	}

	raws, err := p.fetchWithRetry(ctx, after)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		slog.Info("no new scan events", "after", after)
		return nil
	}

	res, err := p.processor.ProcessBatch(ctx, raws)
	p.totalFetched.Add(int64(res.Fetched))
	p.totalStored.Add(int64(res.Stored))
	p.totalFiltered.Add(int64(res.Filtered))
	if err != nil {
		return err
	}

	p.publishUpdates(ctx, res)
	return nil
}

// fetchWithRetry: попытки 1..N-1 ретраятся с экспоненциальной паузой, но
// только на временных сбоях; последняя попытка отдаёт ошибку как есть.
func (p *Poller) fetchWithRetry(ctx context.Context, after string) ([]scanfeed.RawScanEvent, error) {
	for attempt := 1; attempt < p.maxRetries; attempt++ {
		raws, err := p.feed.FetchScanEvents(ctx, after, p.batchSize)
		if err == nil {
			return raws, nil
		}
		if ctx.Err() != nil || !scanfeed.IsTransient(err) {
			return nil, err
		}

		delay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
		slog.Warn("fetch scan events failed, retrying",
			"attempt", attempt, "max_retries", p.maxRetries,
			"delay", delay.String(), "error", err.Error())
		if !p.sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}

	raws, err := p.feed.FetchScanEvents(ctx, after, p.batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "fetch scan events")
	}
	return raws, nil
}

// publishUpdates notifies downstream consumers about changed aggregates.
// Best effort: сбой брокера не должен откатывать уже закоммиченный цикл.
func (p *Poller) publishUpdates(ctx context.Context, res ProcessResult) {
	if p.producer == nil || p.topic == "" {
		return
	}
	changed := make([]*models.ParcelScan, 0, len(res.Created)+len(res.Updated))
	changed = append(changed, res.Created...)
	changed = append(changed, res.Updated...)

	now := time.Now().UTC()
	for _, parcel := range changed {
		msg := messages.ParcelUpdated{
			ParcelID:       parcel.ParcelID,
			TrackingNumber: parcel.TrackingNumber,
			PickupAt:       parcel.PickupAt,
			DeliveryAt:     parcel.DeliveryAt,
			LastEventID:    parcel.LastEventID,
			UpdatedAt:      now,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			slog.Error("marshal parcel update", "parcel_id", parcel.ParcelID, "error", err.Error())
			continue
		}
		key := []byte(fmt.Sprintf("%d", parcel.ParcelID))
		if err := p.producer.Publish(ctx, p.topic, key, b); err != nil {
			slog.Error("publish parcel update", "parcel_id", parcel.ParcelID, "error", err.Error())
		}
	}
}

func (p *Poller) errorBackoff() time.Duration {
	d := 2 * p.pollInterval
	if d > 60*time.Second {
		d = 60 * time.Second
	}
	return d
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
