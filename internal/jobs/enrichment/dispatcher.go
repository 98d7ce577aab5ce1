package enrichment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Config struct {
	Workers       int           `envconfig:"ENRICH_WORKERS" default:"4"`
	QueueSize     int           `envconfig:"ENRICH_QUEUE_SIZE" default:"256"`
	EntryTimeout  time.Duration `envconfig:"ENRICH_ENTRY_TIMEOUT" default:"2m"`
	SweepInterval time.Duration `envconfig:"ENRICH_SWEEP_INTERVAL" default:"1m"`
	PendingGrace  time.Duration `envconfig:"ENRICH_PENDING_GRACE" default:"2m"`
	StaleAfter    time.Duration `envconfig:"ENRICH_STALE_AFTER" default:"10m"`
	SweepBatch    int           `envconfig:"ENRICH_SWEEP_BATCH" default:"100"`
}

type Enricher interface {
	Enrich(ctx context.Context, entryID uuid.UUID) error
}

type StaleLister interface {
	ListStale(dbc dbctx.Context, statuses []types.Status, olderThan time.Time, limit int) ([]uuid.UUID, error)
}

// Dispatcher is the fire-and-forget hand-off between request handlers and the orchestrator.
// Each entry id is held by at most one queue slot or worker at a time.
type Dispatcher struct {
	log      *logger.Logger
	metrics  *observability.Metrics
	enricher Enricher
	stale    StaleLister
	cfg      Config

	queue    chan uuid.UUID
	inflight sync.Map
	wg       sync.WaitGroup
	mu       sync.Mutex
	cancel   context.CancelFunc
	started  atomic.Bool
	stopped  atomic.Bool
}

func NewDispatcher(enricher Enricher, stale StaleLister, cfg Config, metrics *observability.Metrics, baseLog *logger.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.EntryTimeout <= 0 {
		cfg.EntryTimeout = 2 * time.Minute
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	return &Dispatcher{
		log:      baseLog.With("component", "EnrichmentDispatcher"),
		metrics:  metrics,
		enricher: enricher,
		stale:    stale,
		cfg:      cfg,
		queue:    make(chan uuid.UUID, cfg.QueueSize),
	}
}

// Enqueue never blocks. It returns false when the id is already queued or running, the queue is
// full, or the dispatcher has stopped; the recovery sweep picks up anything dropped here.
func (d *Dispatcher) Enqueue(entryID uuid.UUID) bool {
	if d.stopped.Load() {
		return false
	}
	if _, loaded := d.inflight.LoadOrStore(entryID, struct{}{}); loaded {
		return false
	}
	select {
	case d.queue <- entryID:
		d.metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.inflight.Delete(entryID)
		d.metrics.IncQueueFull()
		d.log.Warn("Enrichment queue full; deferring to sweep", "entry_id", entryID.String())
		return false
	}
}

// Start is a no-op once the dispatcher has been started or stopped.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped.Load() || !d.started.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.log.Info("Starting enrichment workers", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
	for i := 0; i < d.cfg.Workers; i++ {
		workerID := i + 1
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runLoop(ctx, workerID)
		}()
	}
	if d.stale != nil && d.cfg.SweepInterval > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.sweepLoop(ctx)
		}()
	}
}

// Stop cancels in-flight work and waits for every goroutine to exit.
func (d *Dispatcher) Stop() {
	if !d.stopped.CompareAndSwap(false, true) {
		return
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.log.Info("Enrichment workers stopped")
}

func (d *Dispatcher) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.queue:
			d.metrics.SetQueueDepth(len(d.queue))
			d.process(ctx, workerID, id)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, id uuid.UUID) {
	defer d.inflight.Delete(id)
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Enrichment panic",
				"worker_id", workerID,
				"entry_id", id.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()

	ectx, cancel := context.WithTimeout(ctx, d.cfg.EntryTimeout)
	defer cancel()
	if err := d.enricher.Enrich(ectx, id); err != nil {
		d.log.Warn("Enrichment aborted", "worker_id", workerID, "entry_id", id.String(), "error", err)
	}
}

func (d *Dispatcher) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

// Sweep re-enqueues pending entries that were never picked up and enriching entries whose
// worker went away.
func (d *Dispatcher) Sweep(ctx context.Context) int {
	if d.stale == nil {
		return 0
	}
	now := time.Now().UTC()
	dbc := dbctx.New(ctx)
	requeued := 0
	for _, batch := range []struct {
		status types.Status
		age    time.Duration
	}{
		{types.StatusPending, d.cfg.PendingGrace},
		{types.StatusEnriching, d.cfg.StaleAfter},
	} {
		ids, err := d.stale.ListStale(dbc, []types.Status{batch.status}, now.Add(-batch.age), d.cfg.SweepBatch)
		if err != nil {
			d.log.Warn("Enrichment sweep failed", "status", string(batch.status), "error", err)
			continue
		}
		for _, id := range ids {
			if d.Enqueue(id) {
				requeued++
			}
		}
	}
	if requeued > 0 {
		d.metrics.AddSweepRequeued(requeued)
		d.log.Info("Enrichment sweep re-enqueued entries", "count", requeued)
	}
	return requeued
}
