package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/api/metrics"
	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher routes inventory events to a fixed set of workers sharded on the
// shoe id, so the events of one shoe are persisted in the order they happened.
type Dispatcher struct {
	workers []chan domain.InventoryEvent
	service ports.AuditService
	log     zerolog.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	shutdown sync.Once
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.InventoryEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.InventoryEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Shutdown has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its shoe. It never
// blocks: when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.InventoryEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("event_id", event.ID).Msg("audit event after shutdown dropped")
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		return
	}

	idx := d.shardIndex(event.ShoeID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.log.Warn().
			Str("event_id", event.ID).
			Int64("shoe_id", event.ShoeID).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
	}
}

// Shutdown stops accepting events, lets the workers drain their channels and
// waits for them to exit.
func (d *Dispatcher) Shutdown() {
	d.shutdown.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
		d.mu.Unlock()
	})
	d.wg.Wait()
}

// shardIndex maps a shoe id deterministically to a worker index.
func (d *Dispatcher) shardIndex(shoeID int64) int {
	n := shoeID % int64(len(d.workers))
	if n < 0 {
		n = -n
	}
	return int(n)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.InventoryEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(ctx, id, event)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, event domain.InventoryEvent) {
	start := time.Now()
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err := d.service.Record(writeCtx, event)
	metrics.AuditWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("event_id", event.ID).
			Int64("shoe_id", event.ShoeID).
			Int("worker_id", workerID).
			Msg("audit event processing failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("stored").Inc()
}
