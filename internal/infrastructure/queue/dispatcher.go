package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/api/metrics"
	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes loan events to a fixed set of workers using consistent
// hashing on the patron id, guaranteeing per-patron event ordering. Each
// worker hands every event to all configured journals.
type Dispatcher struct {
	workers  []chan domain.LoanEvent
	journals []ports.LoanJournal
	retry    retryPolicy
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, journals []ports.LoanJournal, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.LoanEvent, numWorkers),
		journals: journals,
		retry:    defaultRetry,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoanEvent, channelBuffer)
	}
	return d
}

var _ ports.LoanEventSink = (*Dispatcher)(nil)

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or, after Close, once their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends an event to the worker responsible for its patron. It never
// blocks: events arriving after Close or while the worker's channel is full
// are dropped and counted.
func (d *Dispatcher) Enqueue(event domain.LoanEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "closed")
		return
	}
	idx := d.shardIndex(event.PatronID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "queue_full")
	}
}

func (d *Dispatcher) drop(event domain.LoanEvent, reason string) {
	metrics.EventsDroppedTotal.WithLabelValues(reason).Inc()
	d.log.Warn().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Int("loan_id", event.LoanID).
		Str("reason", reason).
		Msg("loan event dropped")
}

// EnqueueBatch enqueues multiple events preserving per-patron ordering.
func (d *Dispatcher) EnqueueBatch(events []domain.LoanEvent) {
	for _, e := range events {
		d.Enqueue(e)
	}
}

// Close stops accepting events and waits until the workers have drained
// what was already queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a patron id deterministically to a worker index.
func (d *Dispatcher) shardIndex(patronID int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.Itoa(patronID)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LoanEvent) {
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
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			metrics.ObserveEvent(event)
			d.record(ctx, id, event)
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, workerID int, event domain.LoanEvent) {
	for _, j := range d.journals {
		start := time.Now()
		err := d.retry.do(ctx, func(ctx context.Context) error {
			return j.Record(ctx, event)
		})
		metrics.JournalDuration.WithLabelValues(j.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.JournalErrorsTotal.WithLabelValues(j.Name()).Inc()
			d.log.Error().Err(err).
				Str("journal", j.Name()).
				Str("event_id", event.ID).
				Int("loan_id", event.LoanID).
				Int("worker_id", workerID).
				Msg("loan event not recorded")
		}
	}
}
