package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256

	// drainTimeout bounds how long a stopping worker keeps flushing its buffer.
	drainTimeout = 5 * time.Second
	// processTimeout bounds a single store write.
	processTimeout = 3 * time.Second
)

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the account, so events about one account are stored in the
// order they happened.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	service ports.EventService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.EventRecorder = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.EventService, log zerolog.Logger) *Dispatcher {
	return newDispatcher(numWorkers, channelBuffer, service, log)
}

func newDispatcher(numWorkers, buffer int, service ports.EventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, buffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// flushes what is already buffered, then exits. Use Wait to block until
// that has happened.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go func(id int, ch chan domain.AuthEvent) {
			defer d.wg.Done()
			d.runWorker(ctx, id, ch)
		}(i, ch)
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record hands an event to the worker responsible for its account. It never
// blocks: when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Record(event domain.AuthEvent) {
	idx := d.shardIndex(shardKey(event))
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsDropped.Inc()
		d.log.Warn().
			Str("kind", string(event.Kind)).
			Int("worker_id", idx).
			Msg("audit buffer full, event dropped")
	}
}

// shardKey is the user id when the account is known. Register and login carry
// the email as subject while refresh and logout carry the username, so the
// subject alone would split one account across workers.
func shardKey(event domain.AuthEvent) string {
	if event.UserID > 0 {
		return "user:" + strconv.FormatInt(event.UserID, 10)
	}
	return "subject:" + event.Subject
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx, id, ch)
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

// drain stores whatever is still buffered on ch. It runs on a context
// detached from the cancelled parent so shutdown does not lose events that
// were already accepted.
func (d *Dispatcher) drain(parent context.Context, id int, ch <-chan domain.AuthEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()

	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			if left := len(ch); left > 0 {
				d.log.Warn().Int("worker_id", id).Int("pending", left).
					Msg("audit drain timed out, events lost")
			}
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(ctx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(parent context.Context, id int, event domain.AuthEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), processTimeout)
	defer cancel()
	if err := d.service.Process(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("kind", string(event.Kind)).
			Int("worker_id", id).
			Msg("audit event processing failed")
	}
}
