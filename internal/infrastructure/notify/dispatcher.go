// Package notify delivers outbound email off the request path.
package notify

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodecamp/lms/internal/api/metrics"
	"github.com/kodecamp/lms/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	drainTimeout   = 10 * time.Second
)

// Sender performs the actual delivery of a message.
type Sender interface {
	Deliver(ctx context.Context, msg ports.Message) error
}

// Dispatcher routes messages to a fixed set of workers using consistent
// hashing on the recipient, so mail to one address is delivered in order.
// It implements ports.Notifier.
type Dispatcher struct {
	workers []chan ports.Message
	sender  Sender
	log     zerolog.Logger
	timeout time.Duration

	// drainTimeout bounds delivery of buffered mail after shutdown starts.
	drainTimeout time.Duration
	stop         <-chan struct{}
	wg           sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender Sender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.Message, numWorkers),
		sender:  sender,
		log:     log,
		timeout: 30 * time.Second,

		drainTimeout: drainTimeout,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Once ctx is cancelled each worker
// delivers what is still queued, bounded by drainTimeout, and returns; Wait
// blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	d.stop = ctx.Done()
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Send enqueues msg without blocking. When the recipient's worker is full
// the message is dropped and counted.
// Messages sent after shutdown has started are dropped as well.
func (d *Dispatcher) Send(msg ports.Message) {
	idx := d.shardIndex(msg.To)
	select {
	case <-d.stop:
		d.drop(idx, msg, "dispatcher stopped, message dropped")
		return
	default:
	}
	select {
	case d.workers[idx] <- msg:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(idx, msg, "notification queue full, message dropped")
	}
}

func (d *Dispatcher) drop(idx int, msg ports.Message, reason string) {
	metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Int("worker_id", idx).
		Str("subject", msg.Subject).
		Msg(reason)
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(to string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(to)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Message) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		// Shutdown wins over queued work so buffered mail goes through drain.
		if ctx.Err() != nil {
			d.drain(ctx, id, ch)
			return
		}
		select {
		case <-ctx.Done():
			d.drain(ctx, id, ch)
			return
		case msg := <-ch:
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, msg)
		}
	}
}

// drain empties ch after ctx is done. Messages are delivered until
// drainTimeout elapses; whatever remains after that is counted as dropped.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan ports.Message) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainTimeout)
	defer cancel()

	var delivered, dropped int
	for {
		select {
		case msg := <-ch:
			if dctx.Err() != nil {
				metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
				dropped++
				continue
			}
			d.deliver(dctx, id, msg)
			delivered++
		default:
			metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(0)
			if dropped > 0 {
				d.log.Warn().Int("worker_id", id).Int("delivered", delivered).Int("dropped", dropped).
					Msg("notification queue drained at shutdown with losses")
			} else if delivered > 0 {
				d.log.Info().Int("worker_id", id).Int("delivered", delivered).
					Msg("notification queue drained at shutdown")
			}
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg ports.Message) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.sender.Deliver(ctx, msg)
	metrics.NotificationDeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Int("worker_id", id).
			Str("subject", msg.Subject).
			Msg("notification delivery failed")
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}

var _ ports.Notifier = (*Dispatcher)(nil)
