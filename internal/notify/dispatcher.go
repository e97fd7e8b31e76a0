package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

// Dispatcher is a bounded outbound queue drained by a fixed worker pool.
// Enqueue never blocks; when the queue is full the message is dropped and
// logged. Each message is retried up to MaxAttempts with linear backoff.
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	logger   *slog.Logger

	queue  chan Message
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(n Notifier, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: n,
		cfg:      cfg,
		logger:   logger.With("component", "notify"),
		queue:    make(chan Message, cfg.QueueSize),
	}
}

// Start launches the workers. They exit when ctx is cancelled or after
// Close has drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Enqueue reports whether the message was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("notification queue full, dropping message",
			"order_id", msg.OrderID, "kind", msg.Kind)
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, msg)
		}
	}
}

// deliver retries each member of a Multi on its own, so a sink that
// already accepted the message never receives it twice.
func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	sinks, ok := d.notifier.(Multi)
	if !ok {
		sinks = Multi{d.notifier}
	}
	for _, n := range sinks {
		d.deliverTo(ctx, n, msg)
	}
}

func (d *Dispatcher) deliverTo(ctx context.Context, n Notifier, msg Message) {
	var err error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		err = n.Notify(sendCtx, msg)
		cancel()
		if err == nil {
			d.logger.Debug("notification sent", "order_id", msg.OrderID, "kind", msg.Kind, "attempt", attempt)
			return
		}
		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.Backoff * time.Duration(attempt)):
		}
	}
	d.logger.Error("notification failed",
		"order_id", msg.OrderID, "kind", msg.Kind, "attempts", d.cfg.MaxAttempts, "error", err)
}
