package notification

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("notification: queue full")

// Dispatcher queues messages and delivers them on a fixed worker pool with
// exponential backoff. Delivery failures are logged and dropped.
type Dispatcher struct {
	sender     Sender
	queue      chan Message
	workers    int
	maxRetries int
	baseDelay  time.Duration
	log        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Options struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	BaseDelay  time.Duration
}

func NewDispatcher(sender Sender, opts Options, log *zap.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:     sender,
		queue:      make(chan Message, opts.QueueSize),
		workers:    opts.Workers,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		log:        log.With(zap.String("component", "notification")),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	d.log.Info("Notification dispatcher started", zap.Int("workers", d.workers))
}

// Enqueue hands m to the workers without blocking.
func (d *Dispatcher) Enqueue(m Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return errors.New("notification: dispatcher stopped")
	}

	select {
	case d.queue <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for the workers to drain it. When ctx
// expires first, in-flight retries are abandoned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		d.cancel()
		<-done
		err = ctx.Err()
	}

	if closer, ok := d.sender.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	d.log.Info("Notification dispatcher stopped")
	return err
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()

	for m := range d.queue {
		d.deliver(id, m)
	}
}

func (d *Dispatcher) deliver(worker int, m Message) {
	delay := d.baseDelay

	for attempt := 0; ; attempt++ {
		err := d.sender.Send(d.ctx, m)
		if err == nil {
			return
		}

		if attempt >= d.maxRetries {
			d.log.Error("Notification dropped",
				zap.Error(err),
				zap.Int("worker", worker),
				zap.String("recipient", m.Recipient),
				zap.String("template", string(m.Template)),
				zap.Int("attempts", attempt+1),
			)
			return
		}

		d.log.Warn("Notification failed, retrying",
			zap.Error(err),
			zap.String("recipient", m.Recipient),
			zap.Duration("backoff", delay),
		)

		select {
		case <-time.After(delay):
			delay *= 2
		case <-d.ctx.Done():
			return
		}
	}
}
