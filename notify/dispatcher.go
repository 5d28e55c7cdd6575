package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const drainTimeout = 10 * time.Second

type DispatcherOptions struct {
	QueueSize   int
	MaxAttempts int
	RetryEvery  time.Duration
}

// Dispatcher sends messages from a bounded queue on a single worker
// goroutine. Failed messages go to the retry queue and are resent every
// RetryEvery until MaxAttempts deliveries have failed.
type Dispatcher struct {
	sender  Sender
	retries RetryQueue
	log     *slog.Logger

	queue       chan Message
	maxAttempts int
	retryEvery  time.Duration

	// mu guards stopped and sends on queue
	mu      sync.Mutex
	stopped bool

	wg sync.WaitGroup
}

func NewDispatcher(sender Sender, retries RetryQueue, log *slog.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.RetryEvery <= 0 {
		opts.RetryEvery = 30 * time.Second
	}
	if retries == nil {
		retries = NewMemoryRetryQueue()
	}
	return &Dispatcher{
		sender:      sender,
		retries:     retries,
		log:         log,
		queue:       make(chan Message, opts.QueueSize),
		maxAttempts: opts.MaxAttempts,
		retryEvery:  opts.RetryEvery,
	}
}

// Start runs the worker until ctx is cancelled. Messages still queued at
// that point get one last attempt; Notify calls after that go to the retry
// queue and are logged as not sent.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		t := time.NewTicker(d.retryEvery)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				d.stop(ctx)
				return
			case msg := <-d.queue:
				d.deliver(ctx, Envelope{Message: msg})
			case <-t.C:
				d.retryPending(ctx)
			}
		}
	}()
}

// Wait blocks until the worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify queues msg without blocking. When the queue is full the message
// goes straight to the retry queue.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.log.Error("notification not sent, dispatcher is stopped",
			"id", msg.Id.String(), "to", strings.Join(msg.To, ","))
		d.postpone(ctx, msg)
		return
	}
	select {
	case d.queue <- msg:
		d.mu.Unlock()
		d.log.Debug("notification queued", "id", msg.Id.String())
		return
	default:
	}
	d.mu.Unlock()

	d.log.Warn("notification queue is full, deferring to retry queue", "id", msg.Id.String())
	d.postpone(ctx, msg)
}

func (d *Dispatcher) postpone(ctx context.Context, msg Message) {
	if err := d.retries.Push(context.WithoutCancel(ctx), Envelope{Message: msg}); err != nil {
		d.log.Error("notification lost", "id", msg.Id.String(), "error", err)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, env Envelope) {
	env.Attempts++
	err := d.sender.Send(ctx, env.Message)
	if err == nil {
		d.log.Info("notification sent",
			"id", env.Message.Id.String(),
			"to", strings.Join(env.Message.To, ","),
			"attempt", env.Attempts)
		return
	}

	if env.Attempts >= d.maxAttempts {
		d.log.Error("notification dropped after max attempts",
			"id", env.Message.Id.String(), "attempts", env.Attempts, "error", err)
		return
	}

	d.log.Error("notification failed, will retry",
		"id", env.Message.Id.String(), "attempt", env.Attempts, "error", err)
	if pushErr := d.retries.Push(ctx, env); pushErr != nil {
		d.log.Error("notification lost", "id", env.Message.Id.String(), "error", pushErr)
	}
}

// retryPending makes one pass over the messages that were waiting when it
// started; anything that fails again waits for the next tick.
func (d *Dispatcher) retryPending(ctx context.Context) {
	n, err := d.retries.Len(ctx)
	if err != nil {
		d.log.Error("cannot read retry queue", "error", err)
		return
	}

	for i := 0; i < n; i++ {
		env, ok, err := d.retries.Pop(ctx)
		if err != nil {
			d.log.Error("cannot read retry queue", "error", err)
			return
		}
		if !ok {
			return
		}
		d.deliver(ctx, env)
	}
}

// stop refuses further messages, gives the queued ones one last attempt
// and reports whatever is left in the retry queue.
func (d *Dispatcher) stop(parent context.Context) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()

drain:
	for {
		select {
		case msg := <-d.queue:
			d.deliver(ctx, Envelope{Message: msg})
		default:
			break drain
		}
	}

	n, err := d.retries.Len(ctx)
	if err != nil {
		d.log.Error("cannot read retry queue", "error", err)
		return
	}
	if n > 0 {
		d.log.Error("notifications left undelivered in retry queue", "count", n)
	}
}
