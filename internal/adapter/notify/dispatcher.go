package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/observ"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

var ErrQueueFull = errors.New("notification queue full")

// Sender delivers one committed order notification: mail directly, or a
// publish to the broker.
type Sender interface {
	Send(ctx context.Context, msg usecase.OrderPlacedMsg) error
}

type SenderFunc func(ctx context.Context, msg usecase.OrderPlacedMsg) error

func (f SenderFunc) Send(ctx context.Context, msg usecase.OrderPlacedMsg) error { return f(ctx, msg) }

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration // per delivery attempt
	MaxElapsed  time.Duration // retry budget per message
	InitialWait time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = time.Minute
	}
	if c.InitialWait <= 0 {
		c.InitialWait = 500 * time.Millisecond
	}
	return c
}

type job struct {
	msg usecase.OrderPlacedMsg
	log *slog.Logger
}

// AsyncDispatcher is the usecase.Notifier used by the purchase workflow. It
// accepts messages without blocking and delivers them from a worker pool.
type AsyncDispatcher struct {
	sender Sender
	cfg    DispatcherConfig

	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncDispatcher(sender Sender, cfg DispatcherConfig) *AsyncDispatcher {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	d := &AsyncDispatcher{
		sender: sender,
		cfg:    cfg,
		queue:  make(chan job, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// OrderPlaced enqueues msg. A full queue or a closed dispatcher drops it.
func (d *AsyncDispatcher) OrderPlaced(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		observ.ObserveNotification(observ.NotifyDropped)
		return ErrQueueFull
	}
	select {
	case d.queue <- job{msg: msg, log: logging.FromCtx(ctx)}:
		return nil
	default:
		observ.ObserveNotification(observ.NotifyDropped)
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to drain. When ctx
// expires first, in-flight retries are abandoned.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *AsyncDispatcher) deliver(j job) {
	log := j.log.With("order_id", j.msg.OrderID)
	defer func() {
		if r := recover(); r != nil {
			observ.ObserveNotification(observ.NotifyPanic)
			log.Error("notification sender panicked", "panic", r)
		}
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialWait
	b.MaxElapsedTime = d.cfg.MaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
		defer cancel()
		if err := d.sender.Send(ctx, j.msg); err != nil {
			if Permanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("notification attempt failed", "attempt", attempt, "retry_in", wait, "err", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, d.ctx), notify); err != nil {
		observ.ObserveNotification(observ.NotifyFailed)
		log.Error("notification given up", "attempts", attempt, "err", err)
		return
	}
	observ.ObserveNotification(observ.NotifySent)
	log.Info("notification delivered", "attempts", attempt, "to", j.msg.CustomerEmail)
}

var _ usecase.Notifier = (*AsyncDispatcher)(nil)
