package delayhandler

import (
	"context"
	"sync"
	"time"

	"github.com/de-sh/delay-handler/async"
	"github.com/de-sh/delay-handler/lifecycle"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// Action is the function run by the dispatcher for each expired value. When
// it returns an error the value is re-inserted with an exponential backoff
// capped at the configured maximum, and the action runs again once that
// delay elapses.
type Action[V comparable] func(ctx context.Context, value V) error

// Dispatcher drives a DelayMap in push mode: it waits for entries to expire
// and runs the configured action for each expired value on a worker pool.
// Unlike Next, the dispatcher sleeps through idle periods and resumes when
// new values are inserted.
type Dispatcher[V comparable] struct {
	m      *DelayMap[V]
	action Action[V]

	pool    *async.Pool
	life    lifecycle.LifeCycle
	limiter *rate.Limiter

	cfg Config

	backoffMu sync.Mutex
	backoff   map[V]time.Duration // per-value retry delay, reset on success

	processed atomic.Int64
	failures  atomic.Int64
}

// NewDispatcher returns a dispatcher running action for every value
// expiring in m.
func NewDispatcher[V comparable](m *DelayMap[V], action Action[V], cfg Config) *Dispatcher[V] {
	cfg.normalize()

	d := &Dispatcher[V]{
		m:       m,
		action:  action,
		pool:    async.NewPool(async.PoolOptions{MaxWorkers: cfg.MaxDispatchWorkers}),
		life:    lifecycle.NewLifeCycle(),
		cfg:     cfg,
		backoff: make(map[V]time.Duration),
	}
	if cfg.DispatchRate > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRate), cfg.DispatchBurst)
	}
	return d
}

// Start starts the dispatcher processing. Start is idempotent.
func (d *Dispatcher[V]) Start() {
	if !d.life.Start() {
		return
	}

	go d.run()
	log.Info("delayhandler.Dispatcher started")
}

// Stop stops the dispatcher and waits for actions already handed to the
// worker pool to finish. Entries still pending in the map are left
// untouched and get picked up again after a restart. Stop is idempotent.
func (d *Dispatcher[V]) Stop() {
	if !d.life.Stop() {
		return
	}

	d.life.Wait()
	d.pool.WaitUntilProcessed()
	d.pool.Stop()
	log.Info("delayhandler.Dispatcher stopped")
}

// Processed returns the number of actions that completed without error.
func (d *Dispatcher[V]) Processed() int64 {
	return d.processed.Load()
}

// Failures returns the number of action invocations that returned an error.
func (d *Dispatcher[V]) Failures() int64 {
	return d.failures.Load()
}

func (d *Dispatcher[V]) run() {
	defer d.life.StopComplete()

	stopChan := d.life.StopCh()

	// Context handed to the rate limiter and the actions. Cancelled when
	// the dispatcher stops, so in-flight actions can wrap up while Stop
	// drains the pool.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopChan
		cancel()
	}()

	for {
		value, ok := d.m.next(stopChan)
		if !ok {
			return
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				// Stopping; put the value back so a restart picks
				// it up instead of losing it.
				_ = d.m.Insert(value, 0)
				return
			}
		}

		d.pool.Enqueue(async.JobFunc(func(context.Context) {
			d.runAction(ctx, value)
		}))
	}
}

// runAction executes the action for an expired value, rescheduling the
// value with backoff when the action fails.
func (d *Dispatcher[V]) runAction(ctx context.Context, value V) {
	if err := d.action(ctx, value); err != nil {
		d.failures.Inc()
		delay := d.nextBackoff(value)

		log.WithError(err).
			WithField("delaymap_value", value).
			WithField("retry_delay", delay).
			Info("dispatcher action failed, value rescheduled")

		if insertErr := d.m.Insert(value, delay); insertErr != nil {
			// The caller re-inserted the value while the action was
			// running; that entry owns the retry now.
			log.WithField("delaymap_value", value).
				Debug("value already pending, retry skipped")
		}
		return
	}

	d.clearBackoff(value)
	d.processed.Inc()
}

func (d *Dispatcher[V]) nextBackoff(value V) time.Duration {
	d.backoffMu.Lock()
	defer d.backoffMu.Unlock()

	delay := d.backoff[value] + d.cfg.FailureRetryDelay
	if delay > d.cfg.MaxRetryDelay {
		delay = d.cfg.MaxRetryDelay
	}
	d.backoff[value] = delay
	return delay
}

func (d *Dispatcher[V]) clearBackoff(value V) {
	d.backoffMu.Lock()
	defer d.backoffMu.Unlock()

	delete(d.backoff, value)
}
