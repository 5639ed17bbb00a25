package retry

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/jpdict"
	"github.com/birchill/hikibiki-data/pkg/log"
	"github.com/birchill/hikibiki-data/pkg/metrics"
)

// NetworkMonitor is the pluggable offline/online signal the controller
// waits on before retrying an attempt that failed with ErrOffline. No OS-level reachability
// probe is in scope; production callers and tests both inject their own
// implementation.
type NetworkMonitor interface {
	// Online reports current connectivity.
	Online() bool

	// Subscribe returns a channel that receives the latest Online()
	// value on every transition, plus an unsubscribe func.
	Subscribe() (<-chan bool, func())
}

// constraintViolationMaxRetries bounds the idle-timer retry for a
// storage constraint violation, per §4.6.
const constraintViolationMaxRetries = 2

// constraintViolationRetryDelay is the short idle timer between
// constraint-violation retries.
const constraintViolationRetryDelay = 2 * time.Second

// Config configures a Controller.
type Config struct {
	Facade  *jpdict.Facade
	Monitor NetworkMonitor
	Lang    string

	// OnError is invoked once for every error the controller gives up
	// on: a non-retriable error, or a constraint-violation error that
	// exhausts its retry budget. Retriable errors are retried without
	// limit, and ErrOffline waits for the network; neither is reported
	// here.
	OnError func(err error)

	// ConstraintViolationDelay overrides the fixed idle-timer delay
	// between storage constraint-violation retries. Zero uses
	// constraintViolationRetryDelay (2s).
	ConstraintViolationDelay time.Duration
}

// Controller drives a Facade.Update call on demand, retrying per §4.6:
// immediate attempt, offline wait, exponential backoff for retriable
// errors, a short idle-timer retry (up to twice) for storage constraint
// violations, and a single surfaced error otherwise.
type Controller struct {
	facade  *jpdict.Facade
	monitor NetworkMonitor
	lang    string
	onError func(error)
	logger  zerolog.Logger

	forceCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu            sync.Mutex
	running       bool
	inFirstRetry  bool
	cancelAttempt context.CancelFunc

	// backoffInitial overrides the exponential backoff's starting
	// interval; zero means the real 3s default. Only ever set by tests.
	backoffInitial time.Duration

	constraintDelay time.Duration
}

// New constructs a Controller from cfg.
func New(cfg Config) *Controller {
	delay := cfg.ConstraintViolationDelay
	if delay <= 0 {
		delay = constraintViolationRetryDelay
	}
	return &Controller{
		facade:          cfg.Facade,
		monitor:         cfg.Monitor,
		lang:            cfg.Lang,
		onError:         cfg.OnError,
		logger:          log.WithComponent("retry"),
		forceCh:         make(chan struct{}, 1),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
		constraintDelay: delay,
	}
}

// Start begins the idle loop. The first sync pass only happens once
// ForceUpdate is called (or a caller's own scheduler calls it) — the
// controller itself keeps no periodic timer, per §4.6.
func (c *Controller) Start() {
	go c.run()
}

// Stop cancels any in-flight attempt and ends the loop. Idempotent.
func (c *Controller) Stop() {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	c.mu.Lock()
	cancel := c.cancelAttempt
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-c.doneCh
}

// ForceUpdate requests an update pass, coalescing with any already
// pending request. Returns false without effect if an attempt is
// already running or a zero-length retry wait is in progress. It does
// not check whether the controller is waiting for the network: a request
// made then is queued and runs after the current pass returns.
func (c *Controller) ForceUpdate() bool {
	c.mu.Lock()
	blocked := c.running || c.inFirstRetry
	c.mu.Unlock()
	if blocked {
		return false
	}
	select {
	case c.forceCh <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Controller) run() {
	defer close(c.doneCh)
	for {
		select {
		case <-c.forceCh:
			c.runToCompletion()
		case <-c.stopCh:
			return
		}
	}
}

// runToCompletion retries Facade.Update until it succeeds, a
// non-retriable error is surfaced, or Stop is called.
func (c *Controller) runToCompletion() {
	bo := newDecimatedBackoff(c.backoffInitial)
	constraintTries := 0

	for {
		err := c.attempt()

		switch {
		case err == nil:
			return

		case isOffline(err):
			if c.waitForOnlineOrStop() {
				return
			}
			continue

		case isConstraintViolation(err):
			constraintTries++
			metrics.RetryAttemptsTotal.WithLabelValues("all", string(jpdicterrors.ClassStorage)).Inc()
			if constraintTries > constraintViolationMaxRetries {
				c.surface(err)
				return
			}
			if c.sleepOrStop(c.constraintDelay) {
				return
			}

		case jpdicterrors.Retriable(err):
			wait := bo.next()
			metrics.RetryAttemptsTotal.WithLabelValues("all", string(jpdicterrors.Classify(err))).Inc()
			metrics.RetryBackoffSeconds.WithLabelValues("all").Observe(wait.Seconds())
			if c.sleepOrStop(wait) {
				return
			}

		default:
			c.surface(err)
			return
		}
	}
}

// attempt runs one Facade.Update call under a cancelable context so
// Stop can abort an in-flight attempt.
func (c *Controller) attempt() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.running = true
	c.cancelAttempt = cancel
	c.mu.Unlock()

	err := c.facade.Update(ctx, c.lang, false)

	c.mu.Lock()
	c.running = false
	c.cancelAttempt = nil
	c.mu.Unlock()
	cancel()

	return err
}

// sleepOrStop blocks for d, marking the controller as "in its first
// immediate retry" only for the zero-wait case. The backoff and
// constraint-violation waits runToCompletion passes are positive, so a
// retriable failure always waits before the next attempt. Returns true
// if Stop fired.
func (c *Controller) sleepOrStop(d time.Duration) bool {
	immediate := d == 0
	c.mu.Lock()
	c.inFirstRetry = immediate
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFirstRetry = false
		c.mu.Unlock()
	}()

	if d == 0 {
		select {
		case <-c.stopCh:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-c.stopCh:
		return true
	}
}

func (c *Controller) waitForOnlineOrStop() bool {
	if c.monitor == nil || c.monitor.Online() {
		return false
	}
	ch, unsubscribe := c.monitor.Subscribe()
	defer unsubscribe()
	for {
		select {
		case online := <-ch:
			if online {
				return false
			}
		case <-c.stopCh:
			return true
		}
	}
}

func (c *Controller) surface(err error) {
	c.logger.Error().Err(err).Msg("update failed, not retrying further")
	if c.onError != nil {
		c.onError(err)
	}
}

func isOffline(err error) bool {
	return errors.Is(err, jpdicterrors.ErrOffline)
}

func isConstraintViolation(err error) bool {
	return errors.Is(err, jpdicterrors.ErrConstraintViolation)
}

// decimatedBackoff wraps backoff.ExponentialBackOff with
// RandomizationFactor disabled, then applies its own uniform jitter in
// [0, interval] and caps the sum at MaxInterval, so the resulting delay
// lands in [interval, min(2*interval, 12h)] — matching the testable
// property delay(n) in
// [min(3000*2^(n-1),12h), min(6000*2^(n-1),12h)] from §8, which the
// library's own (symmetric, zero-floor) jitter would not guarantee.
type decimatedBackoff struct {
	bo *backoff.ExponentialBackOff
}

func newDecimatedBackoff(initial time.Duration) *decimatedBackoff {
	if initial <= 0 {
		initial = 3 * time.Second
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.Multiplier = 2
	bo.MaxInterval = 12 * time.Hour
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0
	return &decimatedBackoff{bo: bo}
}

func (d *decimatedBackoff) next() time.Duration {
	base := d.bo.NextBackOff()
	if base <= 0 {
		base = d.bo.MaxInterval
	}
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	if delay := base + jitter; delay < d.bo.MaxInterval {
		return delay
	}
	return d.bo.MaxInterval
}
