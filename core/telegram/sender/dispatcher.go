package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when a job is submitted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
}

// Job is a unit of outbound work. Run must be safe to repeat when retries are enabled.
type Job struct {
	Action   string
	Endpoint string
	Run      func(ctx context.Context) error
}

type queued struct {
	ctx context.Context
	job Job
}

// Dispatcher runs outbound Telegram calls on a worker pool with retries.
// It carries fire-and-forget traffic that must not hold the chat lock, such as owner notifications.
type Dispatcher struct {
	opts   Options
	jobs   chan queued
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	done   atomic.Uint64
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher, filling zero options with defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts: opts,
		jobs: make(chan queued, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Submit queues job without waiting for it. The request context only carries log metadata;
// cancellation of ctx does not cancel the job.
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	if job.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- queued{ctx: context.WithoutCancel(ctx), job: job}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Completed returns the number of jobs that finished successfully.
func (d *Dispatcher) Completed() uint64 {
	return d.done.Load()
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for q := range d.jobs {
		d.handle(q.ctx, q.job)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job Job) {
	runCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	attempt := 0
	err := netutil.Do(runCtx, attempts, d.opts.RetryBackoff, func() error {
		attempt++
		if attempt > 1 {
			logger.Debug(ctx, "tg.sender", "send.retry", append(jobAttrs(job), slog.Int("attempt", attempt))...)
		}
		return runSafely(runCtx, job)
	})
	if err != nil {
		d.errs.Add(1)
		logger.Error(ctx, "tg.sender", "send.fail", append(jobAttrs(job),
			slog.String("err", sanitizeErrorMessage(err)),
			slog.String("error_kind", classifyError(err)),
			slog.Int("attempts", attempt),
			slog.Duration("elapsed", logger.Took(start)),
		)...)
		return
	}
	d.done.Add(1)
	attrs := append(jobAttrs(job), slog.Duration("elapsed", logger.Took(start)))
	if attempt > 1 {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("telegram sender: job panicked")
		}
	}()
	return job.Run(ctx)
}

func jobAttrs(job Job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", job.Action)}
	if job.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", job.Endpoint))
	}
	return attrs
}
