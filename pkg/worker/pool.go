// Package worker provides an asynchronous worker pool for background jobs
// that must never hold up the caller: a full queue drops the job instead of
// blocking, and failed jobs are retried with backoff before being reported.
//
// Jobs that share a key always run on the same worker, in the order they were
// enqueued.
package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/leo/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultTimeout           = 10 * time.Second
	defaultRetryDelay        = 100 * time.Millisecond
	maxRetryDelay            = 2 * time.Second
)

// ErrQueueFull is reported for jobs dropped because their queue was full.
var ErrQueueFull = errors.New("job queue full")

// Job is a unit of work for the worker pool to execute.
type Job struct {
	// Name describes the job in logs and failure reports.
	Name string

	// Key orders jobs. Jobs with the same key run sequentially.
	Key string

	// Run does the work. It receives a context bounded by the pool timeout.
	Run func(ctx context.Context) error
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of each worker's buffered job channel
	// (defaults to 256).
	QueueSize uint

	// MaxRetries is how many times a failed job is retried. Zero runs each
	// job once.
	MaxRetries uint

	// Timeout bounds each attempt (defaults to 10s).
	Timeout time.Duration

	// RetryDelay is the first backoff delay; it doubles per retry up to 2s.
	RetryDelay time.Duration

	// OnFailure is called when a job is dropped or exhausts its retries.
	OnFailure func(job Job, err error)

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Pool processes jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queues []chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queues: make([]chan Job, c.NumWorkers),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		wp.queues[i] = make(chan Job, c.QueueSize)
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "job", job.Name, "key", job.Key)
		return false
	}

	select {
	case p.queues[p.shard(job.Key)] <- job:
		p.logger.Debug("job queued", "job", job.Name, "key", job.Key)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "job", job.Name, "key", job.Key)
		if p.config.OnFailure != nil {
			p.config.OnFailure(job, ErrQueueFull)
		}
		return false
	}
}

// Close stops accepting jobs and waits for queued and in-flight jobs to
// drain. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) shard(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// worker is the inner worker thread that continuously pulls jobs off its queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queues[id] {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob runs a job, retrying failed attempts with exponential backoff.
func (p *Pool) processJob(job Job) {
	delay := p.config.RetryDelay
	var err error

	for attempt := uint(0); attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying job", "job", job.Name, "key", job.Key, "attempt", attempt, "delay", delay)
			time.Sleep(delay)
			delay = min(delay*2, maxRetryDelay)
		}

		err = p.runAttempt(job)
		if err == nil {
			p.logger.Debug("job done", "job", job.Name, "key", job.Key)
			return
		}
	}

	p.logger.Warn("job failed",
		"job", job.Name,
		"key", job.Key,
		"attempts", p.config.MaxRetries+1,
		"error", err,
	)
	if p.config.OnFailure != nil {
		p.config.OnFailure(job, err)
	}
}

func (p *Pool) runAttempt(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()
	return job.Run(ctx)
}
