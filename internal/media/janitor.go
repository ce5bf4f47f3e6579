package media

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vidtweet/backend/internal/metrics"
)

// BlobDeleter removes blobs by URL.
type BlobDeleter interface {
	Delete(ctx context.Context, location string) error
}

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Janitor asynchronously deletes blobs that no entity references anymore:
// uploads whose entity write failed, replaced images and deleted videos.
type Janitor struct {
	blobs   BlobDeleter
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ErrJanitorClosed is returned by Enqueue after Shutdown.
var ErrJanitorClosed = errors.New("blob janitor closed")

// NewJanitor starts the worker pool.
func NewJanitor(blobs BlobDeleter, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		blobs:   blobs,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Enqueue schedules deletion of every non-empty location.
func (j *Janitor) Enqueue(ctx context.Context, locations ...string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return ErrJanitorClosed
	}

	for _, location := range locations {
		if strings.TrimSpace(location) == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-j.ctx.Done():
			return ErrJanitorClosed
		case j.jobs <- location:
			metrics.JanitorQueueDepth.Inc()
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	// Unblock pending Enqueue calls before taking the write lock.
	j.cancel()

	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.jobs)
	}
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	for location := range j.jobs {
		metrics.JanitorQueueDepth.Dec()
		j.delete(location)
	}
}

func (j *Janitor) delete(location string) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.blobs.Delete(ctx, location); err != nil {
		j.logger.Error("delete orphaned blob", slog.String("location", location), slog.Any("error", err))
		return
	}
	j.logger.Debug("deleted orphaned blob", slog.String("location", location))
}
