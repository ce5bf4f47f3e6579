package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/metrics"
)

// ErrUnavailable is returned while the breaker rejects calls to the blob store.
var ErrUnavailable = apperr.Sentinel(apperr.Unavailable, "media storage is unavailable, retry later")

// Backend is a blob store that can upload local files and delete them by URL.
type Backend interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, location string) error
}

// Guarded bounds every blob call with a timeout and trips a circuit breaker
// when the backend keeps failing.
type Guarded struct {
	backend Backend
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[string]
}

// GuardOptions tunes the breaker.
type GuardOptions struct {
	Timeout          time.Duration
	OpenFor          time.Duration
	TripAfter        uint32
	HalfOpenRequests uint32
	Logger           *slog.Logger
}

// NewGuarded wraps backend.
func NewGuarded(backend Backend, opts GuardOptions) *Guarded {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 5
	}
	if opts.HalfOpenRequests == 0 {
		opts.HalfOpenRequests = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics.BlobBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "blob-storage",
		MaxRequests: opts.HalfOpenRequests,
		Interval:    time.Minute,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state transition",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BlobBreakerState.Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a backend failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Guarded{backend: backend, timeout: opts.Timeout, cb: cb}
}

// Upload stores localPath and returns its URL.
func (g *Guarded) Upload(ctx context.Context, localPath string) (string, error) {
	return g.execute(ctx, "upload", func(ctx context.Context) (string, error) {
		return g.backend.Upload(ctx, localPath)
	})
}

// Delete removes the blob at location.
func (g *Guarded) Delete(ctx context.Context, location string) error {
	_, err := g.execute(ctx, "delete", func(ctx context.Context) (string, error) {
		return "", g.backend.Delete(ctx, location)
	})
	return err
}

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.cb.State()
}

func (g *Guarded) execute(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.cb.Execute(func() (string, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = ErrUnavailable
	}
	metrics.RecordBlobOperation(op, err)
	return out, err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
