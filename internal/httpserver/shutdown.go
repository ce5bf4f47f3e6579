package httpserver

import (
	"context"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownContext returns a context detached from parent cancellation that
// expires after timeout, so in-flight requests can drain after a signal.
func ShutdownContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
