package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type blobDeleterStub struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (s *blobDeleterStub) Delete(ctx context.Context, location string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, location)
	return nil
}

func (s *blobDeleterStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deleted)
}

func TestJanitorDeletesQueuedBlobs(t *testing.T) {
	blobs := &blobDeleterStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	janitor := NewJanitor(blobs, JanitorConfig{QueueSize: 4, Workers: 2}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = janitor.Shutdown(ctx)
	}()

	err := janitor.Enqueue(context.Background(), "https://cdn.example.com/a.png", "", "https://cdn.example.com/b.mp4")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return blobs.count() == 2 }, time.Second)
}

func TestJanitorShutdownDrainsQueue(t *testing.T) {
	blobs := &blobDeleterStub{}
	janitor := NewJanitor(blobs, JanitorConfig{QueueSize: 8, Workers: 1}, nil)

	for _, location := range []string{"a", "b", "c"} {
		if err := janitor.Enqueue(context.Background(), location); err != nil {
			t.Fatalf("enqueue %s: %v", location, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if blobs.count() != 3 {
		t.Fatalf("expected queued deletions to finish, got %d", blobs.count())
	}

	if err := janitor.Enqueue(context.Background(), "d"); !errors.Is(err, ErrJanitorClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestJanitorSurvivesDeleteFailure(t *testing.T) {
	blobs := &blobDeleterStub{err: errors.New("access denied")}
	janitor := NewJanitor(blobs, JanitorConfig{QueueSize: 1, Workers: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := janitor.Enqueue(context.Background(), "a", "b"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func waitForCondition(t *testing.T, predicate func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
