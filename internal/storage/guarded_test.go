package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vidtweet/backend/internal/apperr"
)

type fakeBackend struct {
	err     error
	calls   int
	deleted []string
	block   bool
}

func (f *fakeBackend) Upload(ctx context.Context, localPath string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + localPath, nil
}

func (f *fakeBackend) Delete(_ context.Context, location string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, location)
	return nil
}

func TestGuardedPassesThrough(t *testing.T) {
	backend := &fakeBackend{}
	g := NewGuarded(backend, GuardOptions{Timeout: time.Second})

	url, err := g.Upload(context.Background(), "avatar.png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.example.com/avatar.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if err := g.Delete(context.Background(), url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != url {
		t.Fatalf("unexpected deletions %v", backend.deleted)
	}
}

func TestGuardedOpensAfterConsecutiveFailures(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	g := NewGuarded(backend, GuardOptions{Timeout: time.Second, TripAfter: 3, OpenFor: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := g.Upload(context.Background(), "video.mp4"); err == nil {
			t.Fatal("expected backend error")
		}
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker to open, got %v", g.State())
	}

	_, err := g.Upload(context.Background(), "video.mp4")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if apperr.From(err).Kind != apperr.Unavailable {
		t.Fatalf("expected unavailable kind, got %v", apperr.From(err).Kind)
	}
	if backend.calls != 3 {
		t.Fatalf("expected open breaker to skip the backend, got %d calls", backend.calls)
	}
}

func TestGuardedAppliesTimeout(t *testing.T) {
	backend := &fakeBackend{block: true}
	g := NewGuarded(backend, GuardOptions{Timeout: 10 * time.Millisecond})

	_, err := g.Upload(context.Background(), "video.mp4")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if apperr.From(err).Kind != apperr.Unavailable {
		t.Fatalf("expected timeout to map to unavailable")
	}
}

func TestS3KeyFor(t *testing.T) {
	s := &S3Storage{bucket: "media", baseURL: "https://cdn.example.com"}

	cases := map[string]string{
		"https://cdn.example.com/abc.png":        "abc.png",
		"https://media.s3.amazonaws.com/abc.mp4": "abc.mp4",
		"http://localhost:9000/media/abc.jpg":    "abc.jpg",
	}
	for location, want := range cases {
		got, err := s.keyFor(location)
		if err != nil {
			t.Fatalf("keyFor(%q): %v", location, err)
		}
		if got != want {
			t.Fatalf("keyFor(%q) = %q, want %q", location, got, want)
		}
	}

	if _, err := s.keyFor("https://cdn.other.com/"); err == nil {
		t.Fatal("expected error for location without key")
	}
}
