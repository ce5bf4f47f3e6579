package toggle

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// setRelation stores relations in a shared set with a uniqueness check, the
// same guarantee the database constraint gives.
type setRelation struct {
	mu  *sync.Mutex
	set map[string]int
	key string
}

func newSet() (*sync.Mutex, map[string]int) {
	return &sync.Mutex{}, make(map[string]int)
}

func (r *setRelation) Name() string { return "like" }

func (r *setRelation) Exists(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set[r.key] > 0, nil
}

func (r *setRelation) Create(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set[r.key] > 0 {
		return ErrDuplicate
	}
	r.set[r.key]++
	return nil
}

func (r *setRelation) Remove(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set[r.key] == 0 {
		return false, nil
	}
	delete(r.set, r.key)
	return true, nil
}

func TestFlipAlternates(t *testing.T) {
	mu, set := newSet()
	rel := &setRelation{mu: mu, set: set, key: "user-1:video-1"}

	for n := 1; n <= 7; n++ {
		state, err := Flip(context.Background(), rel)
		if err != nil {
			t.Fatalf("flip %d: %v", n, err)
		}
		wantPresent := n%2 == 1
		if bool(state) != wantPresent {
			t.Fatalf("after %d flips expected present=%v got %s", n, wantPresent, state)
		}
		if got := set[rel.key]; (got == 1) != wantPresent || got > 1 {
			t.Fatalf("after %d flips store holds %d rows", n, got)
		}
	}
}

func TestFlipDuplicateInsertReportsCurrentState(t *testing.T) {
	mu, set := newSet()
	rel := &setRelation{mu: mu, set: set, key: "user-1:tweet-9"}

	// Another request inserts between our read and our write.
	racer := &setRelation{mu: mu, set: set, key: rel.key}
	raced := &interleaved{Relation: rel, beforeCreate: func() {
		if err := racer.Create(context.Background()); err != nil {
			t.Errorf("racer create: %v", err)
		}
	}}

	state, err := Flip(context.Background(), raced)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if state != Present {
		t.Fatalf("expected present after losing the race, got %s", state)
	}
	if set[rel.key] != 1 {
		t.Fatalf("expected exactly one row, got %d", set[rel.key])
	}
}

type interleaved struct {
	Relation
	beforeCreate func()
}

func (i *interleaved) Create(ctx context.Context) error {
	i.beforeCreate()
	return i.Relation.Create(ctx)
}

func TestFlipConcurrentNeverDuplicates(t *testing.T) {
	mu, set := newSet()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel := &setRelation{mu: mu, set: set, key: "user-1:comment-3"}
			if _, err := Flip(context.Background(), rel); err != nil {
				t.Errorf("flip: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := set["user-1:comment-3"]; got > 1 {
		t.Fatalf("uniqueness violated: %d rows", got)
	}
}

type failingRelation struct {
	setRelation
	createErr error
}

func (f *failingRelation) Create(context.Context) error { return f.createErr }

func TestFlipPropagatesStoreErrors(t *testing.T) {
	mu, set := newSet()
	boom := errors.New("connection reset")
	rel := &failingRelation{setRelation: setRelation{mu: mu, set: set, key: "k"}, createErr: boom}

	if _, err := Flip(context.Background(), rel); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
