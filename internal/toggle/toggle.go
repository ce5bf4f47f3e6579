// Package toggle implements the create-or-remove state machine shared by likes
// and subscriptions.
//
// A toggle reads the relation and then writes, so two concurrent requests can
// both observe the same state. The store's unique constraint keeps the relation
// at most one row; an insert rejected by that constraint means another request
// completed the toggle first, so the current state is re-read and reported.
package toggle

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidtweet/backend/internal/metrics"
)

// ErrDuplicate is returned by Relation.Create when the relation already exists.
var ErrDuplicate = errors.New("relation already exists")

// State is the relation state after a toggle.
type State bool

const (
	Absent  State = false
	Present State = true
)

func (s State) String() string {
	if s {
		return "present"
	}
	return "absent"
}

// Relation is one (actor, target) pair in a store that enforces uniqueness.
type Relation interface {
	// Name labels the relation in metrics, e.g. "like" or "subscription".
	Name() string
	Exists(ctx context.Context) (bool, error)
	// Create inserts the relation, returning ErrDuplicate when it already exists.
	Create(ctx context.Context) error
	// Remove deletes the relation and reports whether a row was removed.
	Remove(ctx context.Context) (bool, error)
}

// Flip moves rel to the opposite state and returns the resulting state.
func Flip(ctx context.Context, rel Relation) (State, error) {
	exists, err := rel.Exists(ctx)
	if err != nil {
		return Absent, fmt.Errorf("read %s: %w", rel.Name(), err)
	}

	if exists {
		// A concurrent remove leaves the relation absent too, so removed is
		// only interesting for metrics.
		removed, err := rel.Remove(ctx)
		if err != nil {
			return Present, fmt.Errorf("remove %s: %w", rel.Name(), err)
		}
		outcome := Absent.String()
		if !removed {
			outcome = "raced"
		}
		metrics.RecordToggle(rel.Name(), outcome)
		return Absent, nil
	}

	if err := rel.Create(ctx); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return Absent, fmt.Errorf("create %s: %w", rel.Name(), err)
		}
		metrics.RecordToggle(rel.Name(), "raced")
		exists, err := rel.Exists(ctx)
		if err != nil {
			return Absent, fmt.Errorf("re-read %s: %w", rel.Name(), err)
		}
		return State(exists), nil
	}

	metrics.RecordToggle(rel.Name(), Present.String())
	return Present, nil
}
