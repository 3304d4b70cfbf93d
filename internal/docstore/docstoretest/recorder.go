package docstoretest

import (
	"carecore/internal/docstore/core"
	"context"
	"fmt"
	"sync"
)

// Call is one recorded store operation.
type Call struct {
	Op         string
	Collection core.Collection
	ID         string
}

func (c Call) String() string { return fmt.Sprintf("%s %s/%s", c.Op, c.Collection, c.ID) }

// Recorder wraps a Store, recording every call and optionally failing
// selected operations.
type Recorder struct {
	core.Store

	mu    sync.Mutex
	calls []Call
	fail  map[Call]error
}

// NewRecorder wraps inner.
func NewRecorder(inner core.Store) *Recorder {
	return &Recorder{Store: inner, fail: make(map[Call]error)}
}

// FailOn makes the matching call return err instead of reaching the inner store.
func (r *Recorder) FailOn(op string, collection core.Collection, id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[Call{Op: op, Collection: collection, ID: id}] = err
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many calls matched op (and collection when non-empty).
func (r *Recorder) Count(op string, collection core.Collection) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op && (collection == "" || c.Collection == collection) {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(op string, collection core.Collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Call{Op: op, Collection: collection, ID: id}
	r.calls = append(r.calls, c)
	return r.fail[c]
}

func (r *Recorder) Set(ctx context.Context, collection core.Collection, id string, doc any) error {
	if err := r.record("set", collection, id); err != nil {
		return err
	}
	return r.Store.Set(ctx, collection, id, doc)
}

func (r *Recorder) Update(ctx context.Context, collection core.Collection, id string, fields map[string]any) error {
	if err := r.record("update", collection, id); err != nil {
		return err
	}
	return r.Store.Update(ctx, collection, id, fields)
}

func (r *Recorder) Delete(ctx context.Context, collection core.Collection, id string) error {
	if err := r.record("delete", collection, id); err != nil {
		return err
	}
	return r.Store.Delete(ctx, collection, id)
}

func (r *Recorder) Query(ctx context.Context, collection core.Collection, filter core.Filter) ([][]byte, error) {
	if err := r.record("query", collection, filter.Value); err != nil {
		return nil, err
	}
	return r.Store.Query(ctx, collection, filter)
}
