package blobtest

import (
	"carecore/internal/blob/core"
	"context"
	"sort"
	"sync"
)

// Recorder wraps a Store, recording deleted keys and failing selected ones.
type Recorder struct {
	core.Store

	mu      sync.Mutex
	deletes []string
	fail    map[string]error
}

// NewRecorder wraps inner.
func NewRecorder(inner core.Store) *Recorder {
	return &Recorder{Store: inner, fail: make(map[string]error)}
}

// FailDelete makes Delete(key) return err.
func (r *Recorder) FailDelete(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[key] = err
}

// Delete records key before delegating.
func (r *Recorder) Delete(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	r.deletes = append(r.deletes, key)
	err := r.fail[key]
	r.mu.Unlock()
	if err != nil {
		return false, err
	}
	return r.Store.Delete(ctx, key)
}

// Deletes returns every key passed to Delete, sorted.
func (r *Recorder) Deletes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.deletes...)
	sort.Strings(out)
	return out
}
