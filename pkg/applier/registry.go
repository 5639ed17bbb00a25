package applier

import (
	"sync"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/store"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// Registry enforces the concurrency guard in §4.3: at most one in-flight
// Applier per (Store, series). It also holds the cancel func for the
// active attempt so a caller can implement cancelUpdate(store, series).
type Registry struct {
	mu     sync.Mutex
	active map[registryKey]func()
}

type registryKey struct {
	store  store.Store
	series types.Series
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[registryKey]func())}
}

// Acquire registers st/series as active, storing cancel so CancelActive
// can later abort it. Returns ErrOverlappingUpdate if an Applier for the
// same (Store, series) is already active.
func (r *Registry) Acquire(st store.Store, series types.Series, cancel func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{st, series}
	if _, ok := r.active[key]; ok {
		return jpdicterrors.WithSeries(series.String(), jpdicterrors.ErrOverlappingUpdate)
	}
	r.active[key] = cancel
	return nil
}

// Release clears the active entry for (st, series). Safe to call even if
// nothing is registered.
func (r *Registry) Release(st store.Store, series types.Series) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, registryKey{st, series})
}

// CancelActive invokes the cancel func registered for (st, series), if
// any, and reports whether one was found.
func (r *Registry) CancelActive(st store.Store, series types.Series) bool {
	r.mu.Lock()
	cancel, ok := r.active[registryKey{st, series}]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
