// Package routing models navigation for the document list: read-only route
// snapshots flowing in, navigation requests flowing out.
package routing

import (
	"net/url"
	"sync"
)

// Snapshot is one navigation event: the saved-view path segment (if any)
// and the query parameters, captured together so consumers can decide
// which one is authoritative without racing a second observer.
type Snapshot struct {
	// ViewID is the saved-view identifier carried as a path segment,
	// or nil for the unscoped document list. A non-nil ViewID takes
	// precedence over any query parameters present.
	ViewID *int64

	// Query holds the query parameters of the route.
	Query url.Values

	// NotFound marks the terminal not-found route.
	NotFound bool
}

// Clone returns a deep copy of the snapshot. Snapshots handed to observers
// are read-only; cloning keeps later navigations from mutating them.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{NotFound: s.NotFound}
	if s.ViewID != nil {
		id := *s.ViewID
		out.ViewID = &id
	}
	if s.Query != nil {
		out.Query = make(url.Values, len(s.Query))
		for k, vs := range s.Query {
			out.Query[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// Navigator is the navigation surface the view-state controller issues
// requests against. It never manipulates history directly.
type Navigator interface {
	// OpenSavedView navigates to the route scoped to a saved view.
	OpenSavedView(id int64)
	// OpenDocuments navigates to the unscoped document list with the
	// given query parameters (nil for none).
	OpenDocuments(query url.Values)
	// NotFound navigates to the not-found route.
	NotFound()
}

// Router is the in-process Navigator used by the TUI and by tests. Each
// navigation produces exactly one snapshot delivered to every observer.
type Router struct {
	mu        sync.Mutex
	current   Snapshot
	nextID    int
	observers map[int]func(Snapshot)
}

// NewRouter returns a router positioned at the unscoped document list.
func NewRouter() *Router {
	return &Router{
		current:   Snapshot{Query: url.Values{}},
		observers: make(map[int]func(Snapshot)),
	}
}

// Observe registers fn to receive every future snapshot and returns a
// cancel function. Cancel is idempotent and must run at teardown.
func (r *Router) Observe(fn func(Snapshot)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.observers, id)
			r.mu.Unlock()
		})
	}
}

// Current returns the latest snapshot.
func (r *Router) Current() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone()
}

// OpenSavedView implements Navigator.
func (r *Router) OpenSavedView(id int64) {
	r.navigate(Snapshot{ViewID: &id, Query: url.Values{}})
}

// OpenDocuments implements Navigator.
func (r *Router) OpenDocuments(query url.Values) {
	if query == nil {
		query = url.Values{}
	}
	r.navigate(Snapshot{Query: query})
}

// NotFound implements Navigator.
func (r *Router) NotFound() {
	r.navigate(Snapshot{NotFound: true})
}

func (r *Router) navigate(s Snapshot) {
	r.mu.Lock()
	r.current = s
	fns := make([]func(Snapshot), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
}
