// Package events provides a small in-process signal used to notify
// subscribers that document consumption has finished.
package events

import "sync"

// Signal is a broadcast event with no payload. Subscribers register a
// callback and receive every Publish until their cancel function runs.
// Delivery happens synchronously on the publishing goroutine.
type Signal struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewSignal returns an empty signal.
func NewSignal() *Signal {
	return &Signal{subs: make(map[int]func())}
}

// Subscribe registers fn and returns its cancel function. Cancel is
// idempotent; after it returns, Publish never invokes fn again. Callers own
// the cancel function and must run it at teardown — a forgotten cancel
// leaks a handler that can fire against a destroyed subscriber.
func (s *Signal) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Publish invokes every live subscriber.
func (s *Signal) Publish() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SubscriberCount reports the number of live subscriptions.
func (s *Signal) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
