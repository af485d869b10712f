package tui

import (
	"log/slog"
	"sync"
)

// Notices collects user-facing error messages raised by collaborators
// during an update cycle. The model drains it after every interaction and
// surfaces the messages as flash text, keeping the render loop free of
// callback re-entrancy.
type Notices struct {
	mu     sync.Mutex
	queued []string
	logger *slog.Logger
}

// NewNotices creates an empty notice queue. logger may be nil.
func NewNotices(logger *slog.Logger) *Notices {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notices{logger: logger}
}

// Error queues a user-facing summary and logs the underlying error.
func (n *Notices) Error(summary string, err error) {
	n.logger.Error(summary, "error", err)
	n.mu.Lock()
	n.queued = append(n.queued, summary)
	n.mu.Unlock()
}

// Drain returns and clears the queued messages.
func (n *Notices) Drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queued
	n.queued = nil
	return out
}
