package ratelimit

import (
	"sync"
	"time"
)

// CommandLimiter tracks inbound command counts per connection within a
// sliding window. Frames over the budget are dropped by the caller, not
// terminal for the connection.
type CommandLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	max     int
	window  time.Duration
}

// NewCommandLimiter creates a CommandLimiter allowing max commands per window.
// A max of 0 disables limiting.
func NewCommandLimiter(max int, window time.Duration) *CommandLimiter {
	return &CommandLimiter{
		entries: make(map[string][]time.Time),
		max:     max,
		window:  window,
	}
}

// Allow returns true if the connection has not exceeded its command
// budget. If allowed, the command is recorded.
func (l *CommandLimiter) Allow(connID string) bool {
	if l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	timestamps := l.entries[connID]
	// Remove expired entries
	valid := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.max {
		l.entries[connID] = valid
		return false
	}

	l.entries[connID] = append(valid, now)
	return true
}

// Forget drops all state for a connection. Call when it disconnects.
func (l *CommandLimiter) Forget(connID string) {
	l.mu.Lock()
	delete(l.entries, connID)
	l.mu.Unlock()
}
