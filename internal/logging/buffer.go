package logging

import (
	"sync"
	"time"
)

// LogEntry is one buffered record as served by GET /api/logs.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent entries up to a fixed capacity.
// It is safe for concurrent use.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int  // slot the next Write fills
	full    bool // every slot holds an entry
}

// NewRingBuffer creates a buffer holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, max(size, 1))}
}

// Write stores entry, evicting the oldest when the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
}

// ReadAll returns every entry, oldest first, or nil when empty.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Tail(0)
}

// Count returns the number of entries in the buffer.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.countLocked()
}

func (rb *RingBuffer) countLocked() int {
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

// Tail returns up to n of the most recent entries, oldest first.
// A non-positive n returns everything.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	count := rb.countLocked()
	if count == 0 {
		return nil
	}
	if n <= 0 || n > count {
		n = count
	}

	// Walk back from the newest entry, then fill the result front to back
	result := make([]LogEntry, n)
	start := rb.next - n
	if start < 0 {
		start += len(rb.entries)
	}
	for i := range n {
		result[i] = rb.entries[(start+i)%len(rb.entries)]
	}
	return result
}
