// Package queue provides the in-memory analytics queue the engine publishes to.
package queue

import (
	"sync"
)

// DataLayer is an append-only record queue. Subscribers see every record
// pushed after they subscribed, in push order.
type DataLayer struct {
	mu          sync.Mutex
	records     []map[string]any
	subscribers []func(map[string]any)
}

// NewDataLayer creates an empty queue.
func NewDataLayer() *DataLayer {
	return &DataLayer{}
}

// Push appends a record and notifies subscribers.
func (q *DataLayer) Push(record map[string]any) {
	q.mu.Lock()
	q.records = append(q.records, record)
	subscribers := append([]func(map[string]any){}, q.subscribers...)
	q.mu.Unlock()

	for _, fn := range subscribers {
		fn(record)
	}
}

// Subscribe registers fn for future records.
func (q *DataLayer) Subscribe(fn func(map[string]any)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subscribers = append(q.subscribers, fn)
}

// Records returns a copy of every record pushed so far.
func (q *DataLayer) Records() []map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]map[string]any(nil), q.records...)
}

// Events returns the event name of every record, in order.
func (q *DataLayer) Events() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.records))
	for _, r := range q.records {
		name, _ := r["event"].(string)
		names = append(names, name)
	}
	return names
}

// Count returns how many records carry the given event name.
func (q *DataLayer) Count(event string) int {
	n := 0
	for _, name := range q.Events() {
		if name == event {
			n++
		}
	}
	return n
}

// Len returns the number of records.
func (q *DataLayer) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}
