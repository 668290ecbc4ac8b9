package capture

import "sync"

// MaxCapacity bounds every queue. Inserting past it evicts the oldest entry.
const MaxCapacity = 5

// Queue is a bounded FIFO of captures. It has its own lock so appends keep
// working while the orchestrator is busy with an in-flight model call.
type Queue struct {
	mu    sync.Mutex
	items []Context
}

func NewQueue() *Queue {
	return &Queue{}
}

// Append adds c at the tail. If the queue was full it removes the head and
// returns it so the caller can delete the backing file; file I/O failures are
// then the caller's problem, never the queue's.
func (q *Queue) Append(c Context) (evicted Context, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, c)
	if len(q.items) > MaxCapacity {
		evicted = q.items[0]
		q.items = q.items[1:]
		return evicted, true
	}
	return Context{}, false
}

// Remove drops the entry with the given id and returns it. A missing id is a
// no-op, not an error.
func (q *Queue) Remove(id string) (Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, c := range q.items {
		if c.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return c, true
		}
	}
	return Context{}, false
}

// Snapshot returns an ordered copy safe to hand to renderers or the model client.
func (q *Queue) Snapshot() []Context {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Context, len(q.items))
	copy(out, q.items)
	return out
}

// Clear empties the queue and returns everything removed for bulk deletion.
// The queue stays usable afterwards.
func (q *Queue) Clear() []Context {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
