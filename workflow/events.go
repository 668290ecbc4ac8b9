package workflow

import (
	"sync"

	"screensolver/model"
	"screensolver/shared"
)

// EventKind names a phase-change notification pushed to the presentation layer.
type EventKind string

const (
	EventStart       EventKind = "start"
	EventNoCaptures  EventKind = "noCaptures"
	EventExtracted   EventKind = "extracted"
	EventSolved      EventKind = "solved"
	EventError       EventKind = "error"
	EventDebugStart  EventKind = "debugStart"
	EventDebugSolved EventKind = "debugSolved"
	EventDebugError  EventKind = "debugError"
	EventReset       EventKind = "reset"
)

// Event is what the orchestrator emits. Payload fields are set per kind:
// extracted carries the problem, solved/debugSolved carry the solution,
// error/debugError carry a kind and message.
type Event struct {
	Kind     EventKind
	Problem  *model.ProblemInfo
	Solution *model.SolutionInfo
	ErrKind  shared.Kind
	Message  string
}

// Notifier fans events out to subscribers. Subscriptions come and go as
// presentation surfaces attach and detach.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: map[int]func(Event){}}
}

// Subscribe registers fn and returns an id for Unsubscribe.
func (n *Notifier) Subscribe(fn func(Event)) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.subs[n.nextID] = fn
	return n.nextID
}

func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// Emit delivers ev to every subscriber. Callbacks run outside the lock so a
// subscriber may unsubscribe from within its handler.
func (n *Notifier) Emit(ev Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
