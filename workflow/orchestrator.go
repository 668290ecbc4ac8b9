package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"screensolver/capture"
	"screensolver/model"
	"screensolver/shared"
)

// Phase is the orchestrator's current workflow stage.
type Phase string

const (
	PhaseQueue     Phase = "queue"     // capturing, nothing solved yet
	PhaseSolving   Phase = "solving"   // extract+solve in flight
	PhaseSolutions Phase = "solutions" // solution available, idle
	PhaseDebugging Phase = "debugging" // debug in flight
)

// ModelBackend is what the orchestrator needs from the model client.
// *model.Client satisfies it; tests substitute a fake.
type ModelBackend interface {
	Extract(ctx context.Context, contexts []capture.Context) (model.ProblemInfo, error)
	Solve(ctx context.Context, problem model.ProblemInfo) (model.SolutionInfo, error)
	Debug(ctx context.Context, problem model.ProblemInfo, currentAnswer string, contexts []capture.Context) (model.SolutionInfo, error)
}

// Orchestrator drives the capture→extract→solve→debug pipeline. All state
// transitions and store writes happen on one loop goroutine; model calls run
// in workers whose completions are funneled back through that loop and
// epoch-checked, so a reset or a newer request makes stale results fall on
// the floor instead of into the stores.
//
// Event subscribers run synchronously on the loop; they must not block.
type Orchestrator struct {
	backend ModelBackend
	source  capture.Source

	problems  *ProblemStore
	solutions *SolutionStore
	initialQ  *capture.Queue
	debugQ    *capture.Queue
	notifier  *Notifier

	cmds     chan func()
	quit     chan struct{}
	stopOnce sync.Once

	baseCtx    context.Context
	baseCancel context.CancelFunc

	// Owned by the loop goroutine.
	phase  Phase
	stable Phase // where to land after an error or cancellation
	epoch  uint64
	cancel context.CancelFunc
}

// New builds an orchestrator and starts its loop. source may be nil when the
// host appends captures itself.
func New(backend ModelBackend, source capture.Source) *Orchestrator {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		backend:    backend,
		source:     source,
		problems:   &ProblemStore{},
		solutions:  &SolutionStore{},
		initialQ:   capture.NewQueue(),
		debugQ:     capture.NewQueue(),
		notifier:   NewNotifier(),
		cmds:       make(chan func(), 64),
		quit:       make(chan struct{}),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		phase:      PhaseQueue,
		stable:     PhaseQueue,
	}
	go o.loop()
	return o
}

func (o *Orchestrator) loop() {
	for {
		select {
		case fn := <-o.cmds:
			fn()
		case <-o.quit:
			return
		}
	}
}

// Close cancels in-flight work and stops the loop.
func (o *Orchestrator) Close() {
	o.stopOnce.Do(func() {
		o.baseCancel()
		close(o.quit)
	})
}

func (o *Orchestrator) post(fn func()) bool {
	select {
	case o.cmds <- fn:
		return true
	case <-o.quit:
		return false
	}
}

// run posts fn and waits for the loop to execute it.
func (o *Orchestrator) run(fn func()) bool {
	done := make(chan struct{})
	if !o.post(func() {
		fn()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-o.quit:
		return false
	}
}

// apply runs fn on the loop only if the given epoch is still current. This is
// the gate every worker completion passes before touching a store.
func (o *Orchestrator) apply(epoch uint64, fn func()) bool {
	applied := false
	ok := o.run(func() {
		if epoch == o.epoch {
			fn()
			applied = true
		}
	})
	return ok && applied
}

// supersede invalidates any in-flight work: the epoch moves on and the live
// cancellation token, if any, fires.
func (o *Orchestrator) supersede() {
	o.epoch++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) activeQueue() *capture.Queue {
	if o.phase == PhaseSolutions || o.phase == PhaseDebugging {
		return o.debugQ
	}
	return o.initialQ
}

// Subscribe registers a presentation-layer event handler.
func (o *Orchestrator) Subscribe(fn func(Event)) int {
	return o.notifier.Subscribe(fn)
}

func (o *Orchestrator) Unsubscribe(id int) {
	o.notifier.Unsubscribe(id)
}

// Phase reports the current workflow phase.
func (o *Orchestrator) Phase() Phase {
	var p Phase
	if !o.run(func() { p = o.phase }) {
		return PhaseQueue
	}
	return p
}

// Problem and Solution expose the stores read-only.
func (o *Orchestrator) Problem() *model.ProblemInfo      { return o.problems.Get() }
func (o *Orchestrator) Solution() *model.SolutionInfo    { return o.solutions.Get() }
func (o *Orchestrator) Captures() []capture.Context      { return o.initialQ.Snapshot() }
func (o *Orchestrator) DebugCaptures() []capture.Context { return o.debugQ.Snapshot() }

// TakeCapture grabs a screenshot through the capture source and appends it to
// the queue for the current phase. Capture keeps working while a solve is in
// flight; only the append itself crosses the loop.
func (o *Orchestrator) TakeCapture(ctx context.Context) (capture.Context, error) {
	if o.source == nil {
		return capture.Context{}, errors.New("no capture source configured")
	}
	c, err := o.source.Capture(ctx)
	if err != nil {
		return capture.Context{}, err
	}
	o.AppendCapture(c)
	return c, nil
}

// AppendCapture queues an externally produced capture. Past capacity the
// oldest entry is evicted and its file deleted.
func (o *Orchestrator) AppendCapture(c capture.Context) {
	o.post(func() {
		if evicted, ok := o.activeQueue().Append(c); ok {
			capture.RemoveFile(evicted)
		}
	})
}

// DeleteCapture removes a capture by id from whichever queue holds it.
func (o *Orchestrator) DeleteCapture(id string) {
	o.post(func() {
		if c, ok := o.initialQ.Remove(id); ok {
			capture.RemoveFile(c)
			return
		}
		if c, ok := o.debugQ.Remove(id); ok {
			capture.RemoveFile(c)
		}
	})
}

// Solve starts the extract→solve pipeline over the initial queue. A solve
// already in flight is superseded (last writer wins); an empty queue is a
// noCaptures notification, not an error. Solve is refused while a debug is
// in flight.
func (o *Orchestrator) Solve() {
	o.post(func() {
		if o.phase == PhaseDebugging {
			o.notifier.Emit(Event{
				Kind:    EventError,
				ErrKind: shared.KindInternal,
				Message: "debug in flight; wait or reset",
			})
			return
		}
		snaps := o.initialQ.Snapshot()
		if len(snaps) == 0 {
			o.notifier.Emit(Event{Kind: EventNoCaptures})
			return
		}
		o.supersede()
		cctx, cancel := context.WithCancel(o.baseCtx)
		o.cancel = cancel
		o.phase = PhaseSolving
		o.notifier.Emit(Event{Kind: EventStart})
		go o.runSolve(cctx, o.epoch, snaps)
	})
}

func (o *Orchestrator) runSolve(ctx context.Context, epoch uint64, snaps []capture.Context) {
	problem, err := o.backend.Extract(ctx, snaps)
	if err != nil {
		o.fail(epoch, EventError, err)
		return
	}
	// Extract's result must be stored (and still wanted) before Solve runs:
	// the solve prompt depends on it.
	if !o.apply(epoch, func() {
		o.problems.Set(problem)
		o.notifier.Emit(Event{Kind: EventExtracted, Problem: &problem})
	}) {
		return
	}
	solution, err := o.backend.Solve(ctx, problem)
	if err != nil {
		o.fail(epoch, EventError, err)
		return
	}
	o.apply(epoch, func() {
		o.solutions.Set(solution)
		o.phase = PhaseSolutions
		o.stable = PhaseSolutions
		o.cancel = nil
		o.notifier.Emit(Event{Kind: EventSolved, Solution: &solution})
	})
}

// Debug starts the two-stage correction over the debug queue. It is only
// accepted from the solutions phase, so a debug can never race a pending
// solve or apply against a solution that isn't current.
func (o *Orchestrator) Debug() {
	o.post(func() {
		if o.phase != PhaseSolutions {
			o.notifier.Emit(Event{
				Kind:    EventDebugError,
				Message: "debug is only available once a solution exists",
			})
			return
		}
		problem := o.problems.Get()
		solution := o.solutions.Get()
		if problem == nil || solution == nil {
			o.notifier.Emit(Event{Kind: EventDebugError, Message: "no solution available to debug"})
			return
		}
		snaps := o.debugQ.Snapshot()
		if len(snaps) == 0 {
			o.notifier.Emit(Event{Kind: EventNoCaptures})
			return
		}
		o.supersede()
		cctx, cancel := context.WithCancel(o.baseCtx)
		o.cancel = cancel
		o.phase = PhaseDebugging
		o.notifier.Emit(Event{Kind: EventDebugStart})
		go o.runDebug(cctx, o.epoch, *problem, solution.AnswerText(), snaps)
	})
}

func (o *Orchestrator) runDebug(ctx context.Context, epoch uint64, problem model.ProblemInfo, answer string, snaps []capture.Context) {
	solution, err := o.backend.Debug(ctx, problem, answer, snaps)
	if err != nil {
		// stable is still Solutions; the last-known-good solution survives.
		o.fail(epoch, EventDebugError, err)
		return
	}
	o.apply(epoch, func() {
		solution.Debugged = true
		o.solutions.Set(solution)
		o.phase = PhaseSolutions
		o.stable = PhaseSolutions
		o.cancel = nil
		o.notifier.Emit(Event{Kind: EventDebugSolved, Solution: &solution})
		for _, c := range o.debugQ.Clear() {
			capture.RemoveFile(c)
		}
	})
}

// Reset cancels in-flight work, clears both stores and both queues (deleting
// capture files), and returns to the queue phase.
func (o *Orchestrator) Reset() {
	o.post(func() {
		o.supersede()
		o.problems.Clear()
		o.solutions.Clear()
		for _, c := range o.initialQ.Clear() {
			capture.RemoveFile(c)
		}
		for _, c := range o.debugQ.Clear() {
			capture.RemoveFile(c)
		}
		o.phase = PhaseQueue
		o.stable = PhaseQueue
		o.notifier.Emit(Event{Kind: EventReset})
		log.Info().Msg("workflow reset")
	})
}

// fail routes a worker error back through the loop: the machine returns to
// the prior stable state and the stores keep their last-known-good values.
// If the epoch moved on (reset or supersession) the error is discarded; the
// newer command already told the presentation layer what happened.
func (o *Orchestrator) fail(epoch uint64, kind EventKind, err error) {
	if errors.Is(err, context.Canceled) {
		err = shared.NewCancelled()
	}
	o.apply(epoch, func() {
		o.phase = o.stable
		o.cancel = nil
		log.Warn().Err(err).Str("event", string(kind)).Msg("model pipeline failed")
		o.notifier.Emit(Event{
			Kind:    kind,
			ErrKind: shared.KindOf(err),
			Message: messageOf(err),
		})
	})
}

func messageOf(err error) string {
	var typed *shared.Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return err.Error()
}
