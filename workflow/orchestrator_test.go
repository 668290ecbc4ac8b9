package workflow_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screensolver/capture"
	"screensolver/model"
	"screensolver/shared"
	"screensolver/workflow"
)

var fixtureProblem = model.ProblemInfo{
	Type:      model.ProblemCoding,
	Statement: "Reverse a string",
	Details:   &model.CodingDetails{Language: "python"},
}

var fixtureSolution = model.SolutionInfo{
	Answer:          model.CodeAnswer{Code: "def rev(s): return s[::-1]"},
	Reasoning:       "slice trick",
	TimeComplexity:  "O(n)",
	SpaceComplexity: "O(n)",
}

// fakeBackend answers with fixtures unless a test overrides a stage.
type fakeBackend struct {
	mu           sync.Mutex
	extractCalls int
	solveCalls   int
	debugCalls   int

	extractFn func(ctx context.Context) (model.ProblemInfo, error)
	solveFn   func(ctx context.Context) (model.SolutionInfo, error)
	debugFn   func(ctx context.Context) (model.SolutionInfo, error)
}

func (f *fakeBackend) Extract(ctx context.Context, contexts []capture.Context) (model.ProblemInfo, error) {
	f.mu.Lock()
	f.extractCalls++
	fn := f.extractFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return fixtureProblem, nil
}

func (f *fakeBackend) Solve(ctx context.Context, problem model.ProblemInfo) (model.SolutionInfo, error) {
	f.mu.Lock()
	f.solveCalls++
	fn := f.solveFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return fixtureSolution, nil
}

func (f *fakeBackend) Debug(ctx context.Context, problem model.ProblemInfo, currentAnswer string, contexts []capture.Context) (model.SolutionInfo, error) {
	f.mu.Lock()
	f.debugCalls++
	fn := f.debugFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	fixed := fixtureSolution
	fixed.Reasoning = "corrected: " + currentAnswer
	return fixed, nil
}

func (f *fakeBackend) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extractCalls, f.solveCalls, f.debugCalls
}

func subscribe(o *workflow.Orchestrator) <-chan workflow.Event {
	ch := make(chan workflow.Event, 64)
	o.Subscribe(func(ev workflow.Event) { ch <- ev })
	return ch
}

func waitEvent(t *testing.T, ch <-chan workflow.Event, kind workflow.EventKind) workflow.Event {
	t.Helper()
	select {
	case ev := <-ch:
		require.Equal(t, kind, ev.Kind, "unexpected event %q (%s)", ev.Kind, ev.Message)
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q event", kind)
		return workflow.Event{}
	}
}

func requireNoEvent(t *testing.T, ch <-chan workflow.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q (%s)", ev.Kind, ev.Message)
	case <-time.After(100 * time.Millisecond):
	}
}

func appendN(o *workflow.Orchestrator, n int) {
	for i := 0; i < n; i++ {
		o.AppendCapture(capture.Context{ID: fmt.Sprintf("cap-%d", i), CreatedAt: time.Now()})
	}
}

func TestSolve_EndToEnd(t *testing.T) {
	backend := &fakeBackend{}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 3)
	orc.Solve()

	waitEvent(t, events, workflow.EventStart)
	extracted := waitEvent(t, events, workflow.EventExtracted)
	require.NotNil(t, extracted.Problem)
	assert.Equal(t, model.ProblemCoding, extracted.Problem.Type)
	assert.Equal(t, "Reverse a string", extracted.Problem.Statement)

	solved := waitEvent(t, events, workflow.EventSolved)
	require.NotNil(t, solved.Solution)
	assert.Equal(t, "def rev(s): return s[::-1]", solved.Solution.AnswerText())

	assert.Equal(t, workflow.PhaseSolutions, orc.Phase())
	require.NotNil(t, orc.Problem())
	require.NotNil(t, orc.Solution())
	assert.Equal(t, "slice trick", orc.Solution().Reasoning)
}

func TestSolve_EmptyQueueIsNoCaptures(t *testing.T) {
	backend := &fakeBackend{}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	orc.Solve()

	waitEvent(t, events, workflow.EventNoCaptures)
	assert.Equal(t, workflow.PhaseQueue, orc.Phase())
	extracts, solves, _ := backend.counts()
	assert.Zero(t, extracts)
	assert.Zero(t, solves)
}

func TestSolve_ExtractFailureReturnsToStableState(t *testing.T) {
	backend := &fakeBackend{
		extractFn: func(ctx context.Context) (model.ProblemInfo, error) {
			return model.ProblemInfo{}, shared.NewMalformedResponse("no JSON object found in model output")
		},
	}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	failed := waitEvent(t, events, workflow.EventError)
	assert.Equal(t, shared.KindMalformedResponse, failed.ErrKind)

	assert.Equal(t, workflow.PhaseQueue, orc.Phase())
	assert.Nil(t, orc.Problem(), "a failed extract must not touch the problem store")
	assert.Nil(t, orc.Solution())
	assert.Len(t, orc.Captures(), 1, "captures survive a failed solve for a retry")
	_, solves, _ := backend.counts()
	assert.Zero(t, solves, "solve stage must not run after a failed extract")
}

func TestSolve_SolveFailureKeepsExtractedProblem(t *testing.T) {
	backend := &fakeBackend{
		solveFn: func(ctx context.Context) (model.SolutionInfo, error) {
			return model.SolutionInfo{}, shared.NewRateLimited(fmt.Errorf("429"))
		},
	}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	waitEvent(t, events, workflow.EventExtracted)
	failed := waitEvent(t, events, workflow.EventError)
	assert.Equal(t, shared.KindRateLimited, failed.ErrKind)

	assert.Equal(t, workflow.PhaseQueue, orc.Phase())
	require.NotNil(t, orc.Problem(), "the extracted problem is last-known-good and stays")
	assert.Nil(t, orc.Solution())
}

func TestDebug_RejectedWhileSolving(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		solveFn: func(ctx context.Context) (model.SolutionInfo, error) {
			select {
			case <-release:
				return fixtureSolution, nil
			case <-ctx.Done():
				return model.SolutionInfo{}, ctx.Err()
			}
		},
	}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	waitEvent(t, events, workflow.EventExtracted)
	require.Equal(t, workflow.PhaseSolving, orc.Phase())

	orc.Debug()
	waitEvent(t, events, workflow.EventDebugError)
	assert.Equal(t, workflow.PhaseSolving, orc.Phase())

	close(release)
	waitEvent(t, events, workflow.EventSolved)
	assert.Equal(t, workflow.PhaseSolutions, orc.Phase())
	_, _, debugs := backend.counts()
	assert.Zero(t, debugs, "debug must never race the in-flight solve")
}

func TestDebug_EndToEnd(t *testing.T) {
	backend := &fakeBackend{}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	waitEvent(t, events, workflow.EventExtracted)
	waitEvent(t, events, workflow.EventSolved)

	// New captures now land in the debug queue.
	orc.AppendCapture(capture.Context{ID: "debug-cap"})
	orc.Debug()

	waitEvent(t, events, workflow.EventDebugStart)
	solved := waitEvent(t, events, workflow.EventDebugSolved)
	require.NotNil(t, solved.Solution)
	assert.True(t, solved.Solution.Debugged)

	assert.Equal(t, workflow.PhaseSolutions, orc.Phase())
	assert.True(t, orc.Solution().Debugged)
	assert.Empty(t, orc.DebugCaptures(), "debug queue is cleared after a successful debug")
}

func TestDebug_FailureKeepsLastKnownGoodSolution(t *testing.T) {
	backend := &fakeBackend{
		debugFn: func(ctx context.Context) (model.SolutionInfo, error) {
			return model.SolutionInfo{}, shared.NewAnalysisEmpty()
		},
	}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	waitEvent(t, events, workflow.EventExtracted)
	waitEvent(t, events, workflow.EventSolved)

	orc.AppendCapture(capture.Context{ID: "debug-cap"})
	orc.Debug()
	waitEvent(t, events, workflow.EventDebugStart)
	failed := waitEvent(t, events, workflow.EventDebugError)
	assert.Equal(t, shared.KindAnalysisEmpty, failed.ErrKind)

	assert.Equal(t, workflow.PhaseSolutions, orc.Phase())
	require.NotNil(t, orc.Solution())
	assert.False(t, orc.Solution().Debugged)
	assert.Equal(t, "slice trick", orc.Solution().Reasoning)
}

func TestReset_FromEveryState(t *testing.T) {
	t.Run("from solutions", func(t *testing.T) {
		backend := &fakeBackend{}
		orc := workflow.New(backend, nil)
		defer orc.Close()
		events := subscribe(orc)

		appendN(orc, 2)
		orc.Solve()
		waitEvent(t, events, workflow.EventStart)
		waitEvent(t, events, workflow.EventExtracted)
		waitEvent(t, events, workflow.EventSolved)

		orc.Reset()
		waitEvent(t, events, workflow.EventReset)
		assertCleared(t, orc)
	})

	t.Run("from solving", func(t *testing.T) {
		backend := &fakeBackend{
			solveFn: func(ctx context.Context) (model.SolutionInfo, error) {
				<-ctx.Done()
				return model.SolutionInfo{}, ctx.Err()
			},
		}
		orc := workflow.New(backend, nil)
		defer orc.Close()
		events := subscribe(orc)

		appendN(orc, 2)
		orc.Solve()
		waitEvent(t, events, workflow.EventStart)
		waitEvent(t, events, workflow.EventExtracted)

		orc.Reset()
		waitEvent(t, events, workflow.EventReset)
		assertCleared(t, orc)
		// The cancelled worker's completion is stale and must stay silent.
		requireNoEvent(t, events)
	})

	t.Run("from debugging", func(t *testing.T) {
		backend := &fakeBackend{
			debugFn: func(ctx context.Context) (model.SolutionInfo, error) {
				<-ctx.Done()
				return model.SolutionInfo{}, ctx.Err()
			},
		}
		orc := workflow.New(backend, nil)
		defer orc.Close()
		events := subscribe(orc)

		appendN(orc, 1)
		orc.Solve()
		waitEvent(t, events, workflow.EventStart)
		waitEvent(t, events, workflow.EventExtracted)
		waitEvent(t, events, workflow.EventSolved)
		orc.AppendCapture(capture.Context{ID: "debug-cap"})
		orc.Debug()
		waitEvent(t, events, workflow.EventDebugStart)

		orc.Reset()
		waitEvent(t, events, workflow.EventReset)
		assertCleared(t, orc)
	})
}

func assertCleared(t *testing.T, orc *workflow.Orchestrator) {
	t.Helper()
	assert.Equal(t, workflow.PhaseQueue, orc.Phase())
	assert.Nil(t, orc.Problem())
	assert.Nil(t, orc.Solution())
	assert.Empty(t, orc.Captures())
	assert.Empty(t, orc.DebugCaptures())
}

func TestReset_DiscardsStaleCompletion(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		solveFn: func(ctx context.Context) (model.SolutionInfo, error) {
			// Ignores cancellation on purpose: simulates a transport that
			// cannot abort, so the result arrives after the reset.
			<-release
			return fixtureSolution, nil
		},
	}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	waitEvent(t, events, workflow.EventExtracted)

	orc.Reset()
	waitEvent(t, events, workflow.EventReset)

	close(release)
	requireNoEvent(t, events)
	assert.Nil(t, orc.Solution(), "stale solve result must not be stored after reset")
	assert.Equal(t, workflow.PhaseQueue, orc.Phase())
}

func TestAppend_WorksWhileSolving(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		solveFn: func(ctx context.Context) (model.SolutionInfo, error) {
			<-release
			return fixtureSolution, nil
		},
	}
	orc := workflow.New(backend, nil)
	defer orc.Close()
	events := subscribe(orc)

	appendN(orc, 1)
	orc.Solve()
	waitEvent(t, events, workflow.EventStart)
	waitEvent(t, events, workflow.EventExtracted)

	orc.AppendCapture(capture.Context{ID: "late"})
	require.Equal(t, workflow.PhaseSolving, orc.Phase()) // flushes the command queue
	assert.Len(t, orc.Captures(), 2)

	close(release)
	waitEvent(t, events, workflow.EventSolved)
}

func TestAppend_EvictionDeletesOldestFile(t *testing.T) {
	backend := &fakeBackend{}
	orc := workflow.New(backend, nil)
	defer orc.Close()

	dir := t.TempDir()
	paths := make([]string, capture.MaxCapacity+1)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("shot-%d.png", i))
		require.NoError(t, os.WriteFile(paths[i], []byte("png"), 0644))
		orc.AppendCapture(capture.Context{ID: fmt.Sprintf("shot-%d", i), Path: paths[i]})
	}
	_ = orc.Phase() // flush the command queue

	assert.Len(t, orc.Captures(), capture.MaxCapacity)
	_, err := os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err), "evicted capture's file should be deleted")
	_, err = os.Stat(paths[1])
	assert.NoError(t, err)
}

func TestDeleteCapture(t *testing.T) {
	backend := &fakeBackend{}
	orc := workflow.New(backend, nil)
	defer orc.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))

	orc.AppendCapture(capture.Context{ID: "keep"})
	orc.AppendCapture(capture.Context{ID: "drop", Path: path})
	orc.DeleteCapture("drop")
	_ = orc.Phase()

	snaps := orc.Captures()
	require.Len(t, snaps, 1)
	assert.Equal(t, "keep", snaps[0].ID)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
