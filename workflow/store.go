// Package workflow sequences captures through extract, solve, and debug, and
// owns all state transitions on a single loop.
package workflow

import (
	"sync"

	"screensolver/model"
)

// ProblemStore holds the latest extracted problem. Set replaces wholesale;
// the model's output is the new ground truth for that phase. Readers never
// observe a partial value.
type ProblemStore struct {
	mu    sync.RWMutex
	value *model.ProblemInfo
}

func (s *ProblemStore) Get() *model.ProblemInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *ProblemStore) Set(v model.ProblemInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = &v
}

func (s *ProblemStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = nil
}

// SolutionStore holds the latest generated or corrected solution.
type SolutionStore struct {
	mu    sync.RWMutex
	value *model.SolutionInfo
}

func (s *SolutionStore) Get() *model.SolutionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *SolutionStore) Set(v model.SolutionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = &v
}

func (s *SolutionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = nil
}
