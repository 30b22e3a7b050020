package pipeline

import (
	"context"
	"sync"
)

// TaskID identifies a task within one Scope.
type TaskID uint64

// Scope tracks the in-flight tasks of one run and which of them are
// protected from a mass cancel.
//
// Every task is finalized exactly once, either with Complete or with
// Abandon. Both take the scope lock, as does Shutdown, so a task is never
// counted as both completed and cancelled.
type Scope struct {
	mu sync.Mutex

	nextID    TaskID
	active    map[TaskID]context.CancelFunc
	protected map[TaskID]struct{}
	cancelled map[TaskID]struct{}

	// added counts every task ever added, protected ones included.
	added     int
	completed int

	shutdown bool
	reason   string
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{
		active:    make(map[TaskID]context.CancelFunc),
		protected: make(map[TaskID]struct{}),
		cancelled: make(map[TaskID]struct{}),
	}
}

// Add registers a task and the function that cancels it.
// A task added after Shutdown is cancelled immediately.
func (s *Scope) Add(cancel context.CancelFunc) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.active[id] = cancel
	s.added++

	if s.shutdown {
		s.cancelled[id] = struct{}{}
		cancel()
	}
	return id
}

// Protect marks a task as immune to Shutdown.
// Protected tasks are not counted as submitted work.
func (s *Scope) Protect(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.protected[id] = struct{}{}
	delete(s.cancelled, id)
}

// IsProtected reports whether id is protected.
func (s *Scope) IsProtected(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.protected[id]
	return ok
}

// Complete finalizes a task that produced a result.
// If the task has not been cancelled, it is counted as completed and emit
// is called, under the scope lock, with the new completed count. emit must
// not block. Complete reports whether the result was accepted.
func (s *Scope) Complete(id TaskID, emit func(completed int)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; !ok {
		return false
	}
	delete(s.active, id)

	if _, ok := s.cancelled[id]; ok {
		return false
	}

	s.completed++
	if emit != nil {
		emit(s.completed)
	}
	return true
}

// Abandon finalizes a task that stopped without a result.
// It is counted as cancelled.
func (s *Scope) Abandon(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; !ok {
		return
	}
	delete(s.active, id)

	if _, ok := s.protected[id]; !ok {
		s.cancelled[id] = struct{}{}
	}
}

// Release removes a protected task without counting it.
func (s *Scope) Release(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, id)
}

// Shutdown cancels every active task that is not protected and records
// reason. It returns how many tasks it cancelled and how many were active,
// protected ones included. Calling it again cancels tasks added since.
func (s *Scope) Shutdown(reason string) (cancelled, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shutdown {
		s.shutdown = true
		s.reason = reason
	}

	total = len(s.active)
	for id, cancel := range s.active {
		if _, ok := s.protected[id]; ok {
			continue
		}
		if _, ok := s.cancelled[id]; ok {
			continue
		}
		s.cancelled[id] = struct{}{}
		cancel()
		cancelled++
	}
	return cancelled, total
}

// ShutdownReason returns the reason given to the first Shutdown call and
// whether Shutdown has been called at all.
func (s *Scope) ShutdownReason() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reason, s.shutdown
}

// Active returns the number of tasks not yet finalized.
func (s *Scope) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// Counts returns the submitted, completed and cancelled task counts.
// Once every task has been finalized, completed+cancelled == submitted.
func (s *Scope) Counts() (submitted, completed, cancelled int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.added - len(s.protected), s.completed, len(s.cancelled)
}
