package pipeline

import (
	"context"
	"sync"
	"testing"
)

// TestScopeShutdown tests mass cancellation with a protected owner.
func TestScopeShutdown(t *testing.T) {
	t.Parallel()

	s := NewScope()

	ownerCtx, ownerCancel := context.WithCancel(context.Background())
	defer ownerCancel()
	owner := s.Add(ownerCancel)
	s.Protect(owner)

	ctxs := make([]context.Context, 3)
	ids := make([]TaskID, 3)
	for i := range ctxs {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		ctxs[i] = ctx
		ids[i] = s.Add(cancel)
	}

	if !s.Complete(ids[0], nil) {
		t.Fatal("expected first task to complete")
	}

	cancelled, total := s.Shutdown("interrupt")
	if cancelled != 2 {
		t.Errorf("expected 2 cancelled, got %d", cancelled)
	}
	if total != 3 {
		t.Errorf("expected 3 active including owner, got %d", total)
	}
	if ownerCtx.Err() != nil {
		t.Error("owner must not be cancelled")
	}
	if ctxs[1].Err() == nil || ctxs[2].Err() == nil {
		t.Error("expected outstanding tasks to be cancelled")
	}

	// A cancelled task that still produces a result is not counted twice.
	emitted := false
	if s.Complete(ids[1], func(int) { emitted = true }) {
		t.Error("expected cancelled task result to be discarded")
	}
	if emitted {
		t.Error("emit must not run for a cancelled task")
	}
	s.Abandon(ids[2])

	submitted, completed, cancelledCount := s.Counts()
	if submitted != 3 || completed != 1 || cancelledCount != 2 {
		t.Errorf("unexpected counts: submitted=%d completed=%d cancelled=%d",
			submitted, completed, cancelledCount)
	}
	if completed+cancelledCount != submitted {
		t.Error("counts are not balanced")
	}

	reason, ok := s.ShutdownReason()
	if !ok || reason != "interrupt" {
		t.Errorf("unexpected shutdown reason %q (%v)", reason, ok)
	}
}

// TestScopeAddAfterShutdown tests that late tasks are cancelled at once.
func TestScopeAddAfterShutdown(t *testing.T) {
	t.Parallel()

	s := NewScope()
	s.Shutdown("terminate")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	id := s.Add(cancel)

	if ctx.Err() == nil {
		t.Error("expected late task to be cancelled")
	}
	if s.Complete(id, nil) {
		t.Error("expected late task result to be discarded")
	}

	_, completed, cancelled := s.Counts()
	if completed != 0 || cancelled != 1 {
		t.Errorf("unexpected counts: completed=%d cancelled=%d", completed, cancelled)
	}
}

// TestScopeShutdownTwice tests that a second shutdown only reports new work.
func TestScopeShutdownTwice(t *testing.T) {
	t.Parallel()

	s := NewScope()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Add(cancel)

	if n, _ := s.Shutdown("first"); n != 1 {
		t.Errorf("expected 1 cancelled, got %d", n)
	}
	if n, _ := s.Shutdown("second"); n != 0 {
		t.Errorf("expected 0 cancelled on second call, got %d", n)
	}
	if reason, _ := s.ShutdownReason(); reason != "first" {
		t.Errorf("expected first reason to stick, got %q", reason)
	}
}

// TestScopeConcurrentFinalize tests exactly-once accounting under races
// between Complete and Shutdown.
func TestScopeConcurrentFinalize(t *testing.T) {
	t.Parallel()

	const n = 200
	s := NewScope()

	ids := make([]TaskID, n)
	for i := range ids {
		_, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		ids[i] = s.Add(cancel)
	}

	var emitted int
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Complete(id, func(int) { emitted++ })
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Shutdown("race")
	}()
	wg.Wait()

	submitted, completed, cancelled := s.Counts()
	if submitted != n {
		t.Errorf("expected %d submitted, got %d", n, submitted)
	}
	if completed+cancelled != n {
		t.Errorf("expected balanced counts, got completed=%d cancelled=%d", completed, cancelled)
	}
	if emitted != completed {
		t.Errorf("expected %d emits, got %d", completed, emitted)
	}
	if s.Active() != 0 {
		t.Errorf("expected no active tasks, got %d", s.Active())
	}
}
