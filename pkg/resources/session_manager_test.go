package resources

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(limits Limits) (*SessionManager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	sm := NewSessionManager(limits)
	sm.now = clock.Now
	return sm, clock
}

func TestRegisterLimit(t *testing.T) {
	sm, _ := newTestManager(Limits{MaxSessions: 2})

	if _, err := sm.Register("a", "alpha", "1.2.3.4"); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.Register("b", "beta", "1.2.3.4"); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.Register("c", "gamma", "1.2.3.4"); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("third session: err = %v", err)
	}
	// bekannte Sessions zählen nicht doppelt
	if s, err := sm.Register("a", "alpha", "1.2.3.4"); err != nil || s.Name != "alpha" {
		t.Errorf("re-register: %v %v", s, err)
	}
	if sm.Count() != 2 {
		t.Errorf("Count = %d", sm.Count())
	}
}

func TestGetTouchUnregister(t *testing.T) {
	sm, clock := newTestManager(Limits{})
	s, _ := sm.Register("a", "alpha", "")
	created := s.LastActivity()

	clock.Advance(time.Minute)
	if err := sm.Touch("a"); err != nil {
		t.Fatal(err)
	}
	if got := s.LastActivity(); !got.Equal(created.Add(time.Minute)) {
		t.Errorf("LastActivity = %v", got)
	}

	var removed []string
	sm.OnRemove(func(id string) { removed = append(removed, id) })
	if err := sm.Unregister("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := sm.Get("a"); ok {
		t.Error("session still registered")
	}
	if len(removed) != 1 || removed[0] != "a" {
		t.Errorf("removed = %v", removed)
	}

	for _, err := range []error{sm.Touch("a"), sm.Unregister("a")} {
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	}
}

func TestStartRun(t *testing.T) {
	sm, _ := newTestManager(Limits{MaxExecutionTime: 20 * time.Millisecond})
	s, _ := sm.Register("a", "alpha", "")

	ctx, done, err := sm.StartRun(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if !s.Running() {
		t.Error("session should be running")
	}
	if _, _, err := sm.StartRun(context.Background(), "a"); !errors.Is(err, ErrRunActive) {
		t.Errorf("second run: err = %v", err)
	}

	select {
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.Errorf("ctx.Err = %v", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("run not bounded by max execution time")
	}
	done()
	if s.Running() {
		t.Error("session still running after done")
	}
	if s.Runs() != 1 {
		t.Errorf("Runs = %d", s.Runs())
	}

	if _, _, err := sm.StartRun(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session: err = %v", err)
	}
}

func TestStopRun(t *testing.T) {
	sm, _ := newTestManager(Limits{})
	sm.Register("a", "alpha", "")

	if sm.StopRun("a") {
		t.Error("StopRun without run should report false")
	}
	ctx, done, err := sm.StartRun(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer done()
	if !sm.StopRun("a") {
		t.Error("StopRun should cancel the active run")
	}
	if ctx.Err() == nil {
		t.Error("run context not cancelled")
	}

	// ein neuer Lauf darf nicht vom alten done() beendet werden
	_, done2, err := sm.StartRun(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	done()
	s, _ := sm.Get("a")
	if !s.Running() {
		t.Error("stale done cleared the new run")
	}
	done2()
}

func TestUnregisterStopsRun(t *testing.T) {
	sm, _ := newTestManager(Limits{})
	sm.Register("a", "alpha", "")
	ctx, done, _ := sm.StartRun(context.Background(), "a")
	defer done()
	sm.Unregister("a")
	if ctx.Err() == nil {
		t.Error("run context should be cancelled on unregister")
	}
}

func TestCleanupInactive(t *testing.T) {
	sm, clock := newTestManager(Limits{MaxInactiveTime: 10 * time.Minute})
	sm.Register("old", "o", "")
	clock.Advance(6 * time.Minute)
	sm.Register("new", "n", "")
	clock.Advance(5 * time.Minute)

	removed := sm.CleanupInactive()
	sort.Strings(removed)
	if len(removed) != 1 || removed[0] != "old" {
		t.Errorf("removed = %v", removed)
	}
	if _, ok := sm.Get("new"); !ok {
		t.Error("active session removed")
	}

	none, _ := newTestManager(Limits{})
	none.Register("x", "x", "")
	if got := none.CleanupInactive(); got != nil {
		t.Errorf("cleanup without limit removed %v", got)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	sm, _ := newTestManager(Limits{CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sm.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
