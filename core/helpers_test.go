package core_test

import (
	"strings"
	"testing"
	"time"

	"k20rt/core"
)

const testTimeout = 5 * time.Second

// startScheduler runs sched on its own goroutine and returns a channel
// closed when every task has returned.
func startScheduler(sched *core.Scheduler) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		sched.Run()
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("tasks did not finish")
	}
}

func runScheduler(t *testing.T, sched *core.Scheduler) {
	t.Helper()
	waitDone(t, startScheduler(sched))
}

// waitFor polls cond under a critical section until it holds.
func waitFor(t *testing.T, what string, cond func(cs core.CriticalSection) bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		cs := core.Enter()
		ok := cond(cs)
		cs.Exit()
		if ok {
			return
		}
		time.Sleep(50 * time.Microsecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// expectAbort mirrors the package core helper in abort_test.go, which
// external tests cannot see.
func expectAbort(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected abort containing %q, got none", want)
			return
		}
		if msg, _ := r.(string); !strings.Contains(msg, want) {
			t.Errorf("Expected abort containing %q, got %v", want, r)
		}
	}()
	fn()
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
