package core_test

import (
	"testing"

	"k20rt/core"
	"k20rt/sim"
)

func TestCondVarSignalWakesOneInOrder(t *testing.T) {
	sched := core.NewScheduler()
	var cv core.CondVar
	var order []string
	var afterFirst int

	for _, name := range []string{"a", "b", "c"} {
		sched.Spawn(name, func() {
			cv.Wait()
			order = append(order, core.CurrentTask().Name())
		})
	}
	sched.Spawn("signaller", func() {
		cv.Signal()
		core.Yield()
		afterFirst = len(order)
		cv.Signal()
		cv.Signal()
	})
	runScheduler(t, sched)

	if afterFirst != 1 {
		t.Errorf("Expected one waiter woken by one signal, got %d", afterFirst)
	}
	expected := []string{"a", "b", "c"}
	if !equalStrings(order, expected) {
		t.Errorf("Expected %v, got %v", expected, order)
	}
}

func TestCondVarBroadcast(t *testing.T) {
	sched := core.NewScheduler()
	var cv core.CondVar
	woken := 0
	var waiters int

	for i := 0; i < 3; i++ {
		sched.Spawn("waiter", func() {
			cv.Wait()
			woken++
		})
	}
	sched.Spawn("broadcaster", func() {
		cs := core.Enter()
		waiters = cv.Waiters(cs)
		cs.Exit()
		cv.Broadcast()
		core.Yield()
		if woken != 3 {
			t.Errorf("Expected all 3 waiters woken, got %d", woken)
		}
	})
	runScheduler(t, sched)

	if waiters != 3 {
		t.Errorf("Expected 3 registered waiters, got %d", waiters)
	}
}

func TestCondVarSignalWithoutWaiters(t *testing.T) {
	var cv core.CondVar
	cv.Signal()
	cv.Broadcast()

	cs := core.Enter()
	defer cs.Exit()
	if cv.Waiters(cs) != 0 {
		t.Errorf("Expected no waiters")
	}
}

func TestWaitManyReturnsSignalledValue(t *testing.T) {
	sched := core.NewScheduler()
	var a, b core.CondVar
	var got string

	sched.Spawn("waiter", func() {
		got = core.WaitMany([]core.Waiter[string]{
			{Cond: &a, Value: "A"},
			{Cond: &b, Value: "B"},
		})
	})
	sched.Spawn("signaller", func() {
		b.Signal()
	})
	runScheduler(t, sched)

	if got != "B" {
		t.Errorf("Expected B, got %q", got)
	}
	cs := core.Enter()
	defer cs.Exit()
	if a.Waiters(cs) != 0 || b.Waiters(cs) != 0 {
		t.Errorf("Expected every registration withdrawn, got a=%d b=%d", a.Waiters(cs), b.Waiters(cs))
	}
}

func TestSignalSkipsWokenMultiWaiter(t *testing.T) {
	sched := core.NewScheduler()
	var a, b core.CondVar
	var multi string
	plainWoken := false

	sched.Spawn("multi", func() {
		multi = core.WaitMany([]core.Waiter[string]{
			{Cond: &a, Value: "A"},
			{Cond: &b, Value: "B"},
		})
	})
	sched.Spawn("plain", func() {
		a.Wait()
		plainWoken = true
	})
	sched.Spawn("signaller", func() {
		b.Signal()
		// multi's entry on a is first in line but already woken by b
		a.Signal()
	})
	runScheduler(t, sched)

	if multi != "B" {
		t.Errorf("Expected multi-waiter woken by B, got %q", multi)
	}
	if !plainWoken {
		t.Errorf("Expected plain waiter woken by the signal on a")
	}
}

func TestCondVarSignalFromInterrupt(t *testing.T) {
	sched := core.NewScheduler()
	var cv core.CondVar
	irq := sim.NewIRQ(func() {
		cs := core.Enter()
		defer cs.Exit()
		cv.SignalLocked(cs)
	})
	defer irq.Close()

	woken := false
	sched.Spawn("waiter", func() {
		cv.Wait()
		woken = true
	})
	done := startScheduler(sched)

	waitFor(t, "waiter to block", func(cs core.CriticalSection) bool {
		return cv.Waiters(cs) == 1
	})
	irq.Pend()
	waitDone(t, done)

	if !woken {
		t.Errorf("Expected waiter woken by interrupt")
	}
}

func TestWaitManyOutsideTask(t *testing.T) {
	var cv core.CondVar
	expectAbort(t, "outside a task", func() {
		core.WaitMany([]core.Waiter[int]{{Cond: &cv, Value: 1}})
	})
	expectAbort(t, "no condition variables", func() {
		core.WaitMany[int](nil)
	})
}
