package core

// wakeSlot records which condition variable woke a waiter. It is written at
// most once; every entry registered by one wait shares one slot.
type wakeSlot struct {
	by *CondVar
}

// waitEntry is one registration of a blocked task on one condition variable.
type waitEntry struct {
	task *Task
	slot *wakeSlot
	node Node[*waitEntry]
}

// CondVar lets tasks block until another task or an interrupt handler
// signals. The waker, never the waiter, unlinks the wait entry, so one
// signal wakes at most one waiter and a waiter is woken at most once.
//
// The zero value is ready to use.
type CondVar struct {
	waiting Queue[*waitEntry]
}

// prepareWait registers the current task on c and marks it Blocked. The
// caller may publish state that leads to a signal before calling park on
// the task within the same critical section; no wakeup can be lost.
func (c *CondVar) prepareWait(cs CriticalSection, e *waitEntry, slot *wakeSlot) {
	t := CurrentTask()
	if t == nil {
		Abort("condvar: wait outside a task")
	}
	e.task = t
	e.slot = slot
	e.node.Value = e
	c.waiting.Push(cs, &e.node)
	t.block(cs)
}

// Wait blocks the current task until c is signalled.
func (c *CondVar) Wait() {
	var slot wakeSlot
	var e waitEntry
	cs := Enter()
	c.prepareWait(cs, &e, &slot)
	e.task.park(cs)
}

// Signal wakes the longest waiting task that has not already been woken
// by another condition variable.
func (c *CondVar) Signal() {
	cs := Enter()
	c.SignalLocked(cs)
	cs.Exit()
}

// SignalLocked is Signal for callers already inside a critical section,
// such as interrupt handlers.
func (c *CondVar) SignalLocked(cs CriticalSection) {
	for n := c.waiting.Pop(cs); n != nil; n = c.waiting.Pop(cs) {
		if c.claim(cs, n.Value) {
			return
		}
	}
}

// Broadcast wakes every task waiting on c.
func (c *CondVar) Broadcast() {
	cs := Enter()
	c.BroadcastLocked(cs)
	cs.Exit()
}

// BroadcastLocked is Broadcast for callers already inside a critical section.
func (c *CondVar) BroadcastLocked(cs CriticalSection) {
	for n := c.waiting.Pop(cs); n != nil; n = c.waiting.Pop(cs) {
		c.claim(cs, n.Value)
	}
}

// claim wakes e's task unless another condition variable got there first.
func (c *CondVar) claim(cs CriticalSection, e *waitEntry) bool {
	if e.slot.by != nil {
		return false
	}
	e.slot.by = c
	e.task.unblock(cs)
	return true
}

// Waiters returns the number of entries queued on c, including entries of
// multi-waits that another condition variable already woke.
func (c *CondVar) Waiters(cs CriticalSection) int {
	return c.waiting.Len(cs)
}

// Waiter pairs a condition variable with the value WaitMany returns when
// that condition variable wakes the task.
type Waiter[T any] struct {
	Cond  *CondVar
	Value T
	entry waitEntry
}

// WaitMany blocks until any of the listed condition variables is
// signalled and returns the Value paired with it. Exactly one of them
// wakes the task; the registrations on the others are withdrawn before
// WaitMany returns.
func WaitMany[T any](waits []Waiter[T]) T {
	if len(waits) == 0 {
		Abort("condvar: wait on no condition variables")
	}
	t := CurrentTask()
	if t == nil {
		Abort("condvar: wait outside a task")
	}

	var slot wakeSlot
	cs := Enter()
	for i := range waits {
		w := &waits[i]
		w.entry.task = t
		w.entry.slot = &slot
		w.entry.node.Value = &w.entry
		w.Cond.waiting.Push(cs, &w.entry.node)
	}
	t.block(cs)
	t.park(cs)

	cs = Enter()
	defer cs.Exit()
	for i := range waits {
		w := &waits[i]
		w.Cond.waiting.Remove(cs, &w.entry.node)
	}
	for i := range waits {
		if waits[i].Cond == slot.by {
			return waits[i].Value
		}
	}
	Abort("condvar: woken by a condition variable nobody waited on")
	var zero T
	return zero
}
