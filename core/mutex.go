package core

// Mutex provides mutual exclusion between tasks. Waiters are served in
// FIFO order. There is no timeout, no priority inheritance and no
// recursive locking: a task relocking a mutex it owns deadlocks.
//
// The zero value is an unlocked mutex. A Mutex must only be used from
// tasks, never from interrupt handlers.
type Mutex struct {
	owner   *Task
	waiting Queue[*Task]
}

// Lock claims the mutex, blocking the current task while another task owns it.
//
// Unlock does not hand ownership over; it makes the first waiter runnable
// and that waiter claims the mutex when it next runs. If another task
// claimed it first, the waiter goes back to the head of the queue.
func (m *Mutex) Lock() {
	t := CurrentTask()
	if t == nil {
		Abort("mutex: lock outside a task")
	}
	cs := Enter()
	for woken := false; m.owner != nil; woken = true {
		var w Node[*Task]
		w.Value = t
		t.block(cs)
		if woken {
			m.waiting.PushFront(cs, &w)
		} else {
			m.waiting.Push(cs, &w)
		}
		RecordTrace(cs, EvtMutexBlock, 0, 0, 0)
		t.park(cs)
		cs = Enter()
	}
	m.owner = t
	cs.Exit()
}

// Unlock releases the mutex and makes the longest waiting task runnable.
func (m *Mutex) Unlock() {
	cs := Enter()
	m.owner = nil
	if n := m.waiting.Pop(cs); n != nil {
		n.Value.unblock(cs)
	}
	cs.Exit()
}

// Owner returns the owning task, or nil if the mutex is free.
func (m *Mutex) Owner(cs CriticalSection) *Task {
	cs.check()
	return m.owner
}

// Waiting returns the number of tasks queued on the mutex.
func (m *Mutex) Waiting(cs CriticalSection) int {
	return m.waiting.Len(cs)
}
