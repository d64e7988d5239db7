// Package sim models the K20 peripherals the runtime drives so that tasks,
// timeouts and I2C transfers run under go test and on a workstation.
//
// Each interrupt line gets its own dispatcher goroutine. Handlers enter a
// critical section like they do on hardware, so they run only while no
// foreground code holds one.
package sim

import "sync"

// IRQ is a simulated interrupt line. Pend requests a handler run and
// returns at once; the dispatcher calls the handler once per Pend.
type IRQ struct {
	mu      sync.Mutex
	cond    *sync.Cond
	handler func()
	pending int
	running bool
	count   int
	closed  bool
}

// NewIRQ starts a dispatcher that runs handler for every Pend.
func NewIRQ(handler func()) *IRQ {
	q := &IRQ{handler: handler}
	q.cond = sync.NewCond(&q.mu)
	go q.dispatch()
	return q
}

func (q *IRQ) dispatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for q.pending == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			return
		}
		q.pending--
		q.running = true
		q.mu.Unlock()
		q.handler()
		q.mu.Lock()
		q.running = false
		q.count++
		q.cond.Broadcast()
	}
}

// Pend raises the line. Safe to call from handlers and with a critical
// section held.
func (q *IRQ) Pend() {
	q.mu.Lock()
	if !q.closed {
		q.pending++
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// Sync waits until every pended interrupt has been handled. It must not
// be called from inside a critical section or a handler.
func (q *IRQ) Sync() {
	q.mu.Lock()
	for (q.pending > 0 || q.running) && !q.closed {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// Count returns the number of completed handler runs.
func (q *IRQ) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Close stops the dispatcher. Pending interrupts are dropped.
func (q *IRQ) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}
