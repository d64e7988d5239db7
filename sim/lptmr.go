package sim

import "sync"

// LowPowerTimer models the 16-bit LPTMR in free-running mode. Time only
// moves when Tick is called.
type LowPowerTimer struct {
	mu      sync.Mutex
	irq     *IRQ
	running bool
	counter uint16
	compare uint16
	flag    bool
	starts  int
}

// NewLowPowerTimer returns a stopped timer with no interrupt attached.
func NewLowPowerTimer() *LowPowerTimer {
	return &LowPowerTimer{}
}

// Attach routes the compare interrupt to irq.
func (l *LowPowerTimer) Attach(irq *IRQ) {
	l.mu.Lock()
	l.irq = irq
	l.mu.Unlock()
}

func (l *LowPowerTimer) Start() {
	l.mu.Lock()
	l.running = true
	l.starts++
	l.mu.Unlock()
}

func (l *LowPowerTimer) Counter() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counter
}

func (l *LowPowerTimer) SetCompare(v uint16) {
	l.mu.Lock()
	l.compare = v
	l.mu.Unlock()
}

func (l *LowPowerTimer) AckCompare() {
	l.mu.Lock()
	l.flag = false
	l.mu.Unlock()
}

// Compare returns the programmed compare value.
func (l *LowPowerTimer) Compare() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.compare
}

// Flag reports whether the compare flag is set and not yet acknowledged.
func (l *LowPowerTimer) Flag() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flag
}

// SetCounter forces the counter, e.g. to start a test just before a wrap.
func (l *LowPowerTimer) SetCounter(v uint16) {
	l.mu.Lock()
	l.counter = v
	l.mu.Unlock()
}

// Tick advances a running counter by n ticks. Whenever the counter lands
// on the compare value the interrupt is raised and Tick waits for the
// handler before moving on, as the hardware would keep counting only
// microseconds later.
func (l *LowPowerTimer) Tick(n uint32) {
	for ; n > 0; n-- {
		l.mu.Lock()
		if !l.running {
			l.mu.Unlock()
			return
		}
		l.counter++
		irq := l.irq
		match := l.counter == l.compare
		if match {
			l.flag = true
		}
		l.mu.Unlock()

		if match && irq != nil {
			irq.Pend()
			irq.Sync()
		}
	}
}
