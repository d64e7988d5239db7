//go:build !(tinygo && cortexm)

package core

// idle ends cs and waits until an interrupt handler makes a task runnable.
func (s *Scheduler) idle(cs CriticalSection) {
	cs.Exit()
	<-s.kick
}

// wake releases an idle scheduler. It never blocks.
func (s *Scheduler) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}
