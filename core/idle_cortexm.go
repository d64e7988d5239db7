//go:build tinygo && cortexm

package core

import "device/arm"

// idle sleeps until an interrupt is pending. WFI is issued with interrupts
// still masked so an interrupt arriving after the run queue check still
// wakes the core; the handler then runs as soon as cs ends.
func (s *Scheduler) idle(cs CriticalSection) {
	arm.Asm("wfi")
	cs.Exit()
}

// wake is a no-op: the interrupt that made a task runnable already woke the core.
func (s *Scheduler) wake() {}
