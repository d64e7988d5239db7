//go:build !tinygo

package core

import "sync"

// State is the saved interrupt state on regular Go
type State uintptr

// irqMask stands in for the core's interrupt enable bit. Foreground
// goroutines and simulated interrupt dispatchers both take it, so at most
// one of them is ever inside a critical section.
var irqMask sync.Mutex

// disableInterrupts masks interrupts on regular Go (for testing)
func disableInterrupts() State {
	irqMask.Lock()
	return 0
}

// restoreInterrupts unmasks interrupts on regular Go (for testing)
func restoreInterrupts(state State) {
	irqMask.Unlock()
}
