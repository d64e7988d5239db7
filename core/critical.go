package core

import "sync/atomic"

// CriticalSection is proof that interrupt delivery is disabled on this core.
//
// Enter masks interrupts and returns the token; Exit restores the state
// captured by Enter. Every operation on interrupt-shared state takes the
// token and aborts if it is not the live critical section, so a token kept
// past its Exit (or a zero value) can never be used to reach that state.
//
// Critical sections do not nest. Entering twice from the same context is a
// contract violation: it deadlocks on the host and re-enables interrupts
// early on hardware.
type CriticalSection struct {
	state State
	gen   uint32
}

var (
	csGen    atomic.Uint32
	csActive atomic.Bool
)

// Enter disables interrupts and returns a fresh critical section token.
func Enter() CriticalSection {
	state := disableInterrupts()
	gen := csGen.Add(1)
	if gen == 0 {
		gen = csGen.Add(1)
	}
	csActive.Store(true)
	return CriticalSection{state: state, gen: gen}
}

// Valid reports whether cs is the critical section currently in force.
func (cs CriticalSection) Valid() bool {
	return cs.gen != 0 && csActive.Load() && csGen.Load() == cs.gen
}

// Exit ends the critical section and restores the prior interrupt state.
func (cs CriticalSection) Exit() {
	if !cs.Valid() {
		Abort("critical section exited twice")
	}
	csActive.Store(false)
	restoreInterrupts(cs.state)
}

func (cs CriticalSection) check() {
	if !cs.Valid() {
		Abort("interrupt-shared state touched outside a critical section")
	}
}
