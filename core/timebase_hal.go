package core

// LowPowerTimer is the register-level view of the low-power timer the
// timebase runs on: a free-running 16-bit counter with one compare
// register whose match raises the compare interrupt.
type LowPowerTimer interface {
	// Start gates the peripheral clock, selects the prescaler and enables
	// the counter in free-running mode with the compare interrupt on.
	Start()

	// Counter latches and returns the current counter value.
	Counter() uint16

	// SetCompare programs the compare register.
	SetCompare(v uint16)

	// AckCompare clears the compare flag (write-one-to-clear).
	AckCompare()
}
