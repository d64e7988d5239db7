// Package serial opens the UART a board streams trace frames over.
package serial

import (
	"io"
)

// Port is the host end of a board's trace UART. The board only sends, so
// k20mon reads framed trace events from it; Write exists for loopback
// adapters that echo.
type Port interface {
	io.ReadWriteCloser

	// Flush drops bytes that arrived before the monitor started, so
	// framing begins at the next sync byte rather than mid-frame.
	Flush() error
}

// Config selects the trace UART and its line settings.
type Config struct {
	Device      string // e.g. "/dev/ttyACM0", "COM3"
	Baud        int
	ReadTimeout int // milliseconds, 0 blocks until a byte arrives
}

// DefaultConfig returns the line settings the K66 target drives its trace UART at.
func DefaultConfig(device string) *Config {
	return &Config{
		Device: device,
		Baud:   115200,
	}
}
