package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// uartPort is a Port backed by the operating system's serial driver.
type uartPort struct {
	*serial.Port
}

// Open opens the trace UART named by cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serial: nil config")
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial: no trace device given")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open trace UART %s: %w", cfg.Device, err)
	}
	return uartPort{port}, nil
}
