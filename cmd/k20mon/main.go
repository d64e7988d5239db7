package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"k20rt/host/monitor"
	"k20rt/host/serial"
)

var (
	device = flag.String("device", "/dev/ttyACM0", "Serial device path, or - for stdin")
	baud   = flag.Int("baud", 115200, "Baud rate of the trace UART")
	raw    = flag.Bool("raw", false, "Print frame payloads in hex instead of decoding them")
)

func main() {
	flag.Parse()

	var in io.Reader
	if *device == "-" {
		in = os.Stdin
	} else {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()
		if err := port.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
		}
		in = port
		fmt.Fprintf(os.Stderr, "Listening on %s at %d baud\n", *device, *baud)
	}

	m := monitor.New(in, os.Stdout)
	m.SetRaw(*raw)
	err := m.Run()

	stats := m.Stats()
	fmt.Fprintf(os.Stderr, "%d frames, %d bad frames, %d bad events\n",
		stats.Frames, stats.BadFrames, stats.BadEvents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
