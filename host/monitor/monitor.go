// Package monitor decodes the trace frames a board writes on its debug
// UART and prints them.
package monitor

import (
	"errors"
	"fmt"
	"io"

	"k20rt/core"
	"k20rt/protocol"
)

// Stats counts what the monitor has seen.
type Stats struct {
	Frames    int // frames decoded into events
	BadFrames int // frames dropped for a CRC mismatch
	BadEvents int // frames whose payload was not an event
}

// Monitor reads trace frames from a stream.
type Monitor struct {
	frames *protocol.FrameReader
	out    io.Writer
	raw    bool
	stats  Stats
}

// New creates a monitor reading r and printing to out.
func New(r io.Reader, out io.Writer) *Monitor {
	return &Monitor{
		frames: protocol.NewFrameReader(r),
		out:    out,
	}
}

// SetRaw makes Run print frame payloads in hex instead of decoding them.
func (m *Monitor) SetRaw(raw bool) {
	m.raw = raw
}

// Stats returns the counters so far.
func (m *Monitor) Stats() Stats {
	return m.stats
}

// Next returns the next well-formed event, skipping damaged frames.
func (m *Monitor) Next() (core.TraceEvent, error) {
	for {
		payload, err := m.frames.Next()
		if errors.Is(err, protocol.ErrFrameCRC) {
			m.stats.BadFrames++
			continue
		}
		if err != nil {
			return core.TraceEvent{}, err
		}
		evt, err := core.DecodeTraceEvent(payload)
		if err != nil {
			m.stats.BadEvents++
			continue
		}
		m.stats.Frames++
		return evt, nil
	}
}

// Run prints every frame until the stream ends. A clean end of stream
// returns nil.
func (m *Monitor) Run() error {
	if m.raw {
		return m.runRaw()
	}
	for {
		evt, err := m.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("trace stream: %w", err)
		}
		if _, err := fmt.Fprintln(m.out, evt.String()); err != nil {
			return err
		}
	}
}

func (m *Monitor) runRaw() error {
	for {
		payload, err := m.frames.Next()
		if errors.Is(err, protocol.ErrFrameCRC) {
			m.stats.BadFrames++
			fmt.Fprintln(m.out, "bad frame")
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("trace stream: %w", err)
		}
		m.stats.Frames++
		if _, err := fmt.Fprintf(m.out, "% x\n", payload); err != nil {
			return err
		}
	}
}
