package core

import (
	"errors"
	"io"
	"strconv"

	"k20rt/protocol"
)

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures a timing-critical event for post-mortem analysis
type TraceEvent struct {
	Type   uint8  // Event type code
	ID     uint8  // Event-specific identifier (state kind, task slot)
	Clock  uint32 // Timebase reading when the event was recorded
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTimeoutArm  = 1 // Delay queued a timeout (v1=deadline, v2=delta)
	EvtTimeoutFire = 2 // Timeout expired and was signalled (v1=deadline)
	EvtCompare     = 3 // Compare register programmed (v1=compare, v2=1 for wrap detection)
	EvtEpochWrap   = 4 // Counter wrap observed (v1=new epoch)
	EvtMutexBlock  = 5 // Task queued on a contended mutex
	EvtI2CState    = 6 // I2C state change (id=kind, v1=remaining)
	EvtI2CNack     = 7 // I2C target did not acknowledge
	EvtFatal       = 8 // Abort was called
)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Trace ring buffer. Written with interrupts masked, never allocates.
	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8
	traceEnabled  bool = true

	// traceClock is the last time the timebase computed; events are stamped with it
	traceClock uint32
)

var errShortTrace = errors.New("trace: truncated event payload")

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// Abort reports an unrecoverable invariant violation and stops execution.
// It is reserved for contract breaches between components (spurious
// interrupts, wakeups nobody signalled), never for environmental failures.
func Abort(msg string) {
	recordTrace(EvtFatal, 0, 0, 0)
	if debugPrintln != nil {
		debugPrintln("[FATAL] " + msg)
	}
	panic("k20rt: " + msg)
}

// RecordTrace captures an event in the ring buffer. The caller must be
// inside cs; interrupt handlers and tasks share the ring.
func RecordTrace(cs CriticalSection, eventType, id uint8, value1, value2 uint32) {
	cs.check()
	recordTrace(eventType, id, value1, value2)
}

func recordTrace(eventType, id uint8, value1, value2 uint32) {
	if !traceEnabled {
		return
	}
	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		Type:   eventType,
		ID:     id,
		Clock:  traceClock,
		Value1: value1,
		Value2: value2,
	}
	traceRingHead = (idx + 1) % TraceRingSize
}

// TraceSnapshot returns the recorded events, oldest first.
func TraceSnapshot() []TraceEvent {
	cs := Enter()
	ring := traceRing
	start := traceRingHead
	cs.Exit()

	events := make([]TraceEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := ring[(start+i)%TraceRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// ClearTrace clears the trace buffer
func ClearTrace() {
	cs := Enter()
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
	cs.Exit()
}

// DumpTrace writes the trace ring to w as protocol frames, oldest first.
// The ring is copied under a critical section and encoded outside it, so a
// slow writer never holds off interrupts.
func DumpTrace(w io.Writer) error {
	output := protocol.NewScratchOutput()
	payload := protocol.NewScratchOutput()
	for _, evt := range TraceSnapshot() {
		output.Reset()
		payload.Reset()
		EncodeTraceEvent(payload, evt)
		if err := protocol.EncodeFrame(output, payload.Result()); err != nil {
			return err
		}
		if _, err := w.Write(output.Result()); err != nil {
			return err
		}
	}
	return nil
}

// EncodeTraceEvent writes the VLQ encoding of evt.
func EncodeTraceEvent(output protocol.OutputBuffer, evt TraceEvent) {
	protocol.EncodeVLQUint(output, uint32(evt.Type))
	protocol.EncodeVLQUint(output, uint32(evt.ID))
	protocol.EncodeVLQUint(output, evt.Clock)
	protocol.EncodeVLQUint(output, evt.Value1)
	protocol.EncodeVLQUint(output, evt.Value2)
}

// DecodeTraceEvent parses a frame payload produced by EncodeTraceEvent.
func DecodeTraceEvent(payload []byte) (TraceEvent, error) {
	var fields [5]uint32
	for i := range fields {
		v, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return TraceEvent{}, errShortTrace
		}
		fields[i] = v
	}
	return TraceEvent{
		Type:   uint8(fields[0]),
		ID:     uint8(fields[1]),
		Clock:  fields[2],
		Value1: fields[3],
		Value2: fields[4],
	}, nil
}

// TraceEventName returns the display name for an event type.
func TraceEventName(eventType uint8) string {
	switch eventType {
	case EvtTimeoutArm:
		return "TIMEOUT_ARM"
	case EvtTimeoutFire:
		return "TIMEOUT_FIRE"
	case EvtCompare:
		return "COMPARE"
	case EvtEpochWrap:
		return "EPOCH_WRAP"
	case EvtMutexBlock:
		return "MUTEX_BLOCK"
	case EvtI2CState:
		return "I2C_STATE"
	case EvtI2CNack:
		return "I2C_NACK"
	case EvtFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// String formats evt for log output.
func (evt TraceEvent) String() string {
	s := "[TRACE] " + TraceEventName(evt.Type) +
		" id=" + strconv.Itoa(int(evt.ID)) +
		" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
		" v1=" + strconv.FormatUint(uint64(evt.Value1), 10) +
		" v2=" + strconv.FormatUint(uint64(evt.Value2), 10)
	if evt.Type == EvtI2CState {
		s += " (" + I2CStateKind(evt.ID).String() + ")"
	}
	return s
}

// PrintTrace writes every recorded event through the debug writer
func PrintTrace() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, evt := range TraceSnapshot() {
		debugPrintln(evt.String())
	}
	debugPrintln("[TRACE] === End Dump ===")
}
