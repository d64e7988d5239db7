// Package protocol implements the framing used to ship trace data from the
// firmware to a host: VLQ-encoded fields inside CRC-checked frames.
package protocol

// Version is the trace protocol version
const Version = "0.1.0"

// Framing constants
const (
	MessageMax      = 64 // Maximum encoded frame size
	FrameSync       = 0x7E
	FrameHeader     = 2 // sync + length
	FrameTrailer    = 2 // CRC16, high byte first
	FrameMaxPayload = MessageMax - FrameHeader - FrameTrailer
)
