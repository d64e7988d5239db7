package protocol

import (
	"bufio"
	"errors"
	"io"

	"github.com/sigurn/crc16"
)

var (
	ErrFrameTooLarge = errors.New("frame payload too large")
	ErrFrameCRC      = errors.New("frame CRC mismatch")
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum returns the frame CRC over data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// EncodeFrame writes payload as one frame:
//
//	0x7E | len | payload | crc16 (hi, lo)
//
// The CRC covers the length byte and the payload.
func EncodeFrame(output OutputBuffer, payload []byte) error {
	if len(payload) > FrameMaxPayload {
		return ErrFrameTooLarge
	}
	start := output.CurPosition()
	output.Output([]byte{FrameSync, byte(len(payload))})
	output.Output(payload)
	crc := Checksum(output.DataSince(start + 1))
	output.Output([]byte{byte(crc >> 8), byte(crc)})
	return nil
}

// FrameReader splits a byte stream into frame payloads, resynchronizing on
// the sync byte after garbage or a damaged frame.
type FrameReader struct {
	r   *bufio.Reader
	buf [FrameMaxPayload + 1]byte
}

// NewFrameReader reads frames from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// Next returns the payload of the next frame. The slice is valid until
// the following call. ErrFrameCRC reports a damaged frame; reading may
// continue after it. Stream errors are returned unchanged.
func (f *FrameReader) Next() ([]byte, error) {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != FrameSync {
			continue
		}

		n, err := f.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if n == FrameSync || int(n) > FrameMaxPayload {
			// not a length; treat it as the start of the next frame
			if err := f.r.UnreadByte(); err != nil {
				return nil, err
			}
			continue
		}

		f.buf[0] = n
		if _, err := io.ReadFull(f.r, f.buf[1:int(n)+1]); err != nil {
			return nil, err
		}
		var trailer [FrameTrailer]byte
		if _, err := io.ReadFull(f.r, trailer[:]); err != nil {
			return nil, err
		}
		want := uint16(trailer[0])<<8 | uint16(trailer[1])
		if Checksum(f.buf[:int(n)+1]) != want {
			return nil, ErrFrameCRC
		}
		return f.buf[1 : int(n)+1], nil
	}
}
