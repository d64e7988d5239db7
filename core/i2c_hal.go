package core

// I2CRegs is the byte-wide register view of an I2C peripheral in master
// mode: control (C1), status (S) and data (D).
type I2CRegs interface {
	Control() uint8
	SetControl(v uint8)

	Status() uint8
	// SetStatus writes S; flag bits are write-one-to-clear.
	SetStatus(v uint8)

	// Data reads D. In receive mode the read also starts the next byte.
	Data() uint8
	// SetData writes D. In transmit mode the write starts the transfer.
	SetData(v uint8)
}

// Control register (C1) bits
const (
	I2CControlTXAK  uint8 = 1 << 3 // NACK the next received byte
	I2CControlTX    uint8 = 1 << 4 // transmit direction
	I2CControlMST   uint8 = 1 << 5 // master mode; 0->1 sends START, 1->0 sends STOP
	I2CControlIICIE uint8 = 1 << 6 // interrupt enable
	I2CControlIICEN uint8 = 1 << 7 // module enable
)

// Status register (S) bits
const (
	I2CStatusRXAK  uint8 = 1 << 0 // no acknowledge received
	I2CStatusIICIF uint8 = 1 << 1 // interrupt pending
	I2CStatusBUSY  uint8 = 1 << 5 // bus busy between START and STOP
	I2CStatusTCF   uint8 = 1 << 7 // transfer complete
)

// Address is a 7-bit I2C device address.
type Address uint8

// AddressFromWire normalizes an 8-bit address (one that already includes
// the R/W bit position) to its 7-bit form.
func AddressFromWire(b uint8) Address {
	return Address(b >> 1)
}

// wire returns the address byte sent after START.
func (a Address) wire(read bool) uint8 {
	b := uint8(a&0x7F) << 1
	if read {
		b |= 1
	}
	return b
}
