package core

import "tinygo.org/x/drivers"

// I2CBus exposes an I2C driver as a drivers.I2C so TinyGo device drivers
// can run on it. Each call is one bus claim: the write part and the read
// part go out as two transfers separated by a STOP.
type I2CBus struct {
	i2c *I2C
}

var _ drivers.I2C = (*I2CBus)(nil)

// NewI2CBus wraps i.
func NewI2CBus(i *I2C) *I2CBus {
	return &I2CBus{i2c: i}
}

// Tx writes w and then reads len(r) bytes from the 7-bit address addr.
func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	ctx := b.i2c.Start()
	defer ctx.Close()

	if len(w) > 0 {
		if err := ctx.Write(Address(addr), w); err != nil {
			return err
		}
	}
	return ctx.Read(Address(addr), r)
}

// ReadRegister reads len(buf) bytes starting at register r.
func (b *I2CBus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes buf starting at register r.
func (b *I2CBus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}
