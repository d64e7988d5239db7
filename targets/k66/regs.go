//go:build nxp && mk66f18

package k66

import (
	"runtime/volatile"
	"unsafe"
)

// Kinetis K66 peripheral memory map
const (
	simBase   = 0x40047000
	simSCGC4  = simBase + 0x1034
	simSCGC5  = simBase + 0x1038
	portBBase = 0x4004A000
	lptmrBase = 0x40040000
	i2c0Base  = 0x40066000
)

// SIM clock gate bits
const (
	scgc4I2C0  = 1 << 6
	scgc5LPTMR = 1 << 0
	scgc5PORTB = 1 << 10
)

// LPTMR register bits
const (
	lptmrCSR_TEN = 1 << 0 // timer enable
	lptmrCSR_TFC = 1 << 2 // free-running counter
	lptmrCSR_TIE = 1 << 6 // interrupt enable
	lptmrCSR_TCF = 1 << 7 // compare flag, write one to clear

	lptmrPSR_PCS_LPO = 1 << 0 // 1 kHz LPO clock
	lptmrPSR_PBYP    = 1 << 2 // prescaler bypass
)

// PORT pin control: alternative 2 is I2C0 on PTB2/PTB3, open drain
const portPCR_I2C = 2<<8 | 1<<5

// I2C frequency divider for ~100 kHz SCL from the 48 MHz bus clock
const i2cDivider = 0x27

var (
	regSCGC4  = (*volatile.Register32)(unsafe.Pointer(uintptr(simSCGC4)))
	regSCGC5  = (*volatile.Register32)(unsafe.Pointer(uintptr(simSCGC5)))
	regPortB2 = (*volatile.Register32)(unsafe.Pointer(uintptr(portBBase + 0x08)))
	regPortB3 = (*volatile.Register32)(unsafe.Pointer(uintptr(portBBase + 0x0C)))
	regLPTMR  = (*lptmrRegs)(unsafe.Pointer(uintptr(lptmrBase)))
	regI2C0   = (*i2cBlock)(unsafe.Pointer(uintptr(i2c0Base)))
)

type lptmrRegs struct {
	CSR volatile.Register32
	PSR volatile.Register32
	CMR volatile.Register32
	CNR volatile.Register32
}

// lptmr implements core.LowPowerTimer on LPTMR0.
type lptmr struct {
	regs *lptmrRegs
}

func (l lptmr) Start() {
	regSCGC5.SetBits(scgc5LPTMR)
	l.regs.CSR.Set(0)
	l.regs.PSR.Set(lptmrPSR_PCS_LPO | lptmrPSR_PBYP)
	l.regs.CMR.Set(0)
	l.regs.CSR.Set(lptmrCSR_TEN | lptmrCSR_TFC | lptmrCSR_TIE)
}

func (l lptmr) Counter() uint16 {
	// CNR only updates on a write
	l.regs.CNR.Set(0)
	return uint16(l.regs.CNR.Get())
}

func (l lptmr) SetCompare(v uint16) {
	l.regs.CMR.Set(uint32(v))
}

func (l lptmr) AckCompare() {
	l.regs.CSR.SetBits(lptmrCSR_TCF)
}

type i2cBlock struct {
	A1 volatile.Register8
	F  volatile.Register8
	C1 volatile.Register8
	S  volatile.Register8
	D  volatile.Register8
	C2 volatile.Register8
}

// i2cRegs implements core.I2CRegs on an I2C module.
type i2cRegs struct {
	regs *i2cBlock
}

func (r i2cRegs) Control() uint8     { return r.regs.C1.Get() }
func (r i2cRegs) SetControl(v uint8) { r.regs.C1.Set(v) }
func (r i2cRegs) Status() uint8      { return r.regs.S.Get() }
func (r i2cRegs) SetStatus(v uint8)  { r.regs.S.Set(v) }
func (r i2cRegs) Data() uint8        { return r.regs.D.Get() }
func (r i2cRegs) SetData(v uint8)    { r.regs.D.Set(v) }

// enableI2C0 gates the module clock, muxes PTB2/PTB3 and sets the divider.
func enableI2C0() {
	regSCGC5.SetBits(scgc5PORTB)
	regSCGC4.SetBits(scgc4I2C0)
	regPortB2.Set(portPCR_I2C)
	regPortB3.Set(portPCR_I2C)
	regI2C0.F.Set(i2cDivider)
}
