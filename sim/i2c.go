package sim

import (
	"sync"

	"k20rt/core"
)

// Target is a device on the simulated bus.
type Target interface {
	// Start is called when the target is addressed and reports whether it
	// acknowledges.
	Start(read bool) bool
	// Write receives one byte and reports whether it is acknowledged.
	Write(b byte) bool
	// Read supplies the next byte for the master.
	Read() byte
	// Stop ends the transaction.
	Stop()
}

// RxRecord is one byte clocked in by the master.
type RxRecord struct {
	Value  byte
	Nacked bool
}

type busPhase uint8

const (
	phaseIdle busPhase = iota
	phaseAddress
	phaseData
)

// I2CPeripheral models the I2C module registers in master mode. Setting
// MST sends START, clearing it sends STOP. In transmit mode a write to D
// moves one byte; in receive mode a read of D returns the last byte and
// clocks in the next one, acknowledged unless TXAK is set.
type I2CPeripheral struct {
	mu      sync.Mutex
	irq     *IRQ
	c1, s   uint8
	d       uint8
	targets map[core.Address]Target

	phase   busPhase
	active  Target
	reading bool

	interrupts int
	starts     int
	stops      int
	rx         []RxRecord
}

var _ core.I2CRegs = (*I2CPeripheral)(nil)

// NewI2CPeripheral returns an idle bus with no targets.
func NewI2CPeripheral() *I2CPeripheral {
	return &I2CPeripheral{targets: make(map[core.Address]Target)}
}

// Attach routes the module interrupt to irq.
func (p *I2CPeripheral) Attach(irq *IRQ) {
	p.mu.Lock()
	p.irq = irq
	p.mu.Unlock()
}

// AddTarget places t on the bus at addr.
func (p *I2CPeripheral) AddTarget(addr core.Address, t Target) {
	p.mu.Lock()
	p.targets[addr] = t
	p.mu.Unlock()
}

func (p *I2CPeripheral) Control() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.c1
}

func (p *I2CPeripheral) SetControl(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.c1
	p.c1 = v
	switch {
	case old&core.I2CControlMST == 0 && v&core.I2CControlMST != 0:
		p.starts++
		p.s |= core.I2CStatusBUSY
		p.phase = phaseAddress
	case old&core.I2CControlMST != 0 && v&core.I2CControlMST == 0:
		p.stops++
		p.s &^= core.I2CStatusBUSY
		if p.active != nil {
			p.active.Stop()
		}
		p.active = nil
		p.phase = phaseIdle
	}
}

func (p *I2CPeripheral) Status() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}

func (p *I2CPeripheral) SetStatus(v uint8) {
	p.mu.Lock()
	p.s &^= v & core.I2CStatusIICIF
	p.mu.Unlock()
}

func (p *I2CPeripheral) Data() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.d
	if p.c1&core.I2CControlMST == 0 || p.c1&core.I2CControlTX != 0 {
		return v
	}
	if p.phase != phaseData || !p.reading {
		return v
	}
	b := p.active.Read()
	p.rx = append(p.rx, RxRecord{Value: b, Nacked: p.c1&core.I2CControlTXAK != 0})
	p.d = b
	p.complete(false)
	return v
}

func (p *I2CPeripheral) SetData(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.d = v
	if p.c1&core.I2CControlMST == 0 || p.c1&core.I2CControlTX == 0 {
		return
	}
	switch p.phase {
	case phaseAddress:
		read := v&1 != 0
		t := p.targets[core.AddressFromWire(v)]
		if t == nil || !t.Start(read) {
			p.phase = phaseIdle
			p.complete(true)
			return
		}
		p.active = t
		p.reading = read
		p.phase = phaseData
		p.complete(false)
	case phaseData:
		ack := !p.reading && p.active.Write(v)
		p.complete(!ack)
	default:
		// nobody is listening after a NACK
		p.complete(true)
	}
}

// complete finishes a byte: the status flags are set and the interrupt is
// raised if enabled. Called with mu held.
func (p *I2CPeripheral) complete(nack bool) {
	if nack {
		p.s |= core.I2CStatusRXAK
	} else {
		p.s &^= core.I2CStatusRXAK
	}
	p.s |= core.I2CStatusTCF | core.I2CStatusIICIF
	if p.c1&core.I2CControlIICIE != 0 && p.irq != nil {
		p.interrupts++
		p.irq.Pend()
	}
}

// Interrupts returns the number of interrupts raised.
func (p *I2CPeripheral) Interrupts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupts
}

// Starts returns the number of START conditions sent.
func (p *I2CPeripheral) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

// Stops returns the number of STOP conditions sent.
func (p *I2CPeripheral) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// RxRecords returns every byte clocked in so far.
func (p *I2CPeripheral) RxRecords() []RxRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RxRecord(nil), p.rx...)
}
