package core

import "errors"

// ErrNack is returned when the addressed device does not acknowledge.
// Callers decide whether to retry.
var ErrNack = errors.New("i2c: not acknowledged")

// I2CStateKind enumerates the transfer state machine states.
type I2CStateKind uint8

const (
	I2CIdle I2CStateKind = iota
	I2CFailed
	I2CRxStart
	I2CRx
	I2CTx
)

func (k I2CStateKind) String() string {
	switch k {
	case I2CIdle:
		return "idle"
	case I2CFailed:
		return "failed"
	case I2CRxStart:
		return "rx-start"
	case I2CRx:
		return "rx"
	case I2CTx:
		return "tx"
	default:
		return "invalid"
	}
}

// I2CState is the state shared between the foreground transfer and the
// interrupt handler. buf is the part of the caller's buffer still to be
// sent (Tx) or filled (RxStart, Rx).
type I2CState struct {
	Kind I2CStateKind
	Err  error
	buf  []byte
}

// Remaining returns the number of bytes left in the transfer.
func (s I2CState) Remaining() int {
	return len(s.buf)
}

// I2C is an interrupt-driven I2C master. One transfer is in flight at a
// time: Start takes the bus mutex, the returned context performs blocking
// reads and writes, and Close releases the bus.
type I2C struct {
	regs  I2CRegs
	lock  Mutex
	state Shared[I2CState]
	irq   CondVar
}

// NewI2C creates a driver on regs. Route the peripheral's interrupt to
// HandleInterrupt.
func NewI2C(regs I2CRegs) *I2C {
	return &I2C{regs: regs}
}

// Setup enables the peripheral.
func (i *I2C) Setup() {
	i.regs.SetControl(I2CControlIICEN)
}

// State returns the current transfer state.
func (i *I2C) State(cs CriticalSection) I2CState {
	return i.state.Borrow(cs).Get()
}

// I2CContext is exclusive use of the bus, held from Start until Close.
type I2CContext struct {
	i2c *I2C
}

// Start blocks until the bus is free and claims it.
func (i *I2C) Start() *I2CContext {
	i.lock.Lock()
	return &I2CContext{i2c: i}
}

// Close releases the bus. Closing twice is a no-op.
func (c *I2CContext) Close() {
	if c.i2c == nil {
		return
	}
	c.i2c.lock.Unlock()
	c.i2c = nil
}

// Write sends data to addr. It returns once every byte was acknowledged,
// or ErrNack as soon as the device stops acknowledging.
func (c *I2CContext) Write(addr Address, data []byte) error {
	return c.bus().transfer(addr, I2CState{Kind: I2CTx, buf: data}, false)
}

// Read fills buf from addr. The final byte is NACKed as the protocol
// requires. An empty buf returns at once without touching the bus.
func (c *I2CContext) Read(addr Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return c.bus().transfer(addr, I2CState{Kind: I2CRxStart, buf: buf}, true)
}

func (c *I2CContext) bus() *I2C {
	if c.i2c == nil {
		Abort("i2c: transfer on a closed context")
	}
	return c.i2c
}

// transfer starts a transfer in state initial and blocks until the
// interrupt handler finishes it.
func (i *I2C) transfer(addr Address, initial I2CState, read bool) error {
	// ensure the STOP of the previous transfer has gone out
	for i.regs.Status()&I2CStatusBUSY != 0 {
	}
	c1 := i.regs.Control() &^ I2CControlTXAK
	i.regs.SetControl(c1 | I2CControlIICEN | I2CControlIICIE | I2CControlMST | I2CControlTX)

	var e waitEntry
	var slot wakeSlot
	cs := Enter()
	i.setState(cs, i.state.Borrow(cs), initial)
	i.irq.prepareWait(cs, &e, &slot)
	// The address byte raises the first interrupt; with the state already
	// published the handler can never observe Idle for it.
	i.regs.SetData(addr.wire(read))
	e.task.park(cs)

	return i.finish()
}

// finish collects the outcome and leaves the driver Idle.
func (i *I2C) finish() error {
	cs := Enter()
	defer cs.Exit()
	st := i.state.Borrow(cs)
	s := st.Get()
	switch s.Kind {
	case I2CIdle:
		return nil
	case I2CFailed:
		i.setState(cs, st, I2CState{Kind: I2CIdle})
		return s.Err
	default:
		Abort("i2c: woken with a transfer still in flight")
		return nil
	}
}

func (i *I2C) setState(cs CriticalSection, st Ref[I2CState], s I2CState) {
	st.Set(s)
	RecordTrace(cs, EvtI2CState, uint8(s.Kind), uint32(len(s.buf)), 0)
}

// stop clears master mode, which puts a STOP on the bus.
func (i *I2C) stop() {
	i.regs.SetControl(i.regs.Control() &^ (I2CControlMST | I2CControlTX | I2CControlTXAK))
}

// done ends the transfer in state s and wakes the waiting task.
func (i *I2C) done(cs CriticalSection, st Ref[I2CState], s I2CState) {
	i.setState(cs, st, s)
	i.irq.SignalLocked(cs)
}

// HandleInterrupt is the I2C interrupt handler. It runs with every
// interrupt masked for its whole duration.
func (i *I2C) HandleInterrupt() {
	cs := Enter()
	defer cs.Exit()

	st := i.state.Borrow(cs)
	s := st.Get()
	status := i.regs.Status()
	i.regs.SetStatus(I2CStatusIICIF)

	switch s.Kind {
	case I2CIdle, I2CFailed:
		Abort("i2c: spurious interrupt while " + s.Kind.String())

	case I2CRxStart:
		if status&I2CStatusRXAK != 0 {
			i.nack(cs, st)
			return
		}
		c1 := i.regs.Control() &^ I2CControlTX
		if len(s.buf) == 1 {
			c1 |= I2CControlTXAK
		}
		i.regs.SetControl(c1)
		i.setState(cs, st, I2CState{Kind: I2CRx, buf: s.buf})
		i.regs.Data() // dummy read clocks in the first byte

	case I2CRx:
		if len(s.buf) == 1 {
			i.stop()
			s.buf[0] = i.regs.Data()
			i.done(cs, st, I2CState{Kind: I2CIdle})
			return
		}
		if len(s.buf) == 2 {
			// the byte clocked in next is the last one: NACK it
			i.regs.SetControl(i.regs.Control() | I2CControlTXAK)
		}
		i.setState(cs, st, I2CState{Kind: I2CRx, buf: s.buf[1:]})
		s.buf[0] = i.regs.Data()

	case I2CTx:
		if status&I2CStatusRXAK != 0 {
			i.nack(cs, st)
			return
		}
		if len(s.buf) == 0 {
			i.stop()
			i.done(cs, st, I2CState{Kind: I2CIdle})
			return
		}
		i.setState(cs, st, I2CState{Kind: I2CTx, buf: s.buf[1:]})
		i.regs.SetData(s.buf[0])
	}
}

func (i *I2C) nack(cs CriticalSection, st Ref[I2CState]) {
	i.stop()
	RecordTrace(cs, EvtI2CNack, uint8(st.Get().Kind), 0, 0)
	i.done(cs, st, I2CState{Kind: I2CFailed, Err: ErrNack})
}
