//go:build nxp && mk66f18

// Package k66 brings up the runtime on a Kinetis K66 board (Teensy 3.6):
// the timebase on LPTMR0, the I2C master on I2C0 and debug output on the
// default UART.
package k66

import (
	"device/nxp"
	"machine"
	"runtime/interrupt"

	"k20rt/core"
)

var (
	Sched    *core.Scheduler
	Timebase *core.Timebase
	I2C      *core.I2C
)

// Init configures the peripherals and routes their interrupts. Call it
// once before spawning tasks.
func Init() {
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})

	Sched = core.NewScheduler()

	Timebase = core.NewTimebase(lptmr{regs: regLPTMR})
	Timebase.Setup()
	lptmrIRQ := interrupt.New(nxp.IRQ_LPTMR0, func(interrupt.Interrupt) {
		Timebase.HandleInterrupt()
	})
	lptmrIRQ.Enable()

	enableI2C0()
	I2C = core.NewI2C(i2cRegs{regs: regI2C0})
	I2C.Setup()
	i2cIRQ := interrupt.New(nxp.IRQ_I2C0, func(interrupt.Interrupt) {
		I2C.HandleInterrupt()
	})
	i2cIRQ.Enable()

	core.DebugPrintln("[K66] timebase and I2C0 ready")
}

// DumpTrace writes the trace ring to the UART as frames and clears it.
func DumpTrace() {
	if err := core.DumpTrace(machine.Serial); err != nil {
		core.DebugPrintln("[K66] trace dump failed: " + err.Error())
		return
	}
	core.ClearTrace()
}
