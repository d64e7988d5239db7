//go:build nxp && mk66f18

// Probe firmware: one task polls an I2C device while another streams the
// trace ring to the host monitor.
package main

import (
	"errors"
	"strconv"

	"k20rt/core"
	"k20rt/targets/k66"
)

const (
	probeAddr   = core.Address(0x29)
	probeReg    = 0x01
	probePeriod = 100  // ms
	tracePeriod = 1000 // ms
)

func main() {
	k66.Init()
	core.SetDebugEnabled(true)

	k66.Sched.Spawn("probe", probeLoop)
	k66.Sched.Spawn("trace", traceLoop)
	k66.Sched.Run()
}

func probeLoop() {
	buf := make([]byte, 2)
	for {
		ctx := k66.I2C.Start()
		err := ctx.Write(probeAddr, []byte{probeReg})
		if err == nil {
			err = ctx.Read(probeAddr, buf)
		}
		ctx.Close()

		switch {
		case errors.Is(err, core.ErrNack):
			core.DebugPrintln("[PROBE] no device at 0x29")
		case err != nil:
			core.DebugPrintln("[PROBE] " + err.Error())
		default:
			core.DebugPrintln("[PROBE] reg 0x01 = " + strconv.Itoa(int(buf[0])<<8|int(buf[1])))
		}
		k66.Timebase.Delay(core.Milliseconds(probePeriod))
	}
}

func traceLoop() {
	for {
		k66.Timebase.Delay(core.Milliseconds(tracePeriod))
		k66.DumpTrace()
	}
}
