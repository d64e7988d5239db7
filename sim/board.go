package sim

import (
	"errors"
	"time"

	"k20rt/core"
)

// ErrStalled is returned by Board.Run when tasks stop making progress.
var ErrStalled = errors.New("sim: tasks stalled")

// Board wires the runtime to simulated hardware: a scheduler, a timebase
// on an LPTMR and an I2C driver on an I2C module, each with its
// interrupt routed.
type Board struct {
	Sched    *core.Scheduler
	Timer    *LowPowerTimer
	Timebase *core.Timebase
	Bus      *I2CPeripheral
	I2C      *core.I2C

	// MaxTicks bounds the simulated time Run may advance.
	MaxTicks uint32
	// IdleTimeout bounds the wall time Run waits with no timeout pending.
	IdleTimeout time.Duration

	timerIRQ *IRQ
	i2cIRQ   *IRQ
	done     chan struct{} // closed when the scheduler started by Run returns
}

// NewBoard returns a board with both peripherals set up.
func NewBoard() *Board {
	b := &Board{
		Sched:       core.NewScheduler(),
		Timer:       NewLowPowerTimer(),
		Bus:         NewI2CPeripheral(),
		MaxTicks:    1 << 20,
		IdleTimeout: 5 * time.Second,
	}
	b.Timebase = core.NewTimebase(b.Timer)
	b.I2C = core.NewI2C(b.Bus)

	b.timerIRQ = NewIRQ(b.Timebase.HandleInterrupt)
	b.Timer.Attach(b.timerIRQ)
	b.i2cIRQ = NewIRQ(b.I2C.HandleInterrupt)
	b.Bus.Attach(b.i2cIRQ)

	b.Timebase.Setup()
	b.I2C.Setup()
	return b
}

// Spawn adds a task to the board's scheduler.
func (b *Board) Spawn(name string, fn func()) *core.Task {
	return b.Sched.Spawn(name, fn)
}

// Run schedules the spawned tasks until all of them return. Simulated
// time advances one tick at a time, and only while a timeout is pending.
//
// On ErrStalled the scheduler is still running with tasks parked. Close
// stops it; state the tasks wrote is safe to read after Close returns,
// but the board cannot be run again.
func (b *Board) Run() error {
	done := make(chan struct{})
	b.done = done
	go func() {
		b.Sched.Run()
		close(done)
	}()

	var ticks uint32
	idleSince := time.Now()
	for {
		select {
		case <-done:
			return nil
		default:
		}

		cs := core.Enter()
		pending := b.Timebase.Pending(cs)
		cs.Exit()

		if pending == 0 {
			if time.Since(idleSince) > b.IdleTimeout {
				return ErrStalled
			}
			time.Sleep(20 * time.Microsecond)
			continue
		}
		if ticks >= b.MaxTicks {
			return ErrStalled
		}
		b.Timer.Tick(1)
		ticks++
		idleSince = time.Now()
	}
}

// Close stops the scheduler started by Run, if it is still running, and
// then the interrupt dispatchers.
func (b *Board) Close() {
	if b.done != nil {
		b.Sched.Stop()
		<-b.done
	}
	b.timerIRQ.Close()
	b.i2cIRQ.Close()
}
