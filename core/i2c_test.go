package core_test

import (
	"bytes"
	"errors"
	"testing"

	"k20rt/core"
	"k20rt/sim"
)

func i2cStates() []core.I2CStateKind {
	var kinds []core.I2CStateKind
	for _, evt := range core.TraceSnapshot() {
		if evt.Type == core.EvtI2CState {
			kinds = append(kinds, core.I2CStateKind(evt.ID))
		}
	}
	return kinds
}

func equalKinds(a, b []core.I2CStateKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func runI2C(t *testing.T, board *sim.Board, fn func(ctx *core.I2CContext)) {
	t.Helper()
	board.Spawn("i2c", func() {
		ctx := board.I2C.Start()
		defer ctx.Close()
		fn(ctx)
	})
	if err := board.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func expectIdle(t *testing.T, board *sim.Board) {
	t.Helper()
	cs := core.Enter()
	st := board.I2C.State(cs)
	cs.Exit()
	if st.Kind != core.I2CIdle {
		t.Errorf("Expected driver idle, got %s", st.Kind)
	}
}

func TestI2CWrite(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	mem := sim.NewMemory(nil)
	board.Bus.AddTarget(0x29, mem)
	core.ClearTrace()

	var err error
	runI2C(t, board, func(ctx *core.I2CContext) {
		err = ctx.Write(0x29, []byte{0x12})
	})

	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	writes := mem.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{0x12}) {
		t.Errorf("Expected device to receive [12], got %v", writes)
	}

	expected := []core.I2CStateKind{core.I2CTx, core.I2CTx, core.I2CIdle}
	if got := i2cStates(); !equalKinds(got, expected) {
		t.Errorf("Expected states %v, got %v", expected, got)
	}
	if board.Bus.Interrupts() != 2 {
		t.Errorf("Expected 2 interrupts (address, data), got %d", board.Bus.Interrupts())
	}
	if board.Bus.Stops() != 1 {
		t.Errorf("Expected one STOP, got %d", board.Bus.Stops())
	}
	expectIdle(t, board)
}

func TestI2CReadNack(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	core.ClearTrace()

	var err error
	runI2C(t, board, func(ctx *core.I2CContext) {
		err = ctx.Read(0x29, make([]byte, 2))
	})

	if !errors.Is(err, core.ErrNack) {
		t.Fatalf("Expected ErrNack, got %v", err)
	}
	if board.Bus.Stops() != 1 {
		t.Errorf("Expected STOP after NACK, got %d", board.Bus.Stops())
	}

	nacked := false
	for _, evt := range core.TraceSnapshot() {
		if evt.Type == core.EvtI2CNack && core.I2CStateKind(evt.ID) == core.I2CRxStart {
			nacked = true
		}
	}
	if !nacked {
		t.Errorf("Expected NACK traced in rx-start")
	}

	expected := []core.I2CStateKind{core.I2CRxStart, core.I2CFailed, core.I2CIdle}
	if got := i2cStates(); !equalKinds(got, expected) {
		t.Errorf("Expected states %v, got %v", expected, got)
	}
	expectIdle(t, board)
}

func TestI2CWriteDataNack(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	mem := sim.NewMemory(nil)
	mem.SetNackWrites(true)
	board.Bus.AddTarget(0x29, mem)

	var err error
	runI2C(t, board, func(ctx *core.I2CContext) {
		err = ctx.Write(0x29, []byte{0x01, 0x02, 0x03})
	})

	if !errors.Is(err, core.ErrNack) {
		t.Fatalf("Expected ErrNack, got %v", err)
	}
	// address and the first refused byte
	if board.Bus.Interrupts() != 2 {
		t.Errorf("Expected transfer to stop at the refused byte, got %d interrupts", board.Bus.Interrupts())
	}
	expectIdle(t, board)
}

func TestI2CMultiByteRead(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	board.Bus.AddTarget(0x29, sim.NewMemory([]byte{0xA1, 0xB2, 0xC3}))

	buf := make([]byte, 3)
	var err error
	runI2C(t, board, func(ctx *core.I2CContext) {
		err = ctx.Read(0x29, buf)
	})

	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xA1, 0xB2, 0xC3}) {
		t.Errorf("Expected [a1 b2 c3], got % x", buf)
	}

	// one interrupt for the address, one per received byte
	if board.Bus.Interrupts() != 4 {
		t.Errorf("Expected 4 interrupts, got %d", board.Bus.Interrupts())
	}
	rx := board.Bus.RxRecords()
	if len(rx) != 3 {
		t.Fatalf("Expected 3 bytes clocked, got %d", len(rx))
	}
	for i, r := range rx {
		last := i == len(rx)-1
		if r.Nacked != last {
			t.Errorf("Byte %d: expected nacked=%v, got %v", i, last, r.Nacked)
		}
	}
	if board.Bus.Stops() != 1 {
		t.Errorf("Expected one STOP, got %d", board.Bus.Stops())
	}
	expectIdle(t, board)
}

func TestI2CSingleByteRead(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	board.Bus.AddTarget(0x29, sim.NewMemory([]byte{0x5A}))

	buf := make([]byte, 1)
	var err error
	runI2C(t, board, func(ctx *core.I2CContext) {
		err = ctx.Read(0x29, buf)
	})

	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if buf[0] != 0x5A {
		t.Errorf("Expected 0x5a, got 0x%02x", buf[0])
	}
	rx := board.Bus.RxRecords()
	if len(rx) != 1 || !rx[0].Nacked {
		t.Errorf("Expected the only byte NACKed, got %+v", rx)
	}
}

func TestI2CZeroLengthRead(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()

	var err error
	runI2C(t, board, func(ctx *core.I2CContext) {
		err = ctx.Read(0x29, nil)
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if board.Bus.Starts() != 0 {
		t.Errorf("Expected no bus activity, got %d starts", board.Bus.Starts())
	}
}

func TestI2CRecoversAfterNack(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	mem := sim.NewMemory([]byte{0x00, 0x77})
	board.Bus.AddTarget(0x29, mem)

	var first, second error
	buf := make([]byte, 1)
	runI2C(t, board, func(ctx *core.I2CContext) {
		first = ctx.Write(0x30, []byte{0x00})
		if second = ctx.Write(0x29, []byte{0x01}); second != nil {
			return
		}
		second = ctx.Read(0x29, buf)
	})

	if !errors.Is(first, core.ErrNack) {
		t.Errorf("Expected ErrNack from absent device, got %v", first)
	}
	if second != nil {
		t.Fatalf("Expected later transfers to succeed, got %v", second)
	}
	if buf[0] != 0x77 {
		t.Errorf("Expected 0x77, got 0x%02x", buf[0])
	}
}

func TestI2CTasksShareBus(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()
	mem := sim.NewMemory(nil)
	board.Bus.AddTarget(0x29, mem)

	errs := make([]error, 3)
	for i := range errs {
		board.Spawn("writer", func() {
			ctx := board.I2C.Start()
			defer ctx.Close()
			errs[i] = ctx.Write(0x29, []byte{byte(0x10 * i), byte(i), byte(i)})
		})
	}
	if err := board.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, err := range errs {
		if err != nil {
			t.Errorf("Writer %d failed: %v", i, err)
		}
	}
	writes := mem.Writes()
	if len(writes) != 3 {
		t.Fatalf("Expected 3 write transactions, got %d", len(writes))
	}
	for _, w := range writes {
		if len(w) != 3 || w[1] != w[2] {
			t.Errorf("Expected whole transactions, got %v", w)
		}
	}
	for i := 0; i < 3; i++ {
		if mem.Register(byte(0x10*i)) != byte(i) {
			t.Errorf("Expected register 0x%02x = %d", 0x10*i, i)
		}
	}
}

func TestI2CSpuriousInterruptAborts(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()

	expectAbort(t, "spurious interrupt", board.I2C.HandleInterrupt)
}

func TestI2CContextCloseTwice(t *testing.T) {
	board := sim.NewBoard()
	defer board.Close()

	runI2C(t, board, func(ctx *core.I2CContext) {
		ctx.Close()
	})

	// the bus must be free again
	runI2C(t, board, func(ctx *core.I2CContext) {})
}

func TestAddressWire(t *testing.T) {
	if core.AddressFromWire(0x52) != 0x29 {
		t.Errorf("Expected 0x52 to normalize to 0x29")
	}
	if core.AddressFromWire(0x53) != 0x29 {
		t.Errorf("Expected read address 0x53 to normalize to 0x29")
	}
}
