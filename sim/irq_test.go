package sim

import (
	"sync/atomic"
	"testing"
)

func TestIRQRunsHandlerPerPend(t *testing.T) {
	var calls atomic.Int32
	irq := NewIRQ(func() { calls.Add(1) })
	defer irq.Close()

	for i := 0; i < 5; i++ {
		irq.Pend()
	}
	irq.Sync()

	if calls.Load() != 5 {
		t.Errorf("Expected 5 handler runs, got %d", calls.Load())
	}
	if irq.Count() != 5 {
		t.Errorf("Expected count 5, got %d", irq.Count())
	}
}

func TestIRQPendFromHandler(t *testing.T) {
	var calls atomic.Int32
	var irq *IRQ
	irq = NewIRQ(func() {
		if calls.Add(1) < 3 {
			irq.Pend()
		}
	})
	defer irq.Close()

	irq.Pend()
	irq.Sync()

	if calls.Load() != 3 {
		t.Errorf("Expected chained handler to run 3 times, got %d", calls.Load())
	}
}

func TestIRQClose(t *testing.T) {
	irq := NewIRQ(func() {})
	irq.Close()
	irq.Pend()
	irq.Sync() // must not block

	if irq.Count() != 0 {
		t.Errorf("Expected no handler runs after close, got %d", irq.Count())
	}
}
