package core

import "time"

// Time is a point on the extended timebase: the number of observed
// counter wraps (the epoch) in the high half and the raw 16-bit counter in
// the low half. Times order by their raw value.
type Time uint32

// TimeDelta is a relative offset in timer ticks. The timer is clocked from
// the 1 kHz low-power oscillator with the prescaler bypassed, so one tick
// is one millisecond.
type TimeDelta uint32

// counterPeriod is the span of the hardware counter.
const counterPeriod TimeDelta = 0x10000

// Milliseconds converts milliseconds to ticks.
func Milliseconds(ms uint32) TimeDelta {
	return TimeDelta(ms)
}

// Duration converts d to a time.Duration.
func (d TimeDelta) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// Add returns t+d.
func (t Time) Add(d TimeDelta) Time {
	return t + Time(d)
}

// Sub returns t-u.
func (t Time) Sub(u Time) TimeDelta {
	return TimeDelta(t - u)
}

// After reports whether t is later than u.
func (t Time) After(u Time) bool {
	return t > u
}

// Epoch returns the number of counter wraps folded into t.
func (t Time) Epoch() uint16 {
	return uint16(t >> 16)
}

// Count returns the raw counter part of t.
func (t Time) Count() uint16 {
	return uint16(t)
}

// timeout is a pending Delay: the condition variable its task waits on and
// the deadline that fires it.
type timeout struct {
	cond     CondVar
	deadline Time
	node     Node[*timeout]
}

func timeoutLess(a, b *timeout) bool {
	return a.deadline < b.deadline
}

type timeoutState struct {
	queue       Queue[*timeout] // ascending by deadline
	lazyCurTime Time
	refCount    int
}

// Timebase extends the 16-bit counter of a LowPowerTimer into a monotonic
// 32-bit Time and runs a deadline-ordered queue of timeouts off its single
// compare register.
//
// The time is extended by noticing that the counter went backwards since
// the last reading, so the timebase must be read at least once per counter
// period. Every timeout insertion and every compare interrupt reads it, and
// whenever nothing nearer is due the compare register is parked half a
// period ahead purely to force a reading.
type Timebase struct {
	regs  LowPowerTimer
	state Shared[timeoutState]
}

// NewTimebase creates a timebase on regs. Call Setup before use and route
// the timer's compare interrupt to HandleInterrupt.
func NewTimebase(regs LowPowerTimer) *Timebase {
	return &Timebase{regs: regs}
}

// Setup starts the hardware timer.
func (tb *Timebase) Setup() {
	tb.regs.Start()
}

// updateCurTime folds the current counter reading into the tracked time.
func (tb *Timebase) updateCurTime(cs CriticalSection) Time {
	st := tb.state.Borrow(cs).Ptr()
	last := st.lazyCurTime
	epoch := last.Epoch()
	now := tb.regs.Counter()
	if now < last.Count() {
		epoch++
		RecordTrace(cs, EvtEpochWrap, 0, uint32(epoch), 0)
	}
	st.lazyCurTime = Time(uint32(epoch)<<16 | uint32(now))
	traceClock = uint32(st.lazyCurTime)
	return st.lazyCurTime
}

// Delay blocks the current task for d ticks. Waiters with equal deadlines
// wake in the order they called Delay.
func (tb *Timebase) Delay(d TimeDelta) {
	t := &timeout{}
	t.node.Value = t
	var e waitEntry
	var slot wakeSlot

	cs := Enter()
	t.deadline = tb.updateCurTime(cs).Add(d)
	t.cond.prepareWait(cs, &e, &slot)
	st := tb.state.Borrow(cs).Ptr()
	st.queue.Insert(cs, &t.node, timeoutLess)
	RecordTrace(cs, EvtTimeoutArm, 0, uint32(t.deadline), uint32(d))
	if st.queue.Peek(cs) == &t.node {
		tb.service(cs)
	}
	e.task.park(cs)
}

// service fires every due timeout and reprograms the compare register for
// the next one. A deadline that came due while reprogramming fires here
// rather than a full counter period later.
func (tb *Timebase) service(cs CriticalSection) {
	st := tb.state.Borrow(cs).Ptr()
	for {
		now := tb.updateCurTime(cs)
		for n := st.queue.Peek(cs); n != nil && !n.Value.deadline.After(now); n = st.queue.Peek(cs) {
			st.queue.Pop(cs)
			RecordTrace(cs, EvtTimeoutFire, 0, uint32(n.Value.deadline), 0)
			n.Value.cond.SignalLocked(cs)
		}
		tb.reschedule(cs)

		head := st.queue.Peek(cs)
		if head == nil || head.Value.deadline.After(tb.updateCurTime(cs)) {
			return
		}
	}
}

// reschedule programs the compare register for the head of the queue.
func (tb *Timebase) reschedule(cs CriticalSection) {
	st := tb.state.Borrow(cs).Ptr()
	head := st.queue.Peek(cs)
	var compare uint16
	wrap := uint32(0)
	switch {
	case head == nil && st.refCount == 0:
		// nobody needs the time; leave the compare alone
		return
	case head == nil, head.Value.deadline.Sub(st.lazyCurTime) >= counterPeriod:
		compare = st.lazyCurTime.Add(counterPeriod / 2).Count()
		wrap = 1
	default:
		compare = head.Value.deadline.Count()
	}
	tb.regs.SetCompare(compare)
	RecordTrace(cs, EvtCompare, 0, uint32(compare), wrap)
}

// HandleInterrupt is the compare-match interrupt handler.
func (tb *Timebase) HandleInterrupt() {
	cs := Enter()
	defer cs.Exit()
	tb.regs.AckCompare()
	tb.service(cs)
}

// Pending returns the number of queued timeouts.
func (tb *Timebase) Pending(cs CriticalSection) int {
	return tb.state.Borrow(cs).Ptr().queue.Len(cs)
}

// TimebaseRef keeps the timebase extending time while no timeout is
// pending. Release is the only way to drop it.
type TimebaseRef struct {
	tb       *Timebase
	released bool
}

// Acquire takes a reference on the timebase.
func (tb *Timebase) Acquire() *TimebaseRef {
	cs := Enter()
	st := tb.state.Borrow(cs).Ptr()
	st.refCount++
	if st.refCount == 1 {
		tb.service(cs)
	}
	cs.Exit()
	return &TimebaseRef{tb: tb}
}

// Release drops the reference. Releasing twice is a no-op.
func (r *TimebaseRef) Release() {
	if r.released {
		return
	}
	r.released = true
	cs := Enter()
	r.tb.state.Borrow(cs).Ptr().refCount--
	cs.Exit()
}

// CurrentTime returns the up-to-date time. ref must be a live reference
// on tb.
func (tb *Timebase) CurrentTime(ref *TimebaseRef) Time {
	if ref == nil || ref.released || ref.tb != tb {
		Abort("timebase: current time without a live reference")
	}
	cs := Enter()
	now := tb.updateCurTime(cs)
	cs.Exit()
	return now
}
