package core

// TaskStatus is the scheduling status of a task.
type TaskStatus uint8

const (
	Runnable TaskStatus = iota
	Blocked
)

func (s TaskStatus) String() string {
	if s == Blocked {
		return "blocked"
	}
	return "runnable"
}

// Task is a cooperatively scheduled foreground context. Each task runs on
// its own goroutine, but only the task holding the scheduler's run token
// executes; everything else is parked.
type Task struct {
	name   string
	sched  *Scheduler
	status TaskStatus // guarded by the critical section
	run    Node[*Task]
	resume chan struct{}
}

// Name returns the name given to Spawn.
func (t *Task) Name() string {
	return t.name
}

// Status returns the task's scheduling status.
func (t *Task) Status(cs CriticalSection) TaskStatus {
	cs.check()
	return t.status
}

// block marks t Blocked. The caller queues t on whatever will wake it
// within the same critical section, then calls park.
func (t *Task) block(cs CriticalSection) {
	cs.check()
	t.status = Blocked
}

// park ends cs and gives the run token back to the scheduler. It returns
// once the scheduler resumes t, which only happens after unblock.
func (t *Task) park(cs CriticalSection) {
	cs.Exit()
	t.sched.yield <- false
	<-t.resume
}

// unblock marks t Runnable and queues it to run. Safe from interrupt
// handlers. A task that is not Blocked is left alone.
func (t *Task) unblock(cs CriticalSection) {
	cs.check()
	if t.status != Blocked {
		return
	}
	t.status = Runnable
	t.sched.state.Borrow(cs).Ptr().runq.Push(cs, &t.run)
	t.sched.wake()
}

type schedState struct {
	runq    Queue[*Task]
	live    int
	stopped bool
}

// Scheduler runs tasks one at a time in FIFO order of becoming runnable.
// Interrupt handlers make tasks runnable; tasks give up the CPU only by
// blocking or calling Yield.
//
// CurrentTask is process wide, so only one Scheduler may be running at a
// time. Run aborts if another is still running.
type Scheduler struct {
	state Shared[schedState]
	yield chan bool // true when the yielding task has returned
	kick  chan struct{}
}

// current is the task holding the run token, nil while the scheduler itself runs.
var current *Task

// running is the scheduler inside Run. Guarded by the critical section.
var running *Scheduler

// CurrentTask returns the running task, or nil outside any task.
func CurrentTask() *Task {
	return current
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		yield: make(chan bool),
		kick:  make(chan struct{}, 1),
	}
}

// Spawn creates a runnable task that will execute fn once Run resumes it.
func (s *Scheduler) Spawn(name string, fn func()) *Task {
	t := &Task{
		name:   name,
		sched:  s,
		resume: make(chan struct{}),
	}
	t.run.Value = t

	cs := Enter()
	st := s.state.Borrow(cs).Ptr()
	st.live++
	st.runq.Push(cs, &t.run)
	cs.Exit()

	go func() {
		<-t.resume
		fn()
		s.yield <- true
	}()
	return t
}

// Run schedules tasks until every spawned task has returned or Stop is
// called. When nothing is runnable it idles until an interrupt makes a
// task runnable.
func (s *Scheduler) Run() {
	cs := Enter()
	if running != nil {
		cs.Exit()
		Abort("scheduler: another scheduler is running")
	}
	running = s
	cs.Exit()
	defer func() {
		cs := Enter()
		running = nil
		cs.Exit()
	}()

	for {
		cs := Enter()
		st := s.state.Borrow(cs).Ptr()
		if st.live == 0 || st.stopped {
			cs.Exit()
			return
		}
		n := st.runq.Pop(cs)
		if n == nil {
			s.idle(cs)
			continue
		}
		cs.Exit()

		t := n.Value
		current = t
		t.resume <- struct{}{}
		exited := <-s.yield
		current = nil

		if exited {
			cs = Enter()
			s.state.Borrow(cs).Ptr().live--
			cs.Exit()
		}
	}
}

// Stop makes Run return at its next scheduling point, releasing it from
// idle if needed. Tasks that have not returned stay parked for good and
// the scheduler cannot be run again.
func (s *Scheduler) Stop() {
	cs := Enter()
	s.state.Borrow(cs).Ptr().stopped = true
	cs.Exit()
	s.wake()
}

// Yield requeues the running task behind every other runnable task.
func Yield() {
	t := CurrentTask()
	if t == nil {
		Abort("yield outside a task")
	}
	cs := Enter()
	t.sched.state.Borrow(cs).Ptr().runq.Push(cs, &t.run)
	t.park(cs)
}
