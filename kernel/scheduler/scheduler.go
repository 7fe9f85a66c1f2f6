// Package scheduler implements the architecture-neutral preemptible
// scheduler: a run queue of ready threads, a current thread, wait queues
// for blocked threads, and a timer wheel for wait_until deadlines. It is
// generic over an Arch implementation so the same scheduling algorithm runs
// unmodified on any port that supplies one (arch/simhost in this tree).
package scheduler

import (
	"fmt"

	"pwkernel/foreignbox"
	"pwkernel/kassert"
	"pwkernel/kernel"
	"pwkernel/klist"
	"pwkernel/ktime"
)

// Arch is the subset of an architecture port the scheduler drives directly:
// a tick clock and the ability to switch the processor from one thread's
// saved context to another's. Everything else (building that saved
// context, lowering a MemoryConfig onto hardware registers) happens in the
// arch package and its port implementations before a thread ever reaches
// the scheduler.
type Arch interface {
	ktime.Clock
	// ContextSwitch suspends from and resumes to. It returns once some
	// later ContextSwitch resumes from again.
	ContextSwitch(from, to *kernel.Thread)
}

// PreemptDisableGuard marks one nested region during which the scheduler
// must not preempt the calling thread. Callers must Release every guard
// they obtain, in LIFO order; Go has no destructor to enforce this, so the
// convention is `guard := s.DisablePreemption(); defer guard.Release()` at
// every call site that doesn't need to release it before some later point
// in the same function.
type PreemptDisableGuard[A Arch] struct {
	sched    *SchedulerState[A]
	released bool
}

// Release ends the preempt-disabled region. Releasing a guard twice, or
// when the scheduler's count is already zero, is a kernel bug and panics.
func (g *PreemptDisableGuard[A]) Release() {
	kassert.Assert(!g.released, "preempt disable guard released twice")
	kassert.Assert(g.sched.preemptDisableCount != 0, "scheduler preempt disable count underflowed")
	g.sched.preemptDisableCount--
	g.released = true
}

// SchedulerState holds everything the scheduler needs: the kernel process,
// the thread currently running, every other process registered with the
// kernel, the run queue of ready threads, and the timer wheel backing
// wait_until deadlines.
type SchedulerState[A Arch] struct {
	arch          A
	kernelProcess *kernel.Process
	currentThread *foreignbox.ForeignBox[kernel.Thread]
	processList   klist.UnsafeList[kernel.Process, kernel.ProcessAdapter]
	runQueue      klist.ForeignList[kernel.Thread, kernel.ThreadActiveAdapter]

	preemptDisableCount uint32
	timers              []*timerEntry[A]
}

// NewSchedulerState constructs a scheduler bound to arch and registers
// kernelProcess (the process the kernel's own thread belongs to) as the
// first process on its list.
func NewSchedulerState[A Arch](a A, kernelProcess *kernel.Process) *SchedulerState[A] {
	s := &SchedulerState[A]{arch: a, kernelProcess: kernelProcess}
	s.AddProcess(kernelProcess)
	return s
}

// DisablePreemption begins a preempt-disabled region and returns the guard
// that ends it.
func (s *SchedulerState[A]) DisablePreemption() PreemptDisableGuard[A] {
	s.preemptDisableCount++
	kassert.Assert(s.preemptDisableCount != 0, "scheduler preempt disable count overflowed")
	return PreemptDisableGuard[A]{sched: s}
}

// AddProcess registers p with the scheduler, after which threads may be
// initialized against it.
func (s *SchedulerState[A]) AddProcess(p *kernel.Process) {
	p.MarkRegistered()
	s.processList.PushBackUnchecked(p)
}

// Bootstrap installs kernelThread, which must already be Initialize'd
// against the kernel process, as the scheduler's first current thread.
// There is no previously running thread to context-switch away from, so
// Bootstrap does not call into Arch.ContextSwitch.
func (s *SchedulerState[A]) Bootstrap(kernelThread *kernel.Thread) {
	kassert.Assert(kernelThread.State() == kernel.StateInitial, "bootstrap thread must be freshly initialized, was %s", kernelThread.State())
	kernelThread.SetState(kernel.StateRunning)
	s.currentThread = foreignbox.New(kernelThread)
}

// Now returns the scheduler's current time.
func (s *SchedulerState[A]) Now() ktime.Instant[A] {
	return ktime.FromTicks[A](s.arch.Now())
}

// CurrentThreadName returns the name of the thread currently running.
func (s *SchedulerState[A]) CurrentThreadName() string {
	return s.currentThread.AsRef().Name()
}

// CurrentThread returns the thread currently running, without transferring
// ownership.
func (s *SchedulerState[A]) CurrentThread() *kernel.Thread {
	return s.currentThread.AsRef()
}

// StartThread admits thread (already Initialize'd) to the run queue and
// switches to it immediately, ahead of every other ready thread. The
// thread that had been running is preempted to the front of the queue as
// well, so it resumes right after the new thread rather than going to the
// back like a voluntary yield would.
func (s *SchedulerState[A]) StartThread(thread *foreignbox.ForeignBox[kernel.Thread]) {
	guard := s.DisablePreemption()

	prev := s.currentThread.Consume()
	prev.SetState(kernel.StateReady)
	s.runQueue.PushFront(foreignbox.New(prev))

	t := thread.Consume()
	kassert.Assert(t.State() == kernel.StateInitial, "StartThread requires a freshly initialized thread, got %s", t.State())
	t.SetState(kernel.StateReady)
	s.runQueue.PushFront(foreignbox.New(t))

	guard.Release()
	if s.preemptDisableCount == 0 {
		s.reschedule(prev)
	}
}

// YieldTimeslice moves the current thread to the back of the run queue and
// switches to whatever is at the front. If the calling thread is holding
// other preempt-disable guards, the actual switch is deferred until the
// outermost one is released.
func (s *SchedulerState[A]) YieldTimeslice() {
	guard := s.DisablePreemption()

	prev := s.currentThread.Consume()
	prev.SetState(kernel.StateReady)
	s.runQueue.PushBack(foreignbox.New(prev))

	guard.Release()
	if s.preemptDisableCount == 0 {
		s.reschedule(prev)
	}
}

// ExitThread marks the current thread Stopped and switches away from it
// permanently. It never returns to its caller; on a real port, Arch never
// resumes the exited thread's saved context again, so control never comes
// back here.
func (s *SchedulerState[A]) ExitThread() {
	guard := s.DisablePreemption()
	prev := s.currentThread.Consume()
	prev.SetState(kernel.StateStopped)
	guard.Release()

	s.reschedule(prev)
	kassert.Panic("exit_thread: a stopped thread resumed")
}

// Tick processes expired timers and, if any fired, gives the current
// thread's remaining timeslice to the run queue's front — matching the
// round-robin policy YieldTimeslice uses, since this kernel assigns no
// per-thread priority.
func (s *SchedulerState[A]) Tick() {
	guard := s.DisablePreemption()
	woke := s.processExpiredTimers(s.arch.Now())
	guard.Release()

	if woke && s.preemptDisableCount == 0 {
		s.tryReschedule()
	}
}

func (s *SchedulerState[A]) tryReschedule() {
	if s.runQueue.IsEmpty() {
		return
	}
	guard := s.DisablePreemption()
	prev := s.currentThread.Consume()
	prev.SetState(kernel.StateReady)
	s.runQueue.PushBack(foreignbox.New(prev))
	guard.Release()

	s.reschedule(prev)
}

// reschedule pops the run queue's head, makes it Running, and context
// switches to it unless it is the very thread prev already names (the run
// queue held only the thread that was just preempted). prev may be nil only
// during Bootstrap, which never calls reschedule.
func (s *SchedulerState[A]) reschedule(prev *kernel.Thread) {
	kassert.Assert(s.preemptDisableCount == 0, "reschedule called with preemption disabled")

	nextBox, ok := s.runQueue.PopHead()
	kassert.Assert(ok, "reschedule called with an empty run queue")
	next := nextBox.Consume()
	kassert.Assert(next.State() == kernel.StateReady, "thread %q popped from run queue was %s, not Ready", next.Name(), next.State())

	next.SetState(kernel.StateRunning)
	s.currentThread = foreignbox.New(next)

	if prev == next {
		return
	}
	s.arch.ContextSwitch(prev, next)
}

// SleepUntil blocks the current thread until deadline elapses. It is
// implemented as a WaitUntil against a WaitQueue local to the call that no
// other thread can reach, so the only way out is the deadline.
func (s *SchedulerState[A]) SleepUntil(deadline ktime.Instant[A]) {
	var wq WaitQueue[A]
	wq.WaitUntil(s, deadline)
}

// DumpAllThreads returns a human-readable summary of every process and
// thread registered with the scheduler, for diagnostics.
func (s *SchedulerState[A]) DumpAllThreads() string {
	out := ""
	_ = s.processList.ForEach(func(p *kernel.Process) error {
		out += p.Dump() + "\n"
		return nil
	})
	return out
}

func (s *SchedulerState[A]) String() string {
	return fmt.Sprintf("scheduler(current=%s, preempt_disable=%d)", s.CurrentThreadName(), s.preemptDisableCount)
}
