package kernel

import (
	"fmt"

	"pwkernel/arch"
	"pwkernel/kassert"
	"pwkernel/klist"
)

// Thread is a unit of scheduling: a stack, an architecture-specific saved
// context, and the state machine tracking where it sits in the scheduler.
// Threads are never copied once initialized — the scheduler and wait queues
// always hold a pointer to the same Thread for its whole lifetime, moved
// between lists via foreignbox.ForeignBox so ownership stays singular.
type Thread struct {
	processLink klist.Link // into Process.threads
	activeLink  klist.Link // into exactly one of: run queue, a WaitQueue, nothing

	process             *Process
	state               State
	preemptDisableCount uint32
	stack               arch.Stack
	archState           arch.ThreadState
	name                string

	// wakeDeadlineTicks and hasDeadline carry the scheduler's wait_until
	// bookkeeping. They live on Thread rather than in the scheduler's own
	// table because a thread can only ever be waiting on one deadline at a
	// time, matching the original's single optional field on its Thread.
	wakeDeadlineTicks uint64
	hasDeadline       bool
}

// ThreadProcessAdapter locates the Link a Thread uses when linked into its
// owning Process's thread list.
type ThreadProcessAdapter struct{}

// LinkOf returns t's process-list link.
func (ThreadProcessAdapter) LinkOf(t *Thread) *klist.Link { return &t.processLink }

// ThreadActiveAdapter locates the Link a Thread uses when linked into the
// scheduler's run queue or a WaitQueue. A thread is never on both at once.
type ThreadActiveAdapter struct{}

// LinkOf returns t's active link.
func (ThreadActiveAdapter) LinkOf(t *Thread) *klist.Link { return &t.activeLink }

// NewThread allocates a Thread in StateNew. Initialize (or
// InitializeKernelThread) must run before it is handed to the scheduler.
func NewThread(name string, archState arch.ThreadState) *Thread {
	return &Thread{
		processLink: klist.NewLink(),
		activeLink:  klist.NewLink(),
		name:        name,
		archState:   archState,
		state:       StateNew,
	}
}

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

// State returns the thread's current scheduling state.
func (t *Thread) State() State { return t.state }

// SetState overwrites the thread's scheduling state. Exported for the
// scheduler package, which owns every state transition after
// initialization.
func (t *Thread) SetState(s State) { t.state = s }

// Process returns the process the thread belongs to.
func (t *Thread) Process() *Process { return t.process }

// Stack returns the thread's stack bounds.
func (t *Thread) Stack() arch.Stack { return t.stack }

// ArchState returns the thread's architecture-specific saved context.
func (t *Thread) ArchState() arch.ThreadState { return t.archState }

// PreemptDisableCount returns the thread's own nested preempt-disable
// depth, separate from the scheduler-wide count: a thread that is
// context-switched out while holding preempt-disable guards carries that
// obligation with it until it runs again.
func (t *Thread) PreemptDisableCount() uint32 { return t.preemptDisableCount }

// IncPreemptDisableCount and DecPreemptDisableCount adjust the thread's own
// nested count. PreemptDisableGuard does not call them: it adjusts only the
// scheduler-wide count.
func (t *Thread) IncPreemptDisableCount() {
	t.preemptDisableCount++
	kassert.Assert(t.preemptDisableCount != 0, "preempt disable count overflowed on thread %q", t.name)
}

func (t *Thread) DecPreemptDisableCount() {
	kassert.Assert(t.preemptDisableCount != 0, "preempt disable count underflowed on thread %q", t.name)
	t.preemptDisableCount--
}

// WakeDeadline returns the tick at which a sleeping/waiting thread should be
// woken, and whether one is set at all.
func (t *Thread) WakeDeadline() (uint64, bool) { return t.wakeDeadlineTicks, t.hasDeadline }

// SetWakeDeadline records the tick at which the scheduler's timer wheel
// should wake this thread if nothing else wakes it first.
func (t *Thread) SetWakeDeadline(ticks uint64) {
	t.wakeDeadlineTicks = ticks
	t.hasDeadline = true
}

// ClearWakeDeadline removes any pending deadline, e.g. once the thread has
// been woken by either the timer or an explicit wake.
func (t *Thread) ClearWakeDeadline() { t.hasDeadline = false }

// Initialize assigns the thread to process, gives it stack, and moves it
// from StateNew to StateInitial. process must already be registered with
// the scheduler (kernel/scheduler.SchedulerState.AddProcess), mirroring the
// original's assertion that a thread can't be created against a process
// the scheduler doesn't know about yet.
func (t *Thread) Initialize(process *Process, stack arch.Stack) {
	kassert.Assert(process.IsRegistered(), "process %q must be registered before initializing thread %q", process.name, t.name)
	kassert.Assert(t.state == StateNew, "thread %q already initialized", t.name)

	t.process = process
	t.stack = stack
	t.state = StateInitial
	process.AddThread(t)
}

// InitializeKernelThread initializes the distinguished kernel thread: its
// process is the kernel process (unrestricted memory config), and its
// entry point is the scheduler's own bootstrap closure rather than a
// syscall-gated user entry point.
func InitializeKernelThread(t *Thread, kernelProcess *Process, stack arch.Stack) {
	t.Initialize(kernelProcess, stack)
}

// Dump returns a short human-readable summary for diagnostics.
func (t *Thread) Dump() string {
	procName := "<none>"
	if t.process != nil {
		procName = t.process.name
	}
	return fmt.Sprintf("thread %q state=%s process=%q preempt_disable=%d", t.name, t.state, procName, t.preemptDisableCount)
}
