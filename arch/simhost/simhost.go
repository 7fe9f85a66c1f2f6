// Package simhost runs the kernel's scheduler on the host operating system
// in place of real hardware, for development and testing away from a
// target board. It satisfies scheduler.Arch by using one goroutine per
// kernel thread, each parked on its own channel; a context switch is a
// handshake that parks the caller's goroutine and unparks the target's,
// rather than a register save/restore and exception return. The
// monotonic clock backing the scheduler's tick domain comes from
// golang.org/x/sys/unix's CLOCK_MONOTONIC, the same clock source a real
// preemption timer would be calibrated against.
package simhost

import (
	"sync"

	"golang.org/x/sys/unix"

	"pwkernel/kernel"
)

// Host is the simhost architecture port. The zero value is not usable; use
// New.
type Host struct {
	mu      sync.Mutex
	parked  map[*kernel.Thread]chan struct{}
	running *kernel.Thread
}

// New constructs a Host with no threads registered yet.
func New() *Host {
	return &Host{parked: make(map[*kernel.Thread]chan struct{})}
}

// TicksPerSec reports the monotonic clock's resolution in ticks per second.
// simhost uses nanosecond ticks, so this is always one billion.
func (h *Host) TicksPerSec() uint64 { return 1_000_000_000 }

// Now returns the current CLOCK_MONOTONIC reading in nanoseconds.
func (h *Host) Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic("simhost: clock_gettime(CLOCK_MONOTONIC): " + err.Error())
	}
	return uint64(ts.Sec)*1_000_000_000 + uint64(ts.Nsec)
}

// Spawn registers a goroutine as the execution vehicle for thread, running
// entry once the scheduler first switches to it. Spawn must be called once
// per thread before it is ever passed to a scheduler's StartThread.
func (h *Host) Spawn(thread *kernel.Thread, entry func()) {
	gate := make(chan struct{})
	h.mu.Lock()
	h.parked[thread] = gate
	h.mu.Unlock()

	go func() {
		<-gate
		entry()
	}()
}

// RegisterCurrent records the goroutine calling it as the vehicle for
// thread, without spawning a new one — used for the bootstrap kernel thread,
// whose "entry point" is just the call stack that built the scheduler.
func (h *Host) RegisterCurrent(thread *kernel.Thread) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = thread
}

// ContextSwitch suspends from's goroutine and resumes to's. from may be nil
// only when there is no previously running thread to suspend (the
// scheduler's own bootstrap never calls this). The call returns once some
// later ContextSwitch resumes from again; for the terminal case (from
// exited and will never resume), the caller's goroutine blocks forever,
// which is the Go analogue of a real port's thread never returning to the
// context it switched away from.
func (h *Host) ContextSwitch(from, to *kernel.Thread) {
	h.mu.Lock()
	toGate, ok := h.parked[to]
	h.mu.Unlock()
	if !ok {
		panic("simhost: ContextSwitch to an unspawned thread")
	}

	if from != nil {
		myGate := make(chan struct{})
		h.mu.Lock()
		h.parked[from] = myGate
		h.running = to
		h.mu.Unlock()

		close(toGate)
		<-myGate
		return
	}

	h.mu.Lock()
	h.running = to
	h.mu.Unlock()
	close(toGate)
}

// Running returns the thread simhost believes is currently executing.
func (h *Host) Running() *kernel.Thread {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}
