package scheduler

import (
	"pwkernel/foreignbox"
	"pwkernel/kassert"
	"pwkernel/kernel"
	"pwkernel/klist"
	"pwkernel/ktime"
)

// WakeResult reports why a blocked thread resumed.
type WakeResult int

const (
	// WakeResultNone means WakeOne found nothing to wake.
	WakeResultNone WakeResult = iota
	// WakeResultWoken means the thread was woken by an explicit
	// WakeOne/WakeAll before its deadline, if any, elapsed.
	WakeResultWoken
	// WakeResultTimeout means WaitUntil's deadline elapsed before any
	// explicit wake arrived.
	WakeResultTimeout
)

func (r WakeResult) String() string {
	switch r {
	case WakeResultNone:
		return "None"
	case WakeResultWoken:
		return "Woken"
	case WakeResultTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// WaitQueue blocks threads until another thread (or, for WaitUntil, a
// deadline) wakes them. It holds no lock of its own: callers share a
// WaitQueue the same way they share a SchedulerState, by only touching it
// from kernel code that already excludes concurrent access (a single
// logical CPU, or an outer lock around both).
type WaitQueue[A Arch] struct {
	queue klist.ForeignList[kernel.Thread, kernel.ThreadActiveAdapter]
}

// IsEmpty reports whether any thread is currently blocked on the queue.
func (wq *WaitQueue[A]) IsEmpty() bool {
	return wq.queue.IsEmpty()
}

// Wait blocks the current thread until a WakeOne or WakeAll call on this
// queue resumes it. It never times out.
func (wq *WaitQueue[A]) Wait(s *SchedulerState[A]) {
	guard := s.DisablePreemption()

	prev := s.currentThread.Consume()
	prev.SetState(kernel.StateWaiting)
	wq.queue.PushBack(foreignbox.New(prev))

	guard.Release()
	s.reschedule(prev)
}

// WaitUntil blocks the current thread until either a wake call resumes it
// or deadline elapses, whichever comes first. The scheduler's timer
// callback and an explicit wake race over the same thread; both remove it
// from wq.queue, so only one can win, and WaitUntil tells them apart by
// whether the thread's wake deadline flag is still set once it resumes:
// an explicit wake clears it, a timeout leaves it for WaitUntil itself to
// clear after reading it.
func (wq *WaitQueue[A]) WaitUntil(s *SchedulerState[A], deadline ktime.Instant[A]) WakeResult {
	guard := s.DisablePreemption()

	prev := s.currentThread.Consume()
	prev.SetState(kernel.StateWaiting)
	prev.SetWakeDeadline(deadline.Ticks())
	wq.queue.PushBack(foreignbox.New(prev))
	s.scheduleTimer(prev, deadline.Ticks(), wq)

	guard.Release()
	s.reschedule(prev)

	if _, stillArmed := prev.WakeDeadline(); stillArmed {
		prev.ClearWakeDeadline()
		return WakeResultTimeout
	}
	return WakeResultWoken
}

// WakeOne wakes the longest-waiting thread on the queue, if any, moving it
// to the run queue as Ready. It reports WakeResultNone if the queue was
// empty.
func (wq *WaitQueue[A]) WakeOne(s *SchedulerState[A]) WakeResult {
	box, ok := wq.queue.PopHead()
	if !ok {
		return WakeResultNone
	}
	t := box.Consume()
	s.cancelTimer(t)
	t.ClearWakeDeadline()
	kassert.Assert(t.State() == kernel.StateWaiting, "woken thread %q was %s, not Waiting", t.Name(), t.State())
	t.SetState(kernel.StateReady)
	s.runQueue.PushBack(foreignbox.New(t))
	return WakeResultWoken
}

// WakeAll wakes every thread currently on the queue and returns how many
// were woken.
func (wq *WaitQueue[A]) WakeAll(s *SchedulerState[A]) int {
	count := 0
	for wq.WakeOne(s) == WakeResultWoken {
		count++
	}
	return count
}
