package scheduler

import (
	"pwkernel/foreignbox"
	"pwkernel/kernel"
)

// timerEntry is one pending wait_until deadline. The scheduler keeps these
// in a slice sorted by ascending deadline rather than an intrusive list:
// there is at most one entry per waiting thread, the set is small, and a
// sorted-insert slice avoids giving Thread a second link field just for
// this one relationship.
type timerEntry[A Arch] struct {
	deadline uint64
	thread   *kernel.Thread
	queue    *WaitQueue[A]
}

// scheduleTimer registers thread to be woken out of queue if nothing else
// wakes it before deadline.
func (s *SchedulerState[A]) scheduleTimer(thread *kernel.Thread, deadline uint64, queue *WaitQueue[A]) {
	entry := &timerEntry[A]{deadline: deadline, thread: thread, queue: queue}

	i := 0
	for ; i < len(s.timers); i++ {
		if s.timers[i].deadline > deadline {
			break
		}
	}
	s.timers = append(s.timers, nil)
	copy(s.timers[i+1:], s.timers[i:])
	s.timers[i] = entry
}

// cancelTimer removes any pending timer for thread, e.g. because it was
// woken explicitly before its deadline. It is a no-op if thread has none.
func (s *SchedulerState[A]) cancelTimer(thread *kernel.Thread) {
	for i, e := range s.timers {
		if e.thread == thread {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// processExpiredTimers wakes every thread whose deadline is at or before
// now, moving each from its wait queue to the run queue. The thread's
// WakeDeadline flag is left set, so WaitQueue.WaitUntil can tell this
// happened instead of an explicit wake. It reports whether anything woke.
func (s *SchedulerState[A]) processExpiredTimers(now uint64) bool {
	woke := false
	for len(s.timers) > 0 && s.timers[0].deadline <= now {
		entry := s.timers[0]
		s.timers = s.timers[1:]

		box, ok := entry.queue.queue.RemoveElement(entry.thread)
		if !ok {
			// Already removed by an explicit wake that raced the timer in
			// the same tick; nothing left to do.
			continue
		}
		t := box.Consume()
		t.SetState(kernel.StateReady)
		s.runQueue.PushBack(foreignbox.New(t))
		woke = true
	}
	return woke
}
