package simhost

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// PreemptionTimer drives onTick at a fixed interval using SIGALRM, standing
// in for the periodic SysTick/mtimer interrupt a real port configures to
// call SchedulerState.Tick. Go cannot interrupt an arbitrary running
// goroutine mid-instruction the way a hardware interrupt preempts whatever
// the core was executing, so this does not forcibly context-switch away
// from whatever thread simhost currently believes is running; it only
// guarantees Tick is called regularly enough to expire SleepUntil/WaitUntil
// deadlines even when nothing voluntarily yields. Stop disarms the timer
// and stops signal delivery.
type PreemptionTimer struct {
	sigCh chan os.Signal
	done  chan struct{}
}

// StartPreemptionTimer arms an ITIMER_REAL interval timer that delivers
// SIGALRM every interval and calls onTick from a dedicated goroutine for
// each delivery, until Stop is called.
func StartPreemptionTimer(interval time.Duration, onTick func()) *PreemptionTimer {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGALRM)

	it := unix.Itimerval{
		Value:    unix.NsecToTimeval(interval.Nanoseconds()),
		Interval: unix.NsecToTimeval(interval.Nanoseconds()),
	}
	if err := unix.Setitimer(unix.ITIMER_REAL, &it, nil); err != nil {
		panic("simhost: setitimer: " + err.Error())
	}

	p := &PreemptionTimer{sigCh: sigCh, done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-sigCh:
				onTick()
			case <-p.done:
				return
			}
		}
	}()
	return p
}

// Stop disarms the interval timer and stops SIGALRM delivery to sigCh.
func (p *PreemptionTimer) Stop() {
	zero := unix.Itimerval{}
	_ = unix.Setitimer(unix.ITIMER_REAL, &zero, nil)
	signal.Stop(p.sigCh)
	close(p.done)
}
