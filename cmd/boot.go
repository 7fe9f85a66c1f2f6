package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pwkernel/arch"
	"pwkernel/arch/archriscv"
	"pwkernel/arch/simhost"
	"pwkernel/foreignbox"
	"pwkernel/kassert"
	"pwkernel/kernel"
	"pwkernel/kernel/scheduler"
	"pwkernel/kmemory"
	"pwkernel/ktime"
	"pwkernel/logging"
	"pwkernel/spinlock"
	"pwkernel/utils"
)

// demoStackBytes is the size of each simulated thread's stack. simhost
// backs a Stack with a plain Go slice rather than a real address range (see
// arch.AlignedStackAllocation), so this only needs to be large enough to
// leave room below the trap frame InitializeKernelFrame/InitializeUserFrame
// reserve at its top.
const demoStackBytes = 4096

var (
	bootWorkers int
	bootYields  int
	bootSleepMs int64
	bootPreempt bool
	bootConsole bool
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Bring up a simulated kernel image on simhost",
	Long: `boot assembles a kernel process and a declarative set of worker
threads, bootstraps the scheduler, and runs every worker to completion on
simhost. It is the concrete "boot -> early_init -> init -> initialize"
sequence made invokable from the command line.`,
	Args: cobra.NoArgs,
	RunE: runBoot,
}

func init() {
	bootCmd.Flags().IntVar(&bootWorkers, "workers", 3, "number of worker threads to spawn")
	bootCmd.Flags().IntVar(&bootYields, "yields", 4, "number of voluntary timeslice yields per worker before it exits")
	bootCmd.Flags().Int64Var(&bootSleepMs, "sleep-ms", 0, "if nonzero, each worker sleeps this long (in simulated milliseconds) before its first yield")
	bootCmd.Flags().BoolVar(&bootPreempt, "preempt", false, "arm a SIGALRM-driven timer so sleeping workers wake even without a voluntary yield")
	bootCmd.Flags().BoolVar(&bootConsole, "console", false, "hold the terminal in raw mode for the duration of the boot, as a real console driver would")
	rootCmd.AddCommand(bootCmd)
}

func runBoot(cmd *cobra.Command, args []string) error {
	log := logging.Default()

	if bootConsole {
		console, err := utils.NewConsole()
		if err != nil {
			return fmt.Errorf("opening console: %w", err)
		}
		defer console.Restore()
	}

	s, h, done := bootDemoKernel(bootWorkers, bootYields, bootSleepMs)

	// lock serializes access to s between this goroutine and the SIGALRM
	// timer goroutine below; without it, a tick landing mid-reschedule
	// would race the scheduler's own state. The scheduler core assumes a
	// single caller (interrupts-disabled on real hardware), so the lock
	// lives here at the CLI boundary rather than inside SchedulerState.
	lock := spinlock.New(struct{}{})

	var timer *simhost.PreemptionTimer
	if bootPreempt {
		timer = simhost.StartPreemptionTimer(time.Millisecond, func() {
			spinlock.WithNoResult(lock, func(*struct{}) { s.Tick() })
		})
		defer timer.Stop()
	}

	drainDone(func() {
		spinlock.WithNoResult(lock, func(*struct{}) { s.YieldTimeslice() })
	}, done, bootWorkers)

	log.Info("boot complete", "workers", bootWorkers, "current_thread", s.CurrentThreadName())
	_ = h
	fmt.Printf("boot complete: %s\n", s)
	return nil
}

// bootDemoKernel assembles a kernel process, bootstraps the scheduler on
// the calling goroutine as the kernel thread, and spawns workers worker
// threads, each of which optionally sleeps, yields its timeslice yields
// times, then signals done and exits. It returns once every worker has
// been admitted to the run queue; callers drain done to know when they
// have all actually finished running.
func bootDemoKernel(workers, yields int, sleepMs int64) (*scheduler.SchedulerState[*simhost.Host], *simhost.Host, chan struct{}) {
	h := simhost.New()
	proc := kernel.NewProcess("demo", kmemory.KernelThreadMemoryConfig{})
	s := scheduler.NewSchedulerState[*simhost.Host](h, proc)

	kernelStack := arch.AlignedStackAllocation(make([]byte, demoStackBytes), 8)
	kernelEntry := arch.EntryPoint(func(uintptr) {})
	kernelState := archriscv.InitializeKernelFrame("kernel-thread", kernelStack, proc.MemoryConfig(), kernelEntry, [3]uintptr{})

	kernelThread := kernel.NewThread("kernel-thread", kernelState)
	kernelThread.Initialize(proc, kernelStack)
	h.RegisterCurrent(kernelThread)
	s.Bootstrap(kernelThread)

	done := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("worker-%d", i)

		workerStack := arch.AlignedStackAllocation(make([]byte, demoStackBytes), 8)
		workerRegions := archriscv.NewPmpConfig(8)
		if err := workerRegions.Lower([]kmemory.MemoryRegion{
			kmemory.NewMemoryRegion(kmemory.ReadWriteData, workerStack.Start, workerStack.End),
		}); err != nil {
			kassert.Panic("demo worker %q stack region did not lower: %v", name, err)
		}
		workerState, err := archriscv.InitializeUserFrame(name, kernelStack, workerRegions, workerStack.End, workerStack.Start, [3]uintptr{})
		if err != nil {
			kassert.Panic("demo worker %q stack rejected: %v", name, err)
		}

		worker := kernel.NewThread(name, workerState)
		worker.Initialize(proc, workerStack)

		h.Spawn(worker, func() {
			log := logging.WithThread(logging.Default(), name)
			if sleepMs > 0 {
				deadline := s.Now().AddDuration(ktime.FromMillis[*simhost.Host](h, sleepMs))
				s.SleepUntil(deadline)
			}
			for j := 0; j < yields; j++ {
				log.Debug("yielding timeslice", "iteration", j)
				s.YieldTimeslice()
			}
			log.Info("worker exiting")
			done <- struct{}{}
			s.ExitThread()
		})

		s.StartThread(foreignbox.New(worker))
	}

	return s, h, done
}

// drainDone repeatedly calls yield to hand the kernel thread's own
// timeslice back to the run queue until all workers have signaled done.
// Workers that have already exited leave their done signal buffered, so
// each iteration first drains whatever arrived without blocking before
// giving up the timeslice again; once only the kernel thread remains
// runnable, a yield returns immediately via the scheduler's
// sole-runnable-thread fast path, so a sleeping worker still needs the
// preemption timer (or another yield source) to ever wake.
func drainDone(yield func(), done chan struct{}, workers int) {
	remaining := workers
	for remaining > 0 {
		select {
		case <-done:
			remaining--
			continue
		default:
		}
		yield()
	}
}
