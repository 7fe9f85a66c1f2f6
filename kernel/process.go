package kernel

import (
	"fmt"

	"pwkernel/klist"
	"pwkernel/kmemory"
)

// Process groups threads under a shared MemoryConfig. The kernel's own
// process, holding the kernel thread, is unrestricted
// (kmemory.KernelThreadMemoryConfig); every other process carries whatever
// MemoryConfig its arch port lowered from its MemoryRegion list.
type Process struct {
	link         klist.Link
	name         string
	memoryConfig kmemory.MemoryConfig
	threads      klist.UnsafeList[Thread, ThreadProcessAdapter]
	registered   bool
}

// ProcessAdapter locates the Link a Process uses when linked into the
// scheduler's process list.
type ProcessAdapter struct{}

// LinkOf returns p's list link.
func (ProcessAdapter) LinkOf(p *Process) *klist.Link { return &p.link }

// NewProcess constructs a Process with the given name and memory
// configuration. It must be registered with the scheduler (via
// SchedulerState.AddProcess) before any of its threads are initialized.
func NewProcess(name string, memoryConfig kmemory.MemoryConfig) *Process {
	return &Process{
		link:         klist.NewLink(),
		name:         name,
		memoryConfig: memoryConfig,
	}
}

// Name returns the process's name.
func (p *Process) Name() string { return p.name }

// MemoryConfig returns the process's memory configuration.
func (p *Process) MemoryConfig() kmemory.MemoryConfig { return p.memoryConfig }

// MarkRegistered records that the scheduler has added this process to its
// process list. Thread.Initialize refuses to run against an unregistered
// process.
func (p *Process) MarkRegistered() { p.registered = true }

// IsRegistered reports whether MarkRegistered has been called.
func (p *Process) IsRegistered() bool { return p.registered }

// AddThread links t into the process's thread list.
func (p *Process) AddThread(t *Thread) {
	p.threads.PushBackUnchecked(t)
}

// ForEachThread calls callback on every thread belonging to the process,
// head to tail.
func (p *Process) ForEachThread(callback func(*Thread) error) error {
	return p.threads.ForEach(callback)
}

// Dump returns a short human-readable summary of the process and its
// threads, for diagnostics.
func (p *Process) Dump() string {
	s := fmt.Sprintf("process %q", p.name)
	_ = p.threads.ForEach(func(t *Thread) error {
		s += "\n  " + t.Dump()
		return nil
	})
	return s
}
