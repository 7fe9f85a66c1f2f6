package archriscv

import (
	"fmt"

	"pwkernel/arch"
	kerrors "pwkernel/errors"
	"pwkernel/kmemory"
)

// privilegeMode mirrors the two privilege levels this kernel schedules
// between: M-mode for the kernel thread, U-mode for everything else
// (Non-goals exclude S-mode/supervisor support).
type privilegeMode int

const (
	modeUser privilegeMode = iota
	modeMachine
)

// trapFrameSize is the number of bytes a trap entry reserves on the target
// stack for the general-purpose register file (31 integer registers plus
// the saved program counter, 8 bytes apiece on rv64) before mret's restore
// path reads it back. The simulation harness never writes real register
// values there, but the reservation still has to come out of the stack the
// same way it would on real trap entry, since initial_sp/initial_pc are
// validated against exactly that range.
const trapFrameSize = 32 * 8

// ThreadState is the saved RISC-V execution context for one thread: the
// stack pointer at the point of the last trap, the privilege mode mret
// should resume into, and the entry point/arguments the first trap return
// delivers it into. As with archarm, the general-purpose register file
// lives on the thread's stack, pushed by trap entry.
type ThreadState struct {
	StackPointer       uintptr
	KernelStackPointer uintptr
	mode               privilegeMode
	name               string

	// entry is the kernel-mode trampoline's first function. It is a real Go
	// closure rather than a raw address because a kernel thread's entry
	// runs as Go code linked into the same binary, not a separate user
	// image the arch port merely points a PC at.
	entry arch.EntryPoint
	// entryPC is a user thread's initial program counter. Non-goals exclude
	// executing an actual separate user-mode image, so this is recorded for
	// Dump()/diagnostics rather than dispatched to.
	entryPC uintptr
	args    [3]uintptr
}

// InitializeKernelFrame builds the saved context for a trusted kernel-mode
// thread about to start running at entry, with args delivered the way a0,
// a1, a2 would carry them into a real trap return. The kernel thread's
// stack is static memory the kernel always has access to, so there is
// nothing to validate against memoryConfig; the parameter exists for
// signature parity with InitializeUserFrame and so the same MemoryConfig
// plumbing can be passed regardless of which frame is being built.
func InitializeKernelFrame(name string, stack arch.Stack, memoryConfig arch.MemoryConfig, entry arch.EntryPoint, args [3]uintptr) *ThreadState {
	_ = memoryConfig
	return &ThreadState{
		StackPointer: stack.End - trapFrameSize,
		mode:         modeMachine,
		name:         name,
		entry:        entry,
		args:         args,
	}
}

// InitializeUserFrame builds the saved context for an unprivileged thread
// that mret will resume in U-mode at initialPC with sp = initialSP.
// kernelStack is the per-thread kernel-mode stack a trap taken while this
// thread is running switches onto before anything touches the (possibly
// untrusted) user stack. The exception-frame area
// [initialSP-trapFrameSize, initialSP) must be read/write accessible under
// memoryConfig, mirroring the trap entry sequence that will actually push
// registers there; if it is not, ErrStackNotAccessible is returned instead
// of crafting a frame mret could fault trying to use.
func InitializeUserFrame(name string, kernelStack arch.Stack, memoryConfig arch.MemoryConfig, initialSP, initialPC uintptr, args [3]uintptr) (*ThreadState, error) {
	frame := kmemory.NewMemoryRegion(kmemory.ReadWriteData, initialSP-trapFrameSize, initialSP)
	if !memoryConfig.HasAccess(frame) {
		return nil, kerrors.ErrStackNotAccessible
	}
	return &ThreadState{
		StackPointer:       initialSP - trapFrameSize,
		KernelStackPointer: kernelStack.End,
		mode:               modeUser,
		name:               name,
		entryPC:            initialPC,
		args:               args,
	}, nil
}

// Entry returns the kernel-mode trampoline's entry point and initial
// arguments, for the scheduler's bootstrap/start_thread path to invoke on
// this thread's first run. It is nil for user frames.
func (t *ThreadState) Entry() (arch.EntryPoint, [3]uintptr) { return t.entry, t.args }

// Dump returns a short human-readable summary for diagnostics.
func (t *ThreadState) Dump() string {
	modeName := "U"
	if t.mode == modeMachine {
		modeName = "M"
	}
	return fmt.Sprintf("archriscv(%s sp=%#x mode=%s entry_pc=%#x args=%v)", t.name, t.StackPointer, modeName, t.entryPC, t.args)
}
