package archarm

import (
	"fmt"

	"pwkernel/arch"
	kerrors "pwkernel/errors"
	"pwkernel/kmemory"
)

// trapFrameSize is the number of bytes an exception entry reserves on the
// target stack for the basic Cortex-M exception frame (r0-r3, r12, lr, pc,
// xpsr: eight 32-bit words). This kernel never stacks floating-point state
// (Non-goals exclude FP save/restore), so the extended frame is never used.
const trapFrameSize = 8 * 4

// ThreadState is the saved Cortex-M execution context for one thread: the
// stack pointer at the point of the last exception entry, the EXC_RETURN
// value that exception return will consult, and the entry point/arguments
// the first exception return delivers it into. The general-purpose
// register file itself lives on the thread's stack, pushed by exception
// entry the same way a real port's assembly trampoline would; this struct
// only holds what the scheduler's context switch needs to locate it again.
type ThreadState struct {
	StackPointer       uintptr
	KernelStackPointer uintptr
	ExcReturn          ExcReturn
	name               string

	// entry is the kernel-mode trampoline's first function: real Go code
	// linked into this binary, not a separate user image.
	entry arch.EntryPoint
	// entryPC is a user thread's initial program counter, recorded for
	// Dump()/diagnostics; Non-goals exclude executing a separate user-mode
	// image.
	entryPC uintptr
	args    [3]uintptr
}

// InitializeKernelFrame builds the saved context for a trusted kernel-mode
// thread about to start running at entry, with args delivered the way
// r0, r1, r2 would carry them into a real exception return. The kernel
// thread's stack is static memory the kernel always has access to, so
// there is nothing to validate against memoryConfig; the parameter exists
// for signature parity with InitializeUserFrame.
func InitializeKernelFrame(name string, stack arch.Stack, memoryConfig arch.MemoryConfig, entry arch.EntryPoint, args [3]uintptr) *ThreadState {
	_ = memoryConfig
	return &ThreadState{
		StackPointer: stack.End - trapFrameSize,
		ExcReturn:    BuildExcReturn(true),
		name:         name,
		entry:        entry,
		args:         args,
	}
}

// InitializeUserFrame builds the saved context for an unprivileged thread
// whose exception return lands in Thread mode at initialPC with
// sp = initialSP. kernelStack is the per-thread Main-Stack-Pointer region
// an exception taken while this thread is running uses before anything
// touches the (possibly untrusted) process stack pointer. The
// exception-frame area [initialSP-trapFrameSize, initialSP) must be
// read/write accessible under memoryConfig, mirroring the hardware's own
// automatic stacking on exception entry; if it is not,
// ErrStackNotAccessible is returned instead of crafting a frame exception
// return could fault trying to use.
func InitializeUserFrame(name string, kernelStack arch.Stack, memoryConfig arch.MemoryConfig, initialSP, initialPC uintptr, args [3]uintptr) (*ThreadState, error) {
	frame := kmemory.NewMemoryRegion(kmemory.ReadWriteData, initialSP-trapFrameSize, initialSP)
	if !memoryConfig.HasAccess(frame) {
		return nil, kerrors.ErrStackNotAccessible
	}
	return &ThreadState{
		StackPointer:       initialSP - trapFrameSize,
		KernelStackPointer: kernelStack.End,
		ExcReturn:          BuildExcReturn(false),
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
	return fmt.Sprintf("archarm(%s sp=%#x exc_return=%#x entry_pc=%#x args=%v)", t.name, t.StackPointer, uint32(t.ExcReturn), t.entryPC, t.args)
}
