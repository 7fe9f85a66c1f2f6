package archriscv

import (
	"errors"
	"testing"

	"pwkernel/arch"
	kerrors "pwkernel/errors"
	"pwkernel/kmemory"
)

func TestInitializeKernelFrameSetsStackPointerBelowTop(t *testing.T) {
	stack := arch.NewStack(0x8000_0000, 0x8000_1000)
	entry := arch.EntryPoint(func(uintptr) {})

	ts := InitializeKernelFrame("kernel", stack, kmemory.KernelThreadMemoryConfig{}, entry, [3]uintptr{1, 2, 3})

	if ts.StackPointer != stack.End-trapFrameSize {
		t.Errorf("StackPointer = %#x, want %#x", ts.StackPointer, stack.End-trapFrameSize)
	}
	if ts.mode != modeMachine {
		t.Error("kernel frame should be M-mode")
	}
	gotEntry, gotArgs := ts.Entry()
	if gotEntry == nil {
		t.Error("Entry() should return the supplied entry point")
	}
	if gotArgs != [3]uintptr{1, 2, 3} {
		t.Errorf("Entry() args = %v, want [1 2 3]", gotArgs)
	}
}

func TestInitializeUserFrameSucceedsWhenStackIsAccessible(t *testing.T) {
	c := NewPmpConfig(8)
	userStack := kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x1000_0000, 0x1000_1000)
	if err := c.Lower([]kmemory.MemoryRegion{userStack}); err != nil {
		t.Fatalf("Lower() returned error: %v", err)
	}

	kernelStack := arch.NewStack(0x9000_0000, 0x9000_1000)
	initialSP := uintptr(0x1000_1000)

	ts, err := InitializeUserFrame("worker", kernelStack, c, initialSP, 0x1000_0100, [3]uintptr{7, 0, 0})
	if err != nil {
		t.Fatalf("InitializeUserFrame() returned error: %v", err)
	}
	if ts.StackPointer != initialSP-trapFrameSize {
		t.Errorf("StackPointer = %#x, want %#x", ts.StackPointer, initialSP-trapFrameSize)
	}
	if ts.mode != modeUser {
		t.Error("user frame should be U-mode")
	}
	if ts.KernelStackPointer != kernelStack.End {
		t.Errorf("KernelStackPointer = %#x, want %#x", ts.KernelStackPointer, kernelStack.End)
	}
}

func TestInitializeUserFrameRejectsInaccessibleStack(t *testing.T) {
	c := NewPmpConfig(8) // no regions lowered: grants nothing
	kernelStack := arch.NewStack(0x9000_0000, 0x9000_1000)

	_, err := InitializeUserFrame("worker", kernelStack, c, 0x1000_1000, 0x1000_0100, [3]uintptr{})
	if !errors.Is(err, kerrors.ErrStackNotAccessible) {
		t.Fatalf("InitializeUserFrame() = %v, want ErrStackNotAccessible", err)
	}
}
