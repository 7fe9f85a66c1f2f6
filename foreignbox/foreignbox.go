// Package foreignbox provides a move-semantics pointer for storage that is
// owned by something outside the Go allocator's reach: a stack slab handed
// out by the scheduler, a register bank backing a device, a node embedded in
// another struct that a caller still owns. It is the Go rendition of
// pw_kernel's foreign_box: the pointer is never freed by ForeignBox itself,
// only moved between owners, and letting one go out of scope without an
// explicit Consume is a bug.
//
// Go has no Drop, so there is no way to make an un-consumed ForeignBox fail
// at the exact moment of scope exit. The best available approximation is a
// runtime.SetFinalizer callback, which panics (crashing the process, since
// finalizers run on their own goroutine) if the box is garbage collected
// while still unconsumed. This only fires once the GC decides to collect the
// box, which is not deterministic — tests that want to check "fails if not
// consumed" synchronously should use AssertConsumed instead of relying on
// GC timing.
package foreignbox

import "runtime"

// ForeignBox holds a pointer to externally-owned storage of type T along
// with a flag tracking whether ownership has been handed off via Consume.
type ForeignBox[T any] struct {
	ptr      *T
	consumed bool
}

// New creates a ForeignBox wrapping ptr. The caller guarantees ptr stays
// valid for as long as the box (or whatever it's moved into) is alive.
// New panics if ptr is nil.
//
// New returns *ForeignBox[T], not ForeignBox[T]: the finalizer is attached
// to the object returned here, and a copy made by returning a struct by
// value would orphan that object the moment the original binding went out
// of scope, collecting it (and firing the finalizer) regardless of whether
// the caller's copy was ever consumed. Callers move the box around by
// passing this same pointer, never by copying the value.
func New[T any](ptr *T) *ForeignBox[T] {
	if ptr == nil {
		panic("foreignbox: nil pointer")
	}
	b := &ForeignBox[T]{ptr: ptr}
	runtime.SetFinalizer(b, func(b *ForeignBox[T]) {
		if !b.consumed {
			panic("foreignbox: ForeignBox dropped before being consumed")
		}
	})
	return b
}

// Consume hands back the raw pointer and marks the box as consumed,
// releasing it from the leak check. Calling Consume twice panics: a
// ForeignBox represents a single transfer of ownership.
func (b *ForeignBox[T]) Consume() *T {
	if b.consumed {
		panic("foreignbox: ForeignBox consumed twice")
	}
	b.consumed = true
	runtime.SetFinalizer(b, nil)
	return b.ptr
}

// AsRef returns the wrapped pointer for read access without consuming the
// box.
func (b *ForeignBox[T]) AsRef() *T {
	return b.ptr
}

// AsMut returns the wrapped pointer for mutation without consuming the box.
// In Go this is identical to AsRef; it's kept as a distinct method to mirror
// the ownership-discipline split the original type draws between shared and
// exclusive access.
func (b *ForeignBox[T]) AsMut() *T {
	return b.ptr
}

// AssertConsumed deterministically checks that b has been consumed,
// independent of GC timing. Intended for test code exercising the
// "not consuming a ForeignBox is a bug" invariant without waiting on a
// finalizer.
func AssertConsumed[T any](b *ForeignBox[T]) bool {
	return b.consumed
}
