package klist

// UnsafeList is an intrusive doubly-linked list of *T, where T's Link field
// is located by A. It provides no synchronization of its own: callers that
// share a list across goroutines must hold their own lock around every
// operation, the same obligation the Rust type places on its caller via its
// "exclusive access" safety comments. The "unsafe" name is kept for the same
// reason the original keeps it: holding that obligation is the caller's job,
// not the type's.
type UnsafeList[T any, A Adapter[T]] struct {
	head, tail *Link
}

func (l *UnsafeList[T, A]) linkOf(element *T) *Link {
	var a A
	return a.LinkOf(element)
}

func elementOf[T any](link *Link) *T {
	e, _ := link.owner.(*T)
	return e
}

// IsEmpty reports whether the list has no elements.
func (l *UnsafeList[T, A]) IsEmpty() bool {
	return l.head == nil
}

// IsElementLinked reports whether element is currently linked into some
// list using this adapter (not necessarily this list).
func (l *UnsafeList[T, A]) IsElementLinked(element *T) bool {
	return l.linkOf(element).IsLinked()
}

// PushFrontUnchecked inserts element at the head of the list. The caller
// must ensure element is not already linked.
func (l *UnsafeList[T, A]) PushFrontUnchecked(element *T) {
	link := l.linkOf(element)
	link.owner = element
	link.next = l.head
	link.prev = nil

	if l.head == nil {
		l.tail = link
	} else {
		l.head.prev = link
	}
	l.head = link
}

// PushBackUnchecked inserts element at the tail of the list. The caller
// must ensure element is not already linked.
func (l *UnsafeList[T, A]) PushBackUnchecked(element *T) {
	link := l.linkOf(element)
	link.owner = element
	link.next = nil
	link.prev = l.tail

	if l.tail == nil {
		l.head = link
	} else {
		l.tail.next = link
	}
	l.tail = link
}

// insertBefore links elementA immediately before elementB, which must
// already be linked into this list.
func (l *UnsafeList[T, A]) insertBefore(linkA, linkB *Link) {
	prev := linkB.prev

	linkA.next = linkB
	linkA.prev = prev
	linkB.prev = linkA

	if prev == nil {
		l.head = linkA
	} else {
		prev.next = linkA
	}
}

// UnlinkElementUnchecked removes element from the list. The caller must
// ensure element is currently linked into this list.
func (l *UnsafeList[T, A]) UnlinkElementUnchecked(element *T) {
	link := l.linkOf(element)
	prev, next := link.prev, link.next

	if prev == nil {
		l.head = next
	} else {
		prev.next = next
	}

	if next == nil {
		l.tail = prev
	} else {
		next.prev = prev
	}

	link.setUnlinked()
}

// UnlinkElement removes element from the list if it is linked, returning
// true if it was.
func (l *UnsafeList[T, A]) UnlinkElement(element *T) bool {
	if !l.linkOf(element).IsLinked() {
		return false
	}
	l.UnlinkElementUnchecked(element)
	return true
}

// ForEach calls callback on every element from head to tail, stopping and
// returning the first error callback returns.
func (l *UnsafeList[T, A]) ForEach(callback func(*T) error) error {
	for cur := l.head; cur != nil; cur = cur.next {
		if err := callback(elementOf[T](cur)); err != nil {
			return err
		}
	}
	return nil
}

// Filter calls callback on every element. Any element for which callback
// returns false is unlinked from the list (without otherwise touching the
// element); it is safe for callback to push the element onto another list
// of the same kind.
func (l *UnsafeList[T, A]) Filter(callback func(*T) bool) {
	cur := l.head
	for cur != nil {
		element := elementOf[T](cur)
		next := cur.next

		if !callback(element) {
			l.UnlinkElementUnchecked(element)
		}
		cur = next
	}
}

// PopHead removes and returns the first element in the list, or nil if the
// list is empty.
func (l *UnsafeList[T, A]) PopHead() *T {
	if l.head == nil {
		return nil
	}
	element := elementOf[T](l.head)
	l.UnlinkElementUnchecked(element)
	return element
}

// SortedInsertUnchecked inserts element at the position such that the list
// remains ordered by lessOrEqual: it is inserted immediately before the
// first existing element for which lessOrEqual(existing, element) does not
// hold (the first element strictly greater than it), or at the tail if no
// such element exists. Existing elements that compare
// equal to element are not displaced, so elements with equal keys form a
// FIFO group in insertion order. The caller must ensure element is not
// already linked.
func SortedInsertUnchecked[T any, A Adapter[T]](l *UnsafeList[T, A], element *T, lessOrEqual func(a, b *T) bool) {
	linkA := l.linkOf(element)
	linkA.owner = element

	for cur := l.head; cur != nil; cur = cur.next {
		curElement := elementOf[T](cur)
		if !lessOrEqual(curElement, element) {
			l.insertBefore(linkA, cur)
			return
		}
	}

	l.PushBackUnchecked(element)
}
