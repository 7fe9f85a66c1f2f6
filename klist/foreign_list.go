package klist

import "pwkernel/foreignbox"

// ForeignList is an UnsafeList that takes ownership of the elements pushed
// onto it via foreignbox.ForeignBox, handing that ownership back out on
// removal. Where UnsafeList only requires exclusive access to the list and
// trusts the caller to manage element lifetime separately, ForeignList
// enforces the single-owner discipline at the type level: you cannot push
// an element you don't hold a ForeignBox for, and you get one back when you
// remove it.
type ForeignList[T any, A Adapter[T]] struct {
	list UnsafeList[T, A]
}

// IsEmpty reports whether the list has no elements.
func (l *ForeignList[T, A]) IsEmpty() bool {
	return l.list.IsEmpty()
}

// PushFront inserts box's element at the head of the list, consuming box.
func (l *ForeignList[T, A]) PushFront(box *foreignbox.ForeignBox[T]) {
	l.list.PushFrontUnchecked(box.Consume())
}

// PushBack inserts box's element at the tail of the list, consuming box.
func (l *ForeignList[T, A]) PushBack(box *foreignbox.ForeignBox[T]) {
	l.list.PushBackUnchecked(box.Consume())
}

// PopHead removes and returns the first element in the list as a
// ForeignBox, or false if the list is empty.
func (l *ForeignList[T, A]) PopHead() (*foreignbox.ForeignBox[T], bool) {
	element := l.list.PopHead()
	if element == nil {
		return nil, false
	}
	return foreignbox.New(element), true
}

// RemoveElement removes element from the list if present, returning it as a
// ForeignBox.
func (l *ForeignList[T, A]) RemoveElement(element *T) (*foreignbox.ForeignBox[T], bool) {
	if !l.list.UnlinkElement(element) {
		return nil, false
	}
	return foreignbox.New(element), true
}

// ForEach calls callback on every element from head to tail.
func (l *ForeignList[T, A]) ForEach(callback func(*T) error) error {
	return l.list.ForEach(callback)
}
