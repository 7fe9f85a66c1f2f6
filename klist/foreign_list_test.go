package klist

import (
	"testing"

	"pwkernel/foreignbox"
)

func validateForeignList(t *testing.T, list *ForeignList[testMember, testAdapter], expected []uint32) {
	t.Helper()
	index := 0
	err := list.ForEach(func(m *testMember) error {
		if index >= len(expected) || m.value != expected[index] {
			t.Fatalf("element %d = %d, want %v at that position", index, m.value, expected)
		}
		index++
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach returned error: %v", err)
	}
	if index != len(expected) {
		t.Fatalf("list had %d elements, want %d", index, len(expected))
	}
}

func drainForeignList(list *ForeignList[testMember, testAdapter]) {
	for {
		box, ok := list.PopHead()
		if !ok {
			return
		}
		box.Consume()
	}
}

func TestForeignListNewIsEmpty(t *testing.T) {
	var list ForeignList[testMember, testAdapter]
	if !list.IsEmpty() {
		t.Error("new ForeignList should be empty")
	}
}

func TestForeignListPushFrontAddsInCorrectOrder(t *testing.T) {
	e1 := &testMember{value: 1, link: NewLink()}
	e2 := &testMember{value: 2, link: NewLink()}

	var list ForeignList[testMember, testAdapter]
	list.PushFront(foreignbox.New(e2))
	list.PushFront(foreignbox.New(e1))

	if list.IsEmpty() {
		t.Error("list should not be empty")
	}
	validateForeignList(t, &list, []uint32{1, 2})
	drainForeignList(&list)
}

func TestForeignListPushBackAddsInCorrectOrder(t *testing.T) {
	e1 := &testMember{value: 1, link: NewLink()}
	e2 := &testMember{value: 2, link: NewLink()}

	var list ForeignList[testMember, testAdapter]
	list.PushBack(foreignbox.New(e2))
	list.PushBack(foreignbox.New(e1))

	if list.IsEmpty() {
		t.Error("list should not be empty")
	}
	validateForeignList(t, &list, []uint32{2, 1})
	drainForeignList(&list)
}

func threeElementForeignList() (*ForeignList[testMember, testAdapter], *testMember, *testMember, *testMember) {
	e1 := &testMember{value: 1, link: NewLink()}
	e2 := &testMember{value: 2, link: NewLink()}
	e3 := &testMember{value: 3, link: NewLink()}

	list := &ForeignList[testMember, testAdapter]{}
	list.PushFront(foreignbox.New(e3))
	list.PushFront(foreignbox.New(e2))
	list.PushFront(foreignbox.New(e1))
	return list, e1, e2, e3
}

func TestForeignListPopHeadRemovesCorrectly(t *testing.T) {
	list, _, _, _ := threeElementForeignList()

	box, ok := list.PopHead()
	if !ok || box.AsRef().value != 1 {
		t.Fatal("PopHead should return the head element (value 1)")
	}
	if !box.AsRef().link.IsUnlinked() {
		t.Error("popped element's link should be unlinked")
	}
	box.Consume()

	box, ok = list.PopHead()
	if !ok || box.AsRef().value != 2 {
		t.Fatal("PopHead should return value 2")
	}
	box.Consume()

	box, ok = list.PopHead()
	if !ok || box.AsRef().value != 3 {
		t.Fatal("PopHead should return value 3")
	}
	box.Consume()

	validateForeignList(t, list, nil)
}

func TestForeignListRemoveElementCanRemoveHead(t *testing.T) {
	list, e1, _, _ := threeElementForeignList()

	box, ok := list.RemoveElement(e1)
	if !ok || box.Consume() != e1 {
		t.Fatal("RemoveElement(e1) should return e1's box")
	}

	validateForeignList(t, list, []uint32{2, 3})
	drainForeignList(list)
}

func TestForeignListRemoveElementCanRemoveMiddle(t *testing.T) {
	list, _, e2, _ := threeElementForeignList()

	box, ok := list.RemoveElement(e2)
	if !ok || box.Consume() != e2 {
		t.Fatal("RemoveElement(e2) should return e2's box")
	}

	validateForeignList(t, list, []uint32{1, 3})
	drainForeignList(list)
}

func TestForeignListRemoveElementCanRemoveTail(t *testing.T) {
	list, _, _, e3 := threeElementForeignList()

	box, ok := list.RemoveElement(e3)
	if !ok || box.Consume() != e3 {
		t.Fatal("RemoveElement(e3) should return e3's box")
	}

	validateForeignList(t, list, []uint32{1, 2})
	drainForeignList(list)
}
