package enemies

const (
	trackedList = iota
	activeList
	numLists
)

const nilIndex int32 = -1

// listLink is one intrusive doubly-linked list membership. Indices are entity ids.
type listLink struct {
	prev, next int32
	linked     bool
}

// link pushes e to the head of list.
func (t *Table) link(e *Enemy, list int) {
	if e.links[list].linked {
		return
	}
	idx := int32(e.entity)
	head := t.heads[list]
	e.links[list] = listLink{prev: nilIndex, next: head, linked: true}
	if head != nilIndex {
		t.slots[head].links[list].prev = idx
	}
	t.heads[list] = idx
}

func (t *Table) unlink(e *Enemy, list int) {
	l := e.links[list]
	if !l.linked {
		return
	}
	if l.prev != nilIndex {
		t.slots[l.prev].links[list].next = l.next
	} else {
		t.heads[list] = l.next
	}
	if l.next != nilIndex {
		t.slots[l.next].links[list].prev = l.prev
	}
	e.links[list] = listLink{prev: nilIndex, next: nilIndex}
}

func (t *Table) first(list int) *Enemy {
	if t.heads[list] == nilIndex {
		return nil
	}
	return &t.slots[t.heads[list]]
}

func (t *Table) next(e *Enemy, list int) *Enemy {
	n := e.links[list].next
	if n == nilIndex {
		return nil
	}
	return &t.slots[n]
}
