package store

// List is a double-ended sequence of byte strings. PushBack appends in
// place, PushFront rebuilds the backing slice with the new values ahead
// of the existing ones, and PopFront just slides the window.
type List struct {
	items [][]byte
}

func newList() *List {
	return &List{}
}

// PushBack appends values to the tail, in order.
func (l *List) PushBack(values ...[]byte) int {
	l.items = append(l.items, values...)
	return len(l.items)
}

// PushFront prepends values to the head. Per RPUSH/LPUSH semantics, each
// value in values is inserted at the head in turn, so the final order in
// the list is values reversed followed by whatever was already there.
func (l *List) PushFront(values ...[]byte) int {
	newItems := make([][]byte, 0, len(values)+len(l.items))
	for i := len(values) - 1; i >= 0; i-- {
		newItems = append(newItems, values[i])
	}
	newItems = append(newItems, l.items...)
	l.items = newItems
	return len(l.items)
}

// PopFront removes and returns up to n elements from the head. It never
// returns an error; an empty list yields an empty, non-nil slice.
func (l *List) PopFront(n int) [][]byte {
	if n <= 0 || len(l.items) == 0 {
		return [][]byte{}
	}
	if n >= len(l.items) {
		popped := l.items
		l.items = nil
		return popped
	}
	popped := l.items[:n]
	l.items = l.items[n:]
	return popped
}

// Len returns the number of elements currently in the list.
func (l *List) Len() int {
	return len(l.items)
}

// Range returns an inclusive slice of the list using Redis's negative
// index convention: a negative index counts back from the tail, -1
// being the last element. Resolved indices are clamped into [0, len-1];
// if, after clamping, start > end the result is empty.
func (l *List) Range(start, end int) [][]byte {
	n := len(l.items)
	if n == 0 {
		return [][]byte{}
	}
	if start < 0 {
		start = n + start
	}
	if end < 0 {
		end = n + end
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || start >= n || end < 0 {
		return [][]byte{}
	}
	out := make([][]byte, end-start+1)
	copy(out, l.items[start:end+1])
	return out
}
