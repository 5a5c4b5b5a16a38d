package delayqueue

// itemHeap is a min-heap of DelayedItems ordered by Less.
// Implements container/heap.Interface.
type itemHeap[T any] []DelayedItem[T]

func (h itemHeap[T]) Len() int           { return len(h) }
func (h itemHeap[T]) Less(i, j int) bool { return h[i].Less(h[j]) }
func (h itemHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[T]) Push(x any) {
	*h = append(*h, x.(DelayedItem[T]))
}

// Pop removes the last element; it clears the vacated slot so the payload
// can be collected.
func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = DelayedItem[T]{}
	*h = old[:n-1]
	return it
}
