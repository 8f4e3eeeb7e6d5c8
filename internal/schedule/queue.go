package schedule

// entry is a queued task with its scheduling metadata. It exists only
// inside the heap.
type entry struct {
	task     Task
	priority int
	seq      uint64 // arrival order, breaks priority ties FIFO
}

// entryHeap is a max-heap on priority with FIFO tie-breaking, used with
// container/heap. Higher priority values pop first; among equal priorities
// the earliest arrival wins, so no task is starved by a stream of peers.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
