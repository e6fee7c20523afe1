package util

import (
	"golang.org/x/exp/constraints"
)

//*******************************************
// priority queue
//*******************************************

// Binary min-heap keyed by priority.
type PriorityQueue[T any, P constraints.Ordered] struct {
	items []_PQEntry[T, P]
}

type _PQEntry[T any, P constraints.Ordered] struct {
	item T
	prio P
}

func NewPriorityQueue[T any, P constraints.Ordered](cap int) PriorityQueue[T, P] {
	return PriorityQueue[T, P]{
		items: make([]_PQEntry[T, P], 0, cap),
	}
}

func (self *PriorityQueue[T, P]) Len() int {
	return len(self.items)
}

func (self *PriorityQueue[T, P]) Clear() {
	self.items = self.items[:0]
}

func (self *PriorityQueue[T, P]) Enqueue(item T, prio P) {
	self.items = append(self.items, _PQEntry[T, P]{item: item, prio: prio})
	index := len(self.items) - 1
	entry := self.items[index]
	for index > 0 {
		parent := (index - 1) / 2
		if entry.prio >= self.items[parent].prio {
			break
		}
		self.items[index] = self.items[parent]
		index = parent
	}
	self.items[index] = entry
}

// Top entry without removing it, only valid while Len() > 0.
func (self *PriorityQueue[T, P]) Peek() (T, P) {
	return self.items[0].item, self.items[0].prio
}

func (self *PriorityQueue[T, P]) Dequeue() (T, bool) {
	if len(self.items) == 0 {
		var t T
		return t, false
	}
	top := self.items[0]
	last := len(self.items) - 1
	self.items[0] = self.items[last]
	self.items = self.items[:last]
	if last > 0 {
		self._SiftDown(0)
	}
	return top.item, true
}

func (self *PriorityQueue[T, P]) _SiftDown(index int) {
	count := len(self.items)
	entry := self.items[index]
	for {
		child := 2*index + 1
		if child >= count {
			break
		}
		if right := child + 1; right < count && self.items[right].prio < self.items[child].prio {
			child = right
		}
		if entry.prio <= self.items[child].prio {
			break
		}
		self.items[index] = self.items[child]
		index = child
	}
	self.items[index] = entry
}
