package util

//*******************************************
// queue
//*******************************************

type Queue[T any] struct {
	items []T
	front int
}

func NewQueue[T any]() Queue[T] {
	return Queue[T]{
		items: make([]T, 0, 16),
	}
}

func (self *Queue[T]) Push(value T) {
	self.items = append(self.items, value)
}

func (self *Queue[T]) Pop() (T, bool) {
	if self.front >= len(self.items) {
		var t T
		return t, false
	}
	value := self.items[self.front]
	self.front += 1
	if self.front == len(self.items) {
		self.items = self.items[:0]
		self.front = 0
	}
	return value, true
}

func (self *Queue[T]) Size() int {
	return len(self.items) - self.front
}
