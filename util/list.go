package util

//*******************************************
// list
//*******************************************

// Growable slice wrapper.
type List[T any] []T

func NewList[T any](cap int) List[T] {
	return make([]T, 0, cap)
}

func (self *List[T]) Add(value T) {
	*self = append(*self, value)
}

func (self *List[T]) Clear() {
	*self = (*self)[:0]
}

func (self List[T]) Length() int {
	return len(self)
}

func (self List[T]) Get(index int) T {
	return self[index]
}

func (self *List[T]) Set(index int, value T) {
	(*self)[index] = value
}

func Contains[T comparable](list List[T], value T) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
