package util

//*******************************************
// array
//*******************************************

// Fixed-size slice wrapper used throughout the module.
type Array[T any] []T

func NewArray[T any](size int) Array[T] {
	return make([]T, size)
}

func (self Array[T]) Length() int {
	return len(self)
}

func (self Array[T]) Get(index int) T {
	return self[index]
}

func (self Array[T]) Set(index int, value T) {
	self[index] = value
}

// Returns a new array with values taken from positions given by mapping
// (mapping[i] is the new position of entry i).
func Reorder[T any](arr Array[T], mapping Array[int32]) Array[T] {
	new_arr := NewArray[T](arr.Length())
	for i := 0; i < arr.Length(); i++ {
		new_arr[mapping[i]] = arr[i]
	}
	return new_arr
}
