package util

//*******************************************
// flags
//*******************************************

// Per-node scratch values with O(1) reset using version stamps.
type Flags[T any] struct {
	entries  []_FlagEntry[T]
	_default T
	version  int32
}

type _FlagEntry[T any] struct {
	value   T
	version int32
}

func NewFlags[T any](size int32, _default T) Flags[T] {
	return Flags[T]{
		entries:  make([]_FlagEntry[T], size),
		_default: _default,
		version:  1,
	}
}

// Returns a mutable reference to the flag of id, lazily reinitializing
// entries that are stale since the last Reset.
func (self *Flags[T]) Get(id int32) *T {
	entry := &self.entries[id]
	if entry.version != self.version {
		entry.value = self._default
		entry.version = self.version
	}
	return &entry.value
}

func (self *Flags[T]) Reset() {
	self.version += 1
}
