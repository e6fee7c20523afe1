package ch

import (
	"fmt"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// contraction hierarchy
//*******************************************

// Shortcut is one directed arc of a contraction hierarchy. Original arcs
// carry their input arc id in Source and -1 children; shortcuts carry the
// two arc ids they bypass and -1 in Source.
type Shortcut struct {
	From       int32
	To         int32
	Weight     int32
	ChildA     int32
	ChildB     int32
	Source     int32
	Searchable int32
}

// Hierarchy is a weighted contraction hierarchy ready for queries. Arcs
// whose Searchable flag is unset are kept for path unpacking only and are
// excluded from the search graphs. Immutable once built, safe for
// concurrent readers.
type Hierarchy struct {
	node_count int32
	ranks      Array[int32] // node -> rank, a permutation
	arcs       Array[Shortcut]

	fwd_first Array[int32] // node -> searchable upward arcs (rank(To) > rank(From))
	fwd_arcs  Array[int32]
	bwd_first Array[int32] // node -> searchable arcs entering it from above
	bwd_arcs  Array[int32]
}

func NewHierarchy(node_count int32, ranks Array[int32], arcs Array[Shortcut]) (*Hierarchy, error) {
	if ranks.Length() != int(node_count) {
		return nil, fmt.Errorf("ranks array has length %v, want %v", ranks.Length(), node_count)
	}
	seen := NewArray[bool](int(node_count))
	for i := 0; i < ranks.Length(); i++ {
		if ranks[i] < 0 || ranks[i] >= node_count {
			return nil, fmt.Errorf("node %v: rank %v out of range [0, %v)", i, ranks[i], node_count)
		}
		if seen[ranks[i]] {
			return nil, fmt.Errorf("ranks are not a permutation: rank %v appears twice", ranks[i])
		}
		seen[ranks[i]] = true
	}
	for i := 0; i < arcs.Length(); i++ {
		if arcs[i].From < 0 || arcs[i].From >= node_count || arcs[i].To < 0 || arcs[i].To >= node_count {
			return nil, fmt.Errorf("arc %v: endpoints (%v, %v) out of range", i, arcs[i].From, arcs[i].To)
		}
	}
	self := &Hierarchy{
		node_count: node_count,
		ranks:      ranks,
		arcs:       arcs,
	}
	self._BuildSearchGraphs()
	return self, nil
}

func (self *Hierarchy) NodeCount() int32 {
	return self.node_count
}

func (self *Hierarchy) ArcCount() int32 {
	return int32(self.arcs.Length())
}

func (self *Hierarchy) GetRank(node int32) int32 {
	return self.ranks[node]
}

func (self *Hierarchy) GetArc(arc int32) Shortcut {
	return self.arcs[arc]
}

// Builds the upward search CSRs over the searchable arcs. The forward
// graph holds arcs towards higher ranks indexed by tail, the backward
// graph arcs from higher ranks indexed by head.
func (self *Hierarchy) _BuildSearchGraphs() {
	node_count := int(self.node_count)
	fwd_first := NewArray[int32](node_count + 1)
	bwd_first := NewArray[int32](node_count + 1)
	for i := 0; i < self.arcs.Length(); i++ {
		arc := self.arcs[i]
		if arc.Searchable == 0 {
			continue
		}
		if self.ranks[arc.From] < self.ranks[arc.To] {
			fwd_first[arc.From+1] += 1
		} else {
			bwd_first[arc.To+1] += 1
		}
	}
	for i := 0; i < node_count; i++ {
		fwd_first[i+1] += fwd_first[i]
		bwd_first[i+1] += bwd_first[i]
	}
	fwd_arcs := NewArray[int32](int(fwd_first[node_count]))
	bwd_arcs := NewArray[int32](int(bwd_first[node_count]))
	fwd_offsets := NewArray[int32](node_count)
	bwd_offsets := NewArray[int32](node_count)
	for i := 0; i < self.arcs.Length(); i++ {
		arc := self.arcs[i]
		if arc.Searchable == 0 {
			continue
		}
		if self.ranks[arc.From] < self.ranks[arc.To] {
			fwd_arcs[fwd_first[arc.From]+fwd_offsets[arc.From]] = int32(i)
			fwd_offsets[arc.From] += 1
		} else {
			bwd_arcs[bwd_first[arc.To]+bwd_offsets[arc.To]] = int32(i)
			bwd_offsets[arc.To] += 1
		}
	}
	self.fwd_first = fwd_first
	self.fwd_arcs = fwd_arcs
	self.bwd_first = bwd_first
	self.bwd_arcs = bwd_arcs
}

//*******************************************
// persistence
//*******************************************

const _FILE_MAGIC int32 = 0x43484731 // "CHG1"

// Writes the hierarchy to a file, little-endian.
func (self *Hierarchy) Save(file string) error {
	writer := NewBufferWriter()
	Write(writer, _FILE_MAGIC)
	Write(writer, self.node_count)
	WriteArray(writer, self.ranks)
	WriteArray(writer, self.arcs)
	return WriteBufferToFile(writer, file)
}

// Reads a hierarchy written by Save and rebuilds the search graphs.
func LoadHierarchy(file string) (*Hierarchy, error) {
	reader, err := ReadBufferFromFile(file)
	if err != nil {
		return nil, err
	}
	magic := Read[int32](reader)
	if magic != _FILE_MAGIC {
		return nil, fmt.Errorf("not a contraction hierarchy file: %v", file)
	}
	node_count := Read[int32](reader)
	ranks := ReadArray[int32](reader)
	arcs := ReadArray[Shortcut](reader)
	return NewHierarchy(node_count, ranks, arcs)
}
