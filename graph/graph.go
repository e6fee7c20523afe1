package graph

import (
	"fmt"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// enums
//*******************************************

type Direction byte

const (
	BACKWARD Direction = 0
	FORWARD  Direction = 1
)

//*******************************************
// topology
//*******************************************

// Topology is the raw directed input graph. Arc i runs from tail[i] to
// head[i]; the arc id is the position in those arrays. Multi-arcs and
// self-loops are permitted. Immutable once created.
type Topology struct {
	node_count int32
	tail       Array[int32]
	head       Array[int32]
}

func NewTopology(node_count int32, tail Array[int32], head Array[int32]) (*Topology, error) {
	if tail.Length() != head.Length() {
		return nil, fmt.Errorf("tail and head arrays differ in length: %v != %v", tail.Length(), head.Length())
	}
	if node_count < 0 {
		return nil, fmt.Errorf("invalid node count: %v", node_count)
	}
	for i := 0; i < tail.Length(); i++ {
		if tail[i] < 0 || tail[i] >= node_count {
			return nil, fmt.Errorf("arc %v: tail %v out of range [0, %v)", i, tail[i], node_count)
		}
		if head[i] < 0 || head[i] >= node_count {
			return nil, fmt.Errorf("arc %v: head %v out of range [0, %v)", i, head[i], node_count)
		}
	}
	return &Topology{
		node_count: node_count,
		tail:       tail,
		head:       head,
	}, nil
}

func (self *Topology) NodeCount() int32 {
	return self.node_count
}
func (self *Topology) ArcCount() int32 {
	return int32(self.tail.Length())
}
func (self *Topology) Tail(arc int32) int32 {
	return self.tail[arc]
}
func (self *Topology) Head(arc int32) int32 {
	return self.head[arc]
}

//*******************************************
// adjacency
//*******************************************

// Adjacency is a CSR index over a Topology for both arc directions.
type Adjacency struct {
	topology  *Topology
	fwd_first Array[int32]
	fwd_arcs  Array[int32]
	bwd_first Array[int32]
	bwd_arcs  Array[int32]
}

func BuildAdjacency(topology *Topology) *Adjacency {
	node_count := int(topology.NodeCount())
	arc_count := int(topology.ArcCount())

	fwd_first := NewArray[int32](node_count + 1)
	bwd_first := NewArray[int32](node_count + 1)
	for i := 0; i < arc_count; i++ {
		fwd_first[topology.Tail(int32(i))+1] += 1
		bwd_first[topology.Head(int32(i))+1] += 1
	}
	for i := 0; i < node_count; i++ {
		fwd_first[i+1] += fwd_first[i]
		bwd_first[i+1] += bwd_first[i]
	}
	fwd_arcs := NewArray[int32](arc_count)
	bwd_arcs := NewArray[int32](arc_count)
	fwd_offset := NewArray[int32](node_count)
	bwd_offset := NewArray[int32](node_count)
	for i := 0; i < arc_count; i++ {
		tail := topology.Tail(int32(i))
		head := topology.Head(int32(i))
		fwd_arcs[fwd_first[tail]+fwd_offset[tail]] = int32(i)
		fwd_offset[tail] += 1
		bwd_arcs[bwd_first[head]+bwd_offset[head]] = int32(i)
		bwd_offset[head] += 1
	}

	return &Adjacency{
		topology:  topology,
		fwd_first: fwd_first,
		fwd_arcs:  fwd_arcs,
		bwd_first: bwd_first,
		bwd_arcs:  bwd_arcs,
	}
}

// Calls callback with (arc_id, other_node) for every arc leaving (FORWARD)
// or entering (BACKWARD) the given node.
func (self *Adjacency) ForAdjacentArcs(node int32, direction Direction, callback func(int32, int32)) {
	if direction == FORWARD {
		for i := self.fwd_first[node]; i < self.fwd_first[node+1]; i++ {
			arc := self.fwd_arcs[i]
			callback(arc, self.topology.Head(arc))
		}
	} else {
		for i := self.bwd_first[node]; i < self.bwd_first[node+1]; i++ {
			arc := self.bwd_arcs[i]
			callback(arc, self.topology.Tail(arc))
		}
	}
}

func (self *Adjacency) GetNodeDegree(node int32, direction Direction) int16 {
	if direction == FORWARD {
		return int16(self.fwd_first[node+1] - self.fwd_first[node])
	}
	return int16(self.bwd_first[node+1] - self.bwd_first[node])
}
