package ch

import (
	"fmt"
	"math"

	. "github.com/ttpr0/go-cch/util"
	"golang.org/x/exp/slog"
)

//*******************************************
// contraction
//*******************************************

// Weight value representing an unreachable connection.
const INF_WEIGHT int32 = math.MaxInt32

// Witness searches give up after this many heap pops unless the caller
// picks a limit. More pops mean fewer unnecessary shortcuts but a slower
// build.
const default_max_pop_count = 500

type _Edge struct {
	other  int32
	arc    int32
	weight int32
}

type _FlagDist struct {
	dist    int32
	visited bool
}

// Builds a weighted contraction hierarchy by contracting nodes ascending
// by priority 2*edge_difference + contracted_neighbours, with lazy
// priority updates. log_message receives progress strings and may be nil,
// max_pop_count caps the witness searches (0 picks a default).
func BuildHierarchy(node_count int32, tail Array[int32], head Array[int32], weight Array[int32], log_message func(string), max_pop_count int32) (*Hierarchy, error) {
	if log_message == nil {
		log_message = func(msg string) { slog.Debug(msg) }
	}
	if max_pop_count <= 0 {
		max_pop_count = default_max_pop_count
	}
	if tail.Length() != head.Length() || tail.Length() != weight.Length() {
		return nil, fmt.Errorf("tail, head and weight arrays differ in length: %v, %v, %v", tail.Length(), head.Length(), weight.Length())
	}
	for i := 0; i < tail.Length(); i++ {
		if tail[i] < 0 || tail[i] >= node_count {
			return nil, fmt.Errorf("arc %v: tail %v out of range [0, %v)", i, tail[i], node_count)
		}
		if head[i] < 0 || head[i] >= node_count {
			return nil, fmt.Errorf("arc %v: head %v out of range [0, %v)", i, head[i], node_count)
		}
		if weight[i] < 0 {
			return nil, fmt.Errorf("arc %v: negative weight %v", i, weight[i])
		}
	}

	builder := &_Builder{
		node_count:            node_count,
		max_pop_count:         max_pop_count,
		arcs:                  NewList[Shortcut](tail.Length() * 2),
		fwd_edges:             make([]List[_Edge], node_count),
		bwd_edges:             make([]List[_Edge], node_count),
		is_contracted:         NewArray[bool](int(node_count)),
		contracted_neighbours: NewArray[int32](int(node_count)),
		ranks:                 NewArray[int32](int(node_count)),
		flags:                 NewFlags[_FlagDist](node_count, _FlagDist{dist: INF_WEIGHT}),
		heap:                  NewPriorityQueue[int32, int32](int(node_count)),
	}
	for i := int32(0); i < node_count; i++ {
		builder.fwd_edges[i] = NewList[_Edge](2)
		builder.bwd_edges[i] = NewList[_Edge](2)
	}
	for i := 0; i < tail.Length(); i++ {
		// self-loops never lie on a shortest path
		if tail[i] == head[i] {
			continue
		}
		builder.arcs.Add(Shortcut{
			From: tail[i], To: head[i], Weight: weight[i],
			ChildA: -1, ChildB: -1, Source: int32(i), Searchable: 1,
		})
		arc_id := int32(builder.arcs.Length() - 1)
		builder.fwd_edges[tail[i]].Add(_Edge{other: head[i], arc: arc_id, weight: weight[i]})
		builder.bwd_edges[head[i]].Add(_Edge{other: tail[i], arc: arc_id, weight: weight[i]})
	}

	log_message(fmt.Sprintf("contracting %v nodes, %v arcs", node_count, tail.Length()))
	builder._Run(log_message)
	log_message(fmt.Sprintf("contraction finished: %v arcs total", builder.arcs.Length()))

	return NewHierarchy(node_count, builder.ranks, Array[Shortcut](builder.arcs))
}

type _Builder struct {
	node_count            int32
	max_pop_count         int32
	arcs                  List[Shortcut]
	fwd_edges             []List[_Edge] // uncontracted out-neighbours
	bwd_edges             []List[_Edge] // uncontracted in-neighbours
	is_contracted         Array[bool]
	contracted_neighbours Array[int32]
	ranks                 Array[int32]
	flags                 Flags[_FlagDist]
	heap                  PriorityQueue[int32, int32]

	pq PriorityQueue[int32, int32] // witness search scratch
}

func (self *_Builder) _Run(log_message func(string)) {
	self.pq = NewPriorityQueue[int32, int32](128)
	for i := int32(0); i < self.node_count; i++ {
		self.heap.Enqueue(i, self._ComputePriority(i))
	}

	next_rank := int32(0)
	for self.heap.Len() > 0 {
		node, _ := self.heap.Dequeue()
		if self.is_contracted[node] {
			continue
		}
		// lazy update: requeue if the node is no longer the cheapest
		prio := self._ComputePriority(node)
		if self.heap.Len() > 0 {
			other, other_prio := self.heap.Peek()
			if prio > other_prio || (prio == other_prio && node > other) {
				self.heap.Enqueue(node, prio)
				continue
			}
		}
		self._ContractNode(node)
		self.ranks[node] = next_rank
		next_rank += 1
		if next_rank%10000 == 0 {
			log_message(fmt.Sprintf("contracted %v / %v nodes", next_rank, self.node_count))
		}
	}
}

func (self *_Builder) _ComputePriority(node int32) int32 {
	added := self._CountShortcuts(node)
	removed := int32(0)
	for i := 0; i < self.fwd_edges[node].Length(); i++ {
		if !self.is_contracted[self.fwd_edges[node][i].other] {
			removed += 1
		}
	}
	for i := 0; i < self.bwd_edges[node].Length(); i++ {
		if !self.is_contracted[self.bwd_edges[node][i].other] {
			removed += 1
		}
	}
	return 2*(added-removed) + self.contracted_neighbours[node]
}

// Counts the shortcuts contracting the node would create.
func (self *_Builder) _CountShortcuts(node int32) int32 {
	count := int32(0)
	self._ForShortcuts(node, func(from, to int32, weight int32, child_a, child_b int32) {
		count += 1
	})
	return count
}

func (self *_Builder) _ContractNode(node int32) {
	shortcuts := NewList[Shortcut](4)
	self._ForShortcuts(node, func(from, to int32, weight int32, child_a, child_b int32) {
		shortcuts.Add(Shortcut{
			From: from, To: to, Weight: weight,
			ChildA: child_a, ChildB: child_b, Source: -1, Searchable: 1,
		})
	})
	self.is_contracted[node] = true
	for i := 0; i < shortcuts.Length(); i++ {
		sc := shortcuts[i]
		self.arcs.Add(sc)
		arc_id := int32(self.arcs.Length() - 1)
		self.fwd_edges[sc.From].Add(_Edge{other: sc.To, arc: arc_id, weight: sc.Weight})
		self.bwd_edges[sc.To].Add(_Edge{other: sc.From, arc: arc_id, weight: sc.Weight})
	}
	// neighbours got denser and cheaper to pick later, requeue them
	for _, edges := range [2]List[_Edge]{self.fwd_edges[node], self.bwd_edges[node]} {
		for i := 0; i < edges.Length(); i++ {
			other := edges[i].other
			if self.is_contracted[other] {
				continue
			}
			self.contracted_neighbours[other] += 1
			self.heap.Enqueue(other, self._ComputePriority(other))
		}
	}
}

// Enumerates the shortcuts contracting the node requires: for every
// uncontracted in/out neighbour pair whose best path through the node is
// not matched by a witness avoiding it.
func (self *_Builder) _ForShortcuts(node int32, callback func(int32, int32, int32, int32, int32)) {
	in_edges := self._BestNeighbours(self.bwd_edges[node])
	out_edges := self._BestNeighbours(self.fwd_edges[node])
	for _, in := range in_edges {
		max_dist := int32(0)
		has_target := false
		for _, out := range out_edges {
			if out.other == in.other {
				continue
			}
			has_target = true
			combined := in.weight + out.weight
			if combined > max_dist {
				max_dist = combined
			}
		}
		if !has_target {
			continue
		}
		self._RunWitnessSearch(in.other, node, max_dist)
		for _, out := range out_edges {
			if out.other == in.other {
				continue
			}
			combined := in.weight + out.weight
			witness := self.flags.Get(out.other).dist
			if witness <= combined {
				continue
			}
			callback(in.other, out.other, combined, in.arc, out.arc)
		}
	}
}

// Folds parallel edges towards uncontracted neighbours to their minimum
// weight entry.
func (self *_Builder) _BestNeighbours(edges List[_Edge]) []_Edge {
	best := make([]_Edge, 0, edges.Length())
	for i := 0; i < edges.Length(); i++ {
		edge := edges[i]
		if self.is_contracted[edge.other] {
			continue
		}
		found := false
		for j := range best {
			if best[j].other == edge.other {
				found = true
				if edge.weight < best[j].weight {
					best[j] = edge
				}
				break
			}
		}
		if !found {
			best = append(best, edge)
		}
	}
	return best
}

// Local Dijkstra from start over the uncontracted graph avoiding the via
// node, pruned at max_dist and capped by max_pop_count heap pops. Results
// are left in self.flags.
func (self *_Builder) _RunWitnessSearch(start int32, via int32, max_dist int32) {
	self.flags.Reset()
	self.pq.Clear()
	self.flags.Get(start).dist = 0
	self.pq.Enqueue(start, 0)
	pops := int32(0)
	for self.pq.Len() > 0 && pops < self.max_pop_count {
		curr, _ := self.pq.Dequeue()
		flag := self.flags.Get(curr)
		if flag.visited {
			continue
		}
		flag.visited = true
		pops += 1
		curr_dist := flag.dist
		edges := self.fwd_edges[curr]
		for i := 0; i < edges.Length(); i++ {
			edge := edges[i]
			if edge.other == via || self.is_contracted[edge.other] {
				continue
			}
			new_dist := curr_dist + edge.weight
			if new_dist > max_dist {
				continue
			}
			other_flag := self.flags.Get(edge.other)
			if new_dist < other_flag.dist {
				other_flag.dist = new_dist
				self.pq.Enqueue(edge.other, new_dist)
			}
		}
	}
}
