package cch

import (
	"fmt"
	"math"
	"sort"

	. "github.com/ttpr0/go-cch/util"
	"golang.org/x/exp/slog"
)

// Weight value representing an unreachable connection.
const INF_WEIGHT int32 = math.MaxInt32

//*******************************************
// cch structure
//*******************************************

// CCH is the weight-independent part of a customizable contraction
// hierarchy: the chordal shortcut supergraph induced by an elimination
// order, the elimination tree and the mapping between original arcs and
// chordal arcs. Immutable once built, safe for concurrent readers.
//
// All internal node ids are ranks; order/rank translate to the caller's
// node ids at the API boundary. Chordal arcs run from the lower rank
// (tail) to the higher rank (head) and are sorted by (tail, head), so arc
// ids increase with the tail's rank.
type CCH struct {
	node_count int32
	arc_count  int32

	order Array[int32] // rank -> node
	rank  Array[int32] // node -> rank

	orig_tail Array[int32] // original arc -> tail node
	orig_head Array[int32] // original arc -> head node

	tree_parent Array[int32] // rank -> parent rank, -1 at roots
	tree_level  Array[int32] // rank -> depth below its root

	up_first Array[int32] // rank -> first chordal arc leaving it
	up_head  Array[int32] // chordal arc -> head rank
	up_tail  Array[int32] // chordal arc -> tail rank

	down_first Array[int32] // rank -> first entry in down_arcs
	down_arcs  Array[int32] // chordal arcs entering a rank, ascending by arc id

	// original arcs feeding each chordal arc, per direction
	fwd_input_first Array[int32]
	fwd_input_arcs  Array[int32]
	bwd_input_first Array[int32]
	bwd_input_arcs  Array[int32]
}

// Builds the CCH structure for the given elimination order and topology.
// The order maps rank -> node and has to be a permutation of all nodes.
// log_message receives human-readable progress strings and may be nil.
// With filter_always_inf set, chordal arcs that can never obtain a finite
// customized weight are dropped from the structure.
func NewCCH(order Array[int32], tail Array[int32], head Array[int32], log_message func(string), filter_always_inf bool) (*CCH, error) {
	if log_message == nil {
		log_message = func(msg string) { slog.Debug(msg) }
	}
	node_count := int32(order.Length())
	if tail.Length() != head.Length() {
		return nil, fmt.Errorf("tail and head arrays differ in length: %v != %v", tail.Length(), head.Length())
	}
	rank := NewArray[int32](int(node_count))
	seen := NewArray[bool](int(node_count))
	for r := 0; r < order.Length(); r++ {
		node := order[r]
		if node < 0 || node >= node_count {
			return nil, fmt.Errorf("order entry %v: node %v out of range [0, %v)", r, node, node_count)
		}
		if seen[node] {
			return nil, fmt.Errorf("order is not a permutation: node %v appears twice", node)
		}
		seen[node] = true
		rank[node] = int32(r)
	}
	for i := 0; i < tail.Length(); i++ {
		if tail[i] < 0 || tail[i] >= node_count {
			return nil, fmt.Errorf("arc %v: tail %v out of range [0, %v)", i, tail[i], node_count)
		}
		if head[i] < 0 || head[i] >= node_count {
			return nil, fmt.Errorf("arc %v: head %v out of range [0, %v)", i, head[i], node_count)
		}
	}

	self := &CCH{
		node_count: node_count,
		arc_count:  int32(tail.Length()),
		order:      order,
		rank:       rank,
		orig_tail:  tail,
		orig_head:  head,
	}

	log_message(fmt.Sprintf("building cch: %v nodes, %v arcs", node_count, tail.Length()))
	self._BuildChordalGraph()
	log_message(fmt.Sprintf("contraction finished: %v shortcut arcs", self.up_head.Length()))
	self._BuildDownArcs()
	self._BuildInputMapping()
	if filter_always_inf {
		before := self.up_head.Length()
		self._FilterAlwaysInfArcs()
		log_message(fmt.Sprintf("always-inf filter: %v -> %v arcs", before, self.up_head.Length()))
	}
	return self, nil
}

func (self *CCH) NodeCount() int32 {
	return self.node_count
}

// Number of original arcs the structure was built from.
func (self *CCH) ArcCount() int32 {
	return self.arc_count
}

// Number of arcs in the chordal shortcut graph.
func (self *CCH) ShortcutCount() int32 {
	return int32(self.up_head.Length())
}

// Parent of the given node in the elimination tree, -1 at a root.
func (self *CCH) GetTreeParent(node int32) int32 {
	parent := self.tree_parent[self.rank[node]]
	if parent == -1 {
		return -1
	}
	return self.order[parent]
}

//*******************************************
// construction
//*******************************************

// Runs the elimination game: processing ranks bottom-up, every pair of
// surviving neighbours of the eliminated node becomes adjacent. The
// lowest-ranked upward neighbour is the elimination tree parent.
func (self *CCH) _BuildChordalGraph() {
	node_count := int(self.node_count)
	up_sets := make([]Dict[int32, bool], node_count)
	for i := 0; i < node_count; i++ {
		up_sets[i] = NewDict[int32, bool](4)
	}
	for i := 0; i < self.orig_tail.Length(); i++ {
		a := self.rank[self.orig_tail[i]]
		b := self.rank[self.orig_head[i]]
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		up_sets[a][b] = true
	}

	tree_parent := NewArray[int32](node_count)
	up_lists := make([][]int32, node_count)
	for x := 0; x < node_count; x++ {
		neighbours := make([]int32, 0, up_sets[x].Length())
		for nb := range up_sets[x] {
			neighbours = append(neighbours, nb)
		}
		sort.Slice(neighbours, func(i, j int) bool { return neighbours[i] < neighbours[j] })
		up_lists[x] = neighbours
		if len(neighbours) == 0 {
			tree_parent[x] = -1
			continue
		}
		parent := neighbours[0]
		tree_parent[x] = parent
		for _, nb := range neighbours[1:] {
			up_sets[parent][nb] = true
		}
		up_sets[x] = nil
	}

	tree_level := NewArray[int32](node_count)
	for x := node_count - 1; x >= 0; x-- {
		if tree_parent[x] == -1 {
			tree_level[x] = 0
		} else {
			tree_level[x] = tree_level[tree_parent[x]] + 1
		}
	}

	arc_count := 0
	for x := 0; x < node_count; x++ {
		arc_count += len(up_lists[x])
	}
	up_first := NewArray[int32](node_count + 1)
	up_head := NewArray[int32](arc_count)
	up_tail := NewArray[int32](arc_count)
	pos := int32(0)
	for x := 0; x < node_count; x++ {
		up_first[x] = pos
		for _, nb := range up_lists[x] {
			up_head[pos] = nb
			up_tail[pos] = int32(x)
			pos += 1
		}
	}
	up_first[node_count] = pos

	self.tree_parent = tree_parent
	self.tree_level = tree_level
	self.up_first = up_first
	self.up_head = up_head
	self.up_tail = up_tail
}

func (self *CCH) _BuildDownArcs() {
	node_count := int(self.node_count)
	arc_count := self.up_head.Length()

	down_first := NewArray[int32](node_count + 1)
	for a := 0; a < arc_count; a++ {
		down_first[self.up_head[a]+1] += 1
	}
	for i := 0; i < node_count; i++ {
		down_first[i+1] += down_first[i]
	}
	down_arcs := NewArray[int32](arc_count)
	offsets := NewArray[int32](node_count)
	// ascending arc id keeps every down list sorted by tail rank
	for a := 0; a < arc_count; a++ {
		h := self.up_head[a]
		down_arcs[down_first[h]+offsets[h]] = int32(a)
		offsets[h] += 1
	}

	self.down_first = down_first
	self.down_arcs = down_arcs
}

func (self *CCH) _BuildInputMapping() {
	arc_count := self.up_head.Length()

	fwd_first := NewArray[int32](arc_count + 1)
	bwd_first := NewArray[int32](arc_count + 1)
	for i := 0; i < self.orig_tail.Length(); i++ {
		a, is_fwd := self._MapOriginalArc(int32(i))
		if a == -1 {
			continue
		}
		if is_fwd {
			fwd_first[a+1] += 1
		} else {
			bwd_first[a+1] += 1
		}
	}
	for a := 0; a < arc_count; a++ {
		fwd_first[a+1] += fwd_first[a]
		bwd_first[a+1] += bwd_first[a]
	}
	fwd_arcs := NewArray[int32](int(fwd_first[arc_count]))
	bwd_arcs := NewArray[int32](int(bwd_first[arc_count]))
	fwd_offsets := NewArray[int32](arc_count)
	bwd_offsets := NewArray[int32](arc_count)
	for i := 0; i < self.orig_tail.Length(); i++ {
		a, is_fwd := self._MapOriginalArc(int32(i))
		if a == -1 {
			continue
		}
		if is_fwd {
			fwd_arcs[fwd_first[a]+fwd_offsets[a]] = int32(i)
			fwd_offsets[a] += 1
		} else {
			bwd_arcs[bwd_first[a]+bwd_offsets[a]] = int32(i)
			bwd_offsets[a] += 1
		}
	}

	self.fwd_input_first = fwd_first
	self.fwd_input_arcs = fwd_arcs
	self.bwd_input_first = bwd_first
	self.bwd_input_arcs = bwd_arcs
}

// Maps an original arc to its chordal arc and direction. Self-loops map to
// no arc at all (-1), they cannot shorten any path.
func (self *CCH) _MapOriginalArc(arc int32) (int32, bool) {
	t := self.rank[self.orig_tail[arc]]
	h := self.rank[self.orig_head[arc]]
	if t == h {
		return -1, false
	}
	if t < h {
		return self._FindUpArc(t, h), true
	}
	return self._FindUpArc(h, t), false
}

// Binary search for the chordal arc tail -> head, -1 if absent.
func (self *CCH) _FindUpArc(tail, head int32) int32 {
	lo := int(self.up_first[tail])
	hi := int(self.up_first[tail+1])
	pos := lo + sort.Search(hi-lo, func(i int) bool {
		return self.up_head[lo+i] >= head
	})
	if pos < hi && self.up_head[pos] == head {
		return int32(pos)
	}
	return -1
}

// Calls callback with (z, arc(z,x), arc(z,y)) for every lower triangle of
// the chordal arc (x, y).
func (self *CCH) _ForLowerTriangles(arc int32, callback func(int32, int32, int32)) {
	x := self.up_tail[arc]
	y := self.up_head[arc]
	ix := self.down_first[x]
	iy := self.down_first[y]
	end_x := self.down_first[x+1]
	end_y := self.down_first[y+1]
	for ix < end_x && iy < end_y {
		ax := self.down_arcs[ix]
		ay := self.down_arcs[iy]
		zx := self.up_tail[ax]
		zy := self.up_tail[ay]
		if zx < zy {
			ix += 1
		} else if zx > zy {
			iy += 1
		} else {
			callback(zx, ax, ay)
			ix += 1
			iy += 1
		}
	}
}

//*******************************************
// always-inf filter
//*******************************************

// Removes chordal arcs that cannot obtain a finite weight in either
// direction under any metric: no original input arc and no lower triangle
// whose legs can both become finite. Computed as a single ascending pass,
// triangles only ever reference lower arc ids. The elimination tree is
// kept as built, so query search spaces are unaffected.
func (self *CCH) _FilterAlwaysInfArcs() {
	arc_count := self.up_head.Length()
	fwd_possible := NewArray[bool](arc_count)
	bwd_possible := NewArray[bool](arc_count)
	for a := 0; a < arc_count; a++ {
		if self.fwd_input_first[a+1] > self.fwd_input_first[a] {
			fwd_possible[a] = true
		}
		if self.bwd_input_first[a+1] > self.bwd_input_first[a] {
			bwd_possible[a] = true
		}
		self._ForLowerTriangles(int32(a), func(z, zx, zy int32) {
			if bwd_possible[zx] && fwd_possible[zy] {
				fwd_possible[a] = true
			}
			if bwd_possible[zy] && fwd_possible[zx] {
				bwd_possible[a] = true
			}
		})
	}

	keep_count := 0
	for a := 0; a < arc_count; a++ {
		if fwd_possible[a] || bwd_possible[a] {
			keep_count += 1
		}
	}
	if keep_count == arc_count {
		return
	}

	node_count := int(self.node_count)
	up_first := NewArray[int32](node_count + 1)
	up_head := NewArray[int32](keep_count)
	up_tail := NewArray[int32](keep_count)
	pos := int32(0)
	for x := 0; x < node_count; x++ {
		up_first[x] = pos
		for a := self.up_first[x]; a < self.up_first[x+1]; a++ {
			if !fwd_possible[a] && !bwd_possible[a] {
				continue
			}
			up_head[pos] = self.up_head[a]
			up_tail[pos] = int32(x)
			pos += 1
		}
	}
	up_first[node_count] = pos

	self.up_first = up_first
	self.up_head = up_head
	self.up_tail = up_tail
	self._BuildDownArcs()
	self._BuildInputMapping()
}
