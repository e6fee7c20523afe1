package cch

import (
	"sort"

	"github.com/ttpr0/go-cch/ch"
	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// perfect customization
//*******************************************

// Builds a classical contraction hierarchy from a customized metric
// without any witness searches. A perfect customization pass shrinks every
// chordal weight to the exact shortest path distance between its
// endpoints, afterwards upward arcs dominated by a two-hop path over an
// intermediate rank are excluded from the search graphs. All finite arcs
// stay in the hierarchy's arc array so paths remain unpackable.
//
// The metric must be customized, it is not modified.
func (self *Metric) BuildPerfectCH() (*ch.Hierarchy, error) {
	cch := self.cch
	arc_count := int(cch.ShortcutCount())
	fwd := NewArray[int32](arc_count)
	bwd := NewArray[int32](arc_count)
	copy(fwd, self.fwd)
	copy(bwd, self.bwd)

	_PerfectCustomization(cch, fwd, bwd)
	arcs := self._ExtractArcs(fwd, bwd)

	ranks := NewArray[int32](int(cch.node_count))
	copy(ranks, cch.rank)
	return ch.NewHierarchy(cch.node_count, ranks, arcs)
}

// Shrinks the chordal weights to exact distances by closing them under
// all triangle inequalities. For every node x and every pair of its up
// arcs (x,y), (x,w) spanning a triangle with (y,w), each of the three
// arcs may shorten over the other two. Repeats descending passes until no
// weight changes; an up-down path contracts one triangle at a time, so
// the fixpoint is exact.
func _PerfectCustomization(cch *CCH, fwd Array[int32], bwd Array[int32]) {
	relax := func(arc int32, fwd_cand, bwd_cand int32) bool {
		changed := false
		if fwd_cand < fwd[arc] {
			fwd[arc] = fwd_cand
			changed = true
		}
		if bwd_cand < bwd[arc] {
			bwd[arc] = bwd_cand
			changed = true
		}
		return changed
	}
	for {
		changed := false
		for x := cch.node_count - 1; x >= 0; x-- {
			for a1 := cch.up_first[x]; a1 < cch.up_first[x+1]; a1++ {
				y := cch.up_head[a1]
				for a2 := a1 + 1; a2 < cch.up_first[x+1]; a2++ {
					w := cch.up_head[a2]
					a3 := cch._FindUpArc(y, w)
					if a3 == -1 {
						continue
					}
					// (x,y) over the top node w
					if relax(a1, _AddWeights(fwd[a2], bwd[a3]), _AddWeights(bwd[a2], fwd[a3])) {
						changed = true
					}
					// (x,w) over the intermediate node y
					if relax(a2, _AddWeights(fwd[a1], fwd[a3]), _AddWeights(bwd[a3], bwd[a1])) {
						changed = true
					}
					// (y,w) over the bottom node x
					if relax(a3, _AddWeights(bwd[a1], fwd[a2]), _AddWeights(bwd[a2], fwd[a1])) {
						changed = true
					}
				}
			}
		}
		if !changed {
			return
		}
	}
}

//*******************************************
// arc extraction
//*******************************************

type _DirArc struct {
	cch_arc int32
	forward bool
	source  int32 // original arc id at leaves, -1 otherwise
}

// Materializes every finite directed arc of the perfectly customized
// weights as a hierarchy arc. Arcs matching an original input weight come
// first, ascending by input arc id; composed arcs follow with their two
// children resolved from whichever decomposition reproduces the weight.
func (self *Metric) _ExtractArcs(fwd Array[int32], bwd Array[int32]) Array[ch.Shortcut] {
	cch := self.cch
	arc_count := int(cch.ShortcutCount())

	leaves := NewList[_DirArc](arc_count)
	composed := NewList[_DirArc](arc_count)
	collect := func(a int32, forward bool) {
		source := self._FindLeafSource(a, forward, fwd, bwd)
		if source != -1 {
			leaves.Add(_DirArc{cch_arc: a, forward: forward, source: source})
		} else {
			composed.Add(_DirArc{cch_arc: a, forward: forward, source: -1})
		}
	}
	for a := 0; a < arc_count; a++ {
		if fwd[a] != INF_WEIGHT {
			collect(int32(a), true)
		}
		if bwd[a] != INF_WEIGHT {
			collect(int32(a), false)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].source < leaves[j].source })

	fwd_id := NewArray[int32](arc_count)
	bwd_id := NewArray[int32](arc_count)
	for a := 0; a < arc_count; a++ {
		fwd_id[a] = -1
		bwd_id[a] = -1
	}
	assign := func(dir _DirArc, id int32) {
		if dir.forward {
			fwd_id[dir.cch_arc] = id
		} else {
			bwd_id[dir.cch_arc] = id
		}
	}
	for i := 0; i < leaves.Length(); i++ {
		assign(leaves[i], int32(i))
	}
	for i := 0; i < composed.Length(); i++ {
		assign(composed[i], int32(leaves.Length()+i))
	}

	arcs := NewList[ch.Shortcut](leaves.Length() + composed.Length())
	emit := func(dir _DirArc) {
		x := cch.up_tail[dir.cch_arc]
		y := cch.up_head[dir.cch_arc]
		sc := ch.Shortcut{ChildA: -1, ChildB: -1, Source: dir.source, Searchable: 1}
		if dir.forward {
			sc.From = cch.order[x]
			sc.To = cch.order[y]
			sc.Weight = fwd[dir.cch_arc]
		} else {
			sc.From = cch.order[y]
			sc.To = cch.order[x]
			sc.Weight = bwd[dir.cch_arc]
		}
		if dir.source == -1 {
			sc.ChildA, sc.ChildB = self._FindChildren(dir.cch_arc, dir.forward, fwd, bwd, fwd_id, bwd_id)
		}
		if self._IsDominated(dir.cch_arc, dir.forward, fwd, bwd) {
			sc.Searchable = 0
		}
		arcs.Add(sc)
	}
	for i := 0; i < leaves.Length(); i++ {
		emit(leaves[i])
	}
	for i := 0; i < composed.Length(); i++ {
		emit(composed[i])
	}
	return Array[ch.Shortcut](arcs)
}

// Smallest original input arc whose weight matches the perfect weight,
// -1 if the weight is composed.
func (self *Metric) _FindLeafSource(arc int32, forward bool, fwd Array[int32], bwd Array[int32]) int32 {
	cch := self.cch
	if forward {
		for i := cch.fwd_input_first[arc]; i < cch.fwd_input_first[arc+1]; i++ {
			orig := cch.fwd_input_arcs[i]
			if self.weights[orig] == fwd[arc] {
				return orig
			}
		}
	} else {
		for i := cch.bwd_input_first[arc]; i < cch.bwd_input_first[arc+1]; i++ {
			orig := cch.bwd_input_arcs[i]
			if self.weights[orig] == bwd[arc] {
				return orig
			}
		}
	}
	return -1
}

// Resolves the two directed child arcs of a composed arc by testing the
// lower, intermediate and upper triangle decompositions for the one that
// reproduces the perfect weight.
func (self *Metric) _FindChildren(arc int32, forward bool, fwd Array[int32], bwd Array[int32], fwd_id Array[int32], bwd_id Array[int32]) (int32, int32) {
	cch := self.cch
	x := cch.up_tail[arc]
	y := cch.up_head[arc]
	target := fwd[arc]
	if !forward {
		target = bwd[arc]
	}

	child_a := int32(-1)
	child_b := int32(-1)
	cch._ForLowerTriangles(arc, func(z, zx, zy int32) {
		if child_a != -1 {
			return
		}
		if forward && _AddWeights(bwd[zx], fwd[zy]) == target {
			child_a, child_b = bwd_id[zx], fwd_id[zy]
		} else if !forward && _AddWeights(bwd[zy], fwd[zx]) == target {
			child_a, child_b = bwd_id[zy], fwd_id[zx]
		}
	})
	if child_a != -1 {
		return child_a, child_b
	}
	for i := cch.up_first[x]; i < cch.up_first[x+1]; i++ {
		m := cch.up_head[i]
		if m == y {
			continue
		}
		if m < y {
			// intermediate node between the endpoints
			my := cch._FindUpArc(m, y)
			if my == -1 {
				continue
			}
			if forward && _AddWeights(fwd[i], fwd[my]) == target {
				return fwd_id[i], fwd_id[my]
			}
			if !forward && _AddWeights(bwd[my], bwd[i]) == target {
				return bwd_id[my], bwd_id[i]
			}
		} else {
			// top node above both endpoints
			yw := cch._FindUpArc(y, m)
			if yw == -1 {
				continue
			}
			if forward && _AddWeights(fwd[i], bwd[yw]) == target {
				return fwd_id[i], bwd_id[yw]
			}
			if !forward && _AddWeights(fwd[yw], bwd[i]) == target {
				return fwd_id[yw], bwd_id[i]
			}
		}
	}
	panic("no decomposition for perfect shortcut weight")
}

// An upward arc is dropped from the search graphs when a two-hop path
// over an intermediate rank is at least as good.
func (self *Metric) _IsDominated(arc int32, forward bool, fwd Array[int32], bwd Array[int32]) bool {
	cch := self.cch
	x := cch.up_tail[arc]
	y := cch.up_head[arc]
	for i := cch.up_first[x]; i < cch.up_first[x+1]; i++ {
		m := cch.up_head[i]
		if m >= y {
			continue
		}
		my := cch._FindUpArc(m, y)
		if my == -1 {
			continue
		}
		if forward && _AddWeights(fwd[i], fwd[my]) <= fwd[arc] {
			return true
		}
		if !forward && _AddWeights(bwd[my], bwd[i]) <= bwd[arc] {
			return true
		}
	}
	return false
}
