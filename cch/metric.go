package cch

import (
	"fmt"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// metric
//*******************************************

// Metric binds arc weights to a CCH structure. It owns a copy of the input
// weights plus one forward and one backward weight per chordal arc. After
// Customize (or ParallelCustomize) the chordal weights respect all lower
// triangle inequalities and queries may run against the metric.
type Metric struct {
	cch     *CCH
	weights Array[int32]
	fwd     Array[int32]
	bwd     Array[int32]
}

// Creates a metric for the given structure. weights holds one entry per
// original arc, weights must be non-negative. The array is copied, later
// changes by the caller do not affect the metric.
func NewMetric(cch *CCH, weights Array[int32]) (*Metric, error) {
	if weights.Length() != int(cch.ArcCount()) {
		return nil, fmt.Errorf("weights array has length %v, want %v", weights.Length(), cch.ArcCount())
	}
	for i := 0; i < weights.Length(); i++ {
		if weights[i] < 0 {
			return nil, fmt.Errorf("arc %v: negative weight %v", i, weights[i])
		}
	}
	owned := NewArray[int32](weights.Length())
	copy(owned, weights)
	return &Metric{
		cch:     cch,
		weights: owned,
		fwd:     NewArray[int32](int(cch.ShortcutCount())),
		bwd:     NewArray[int32](int(cch.ShortcutCount())),
	}, nil
}

func (self *Metric) CCH() *CCH {
	return self.cch
}

// The metric's copy of the original arc weights. Mutating entries without
// a following Customize leaves the chordal weights stale.
func (self *Metric) Weights() Array[int32] {
	return self.weights
}

func (self *Metric) SetWeight(arc int32, weight int32) error {
	if arc < 0 || int(arc) >= self.weights.Length() {
		return fmt.Errorf("arc %v out of range [0, %v)", arc, self.weights.Length())
	}
	if weight < 0 {
		return fmt.Errorf("arc %v: negative weight %v", arc, weight)
	}
	self.weights[arc] = weight
	return nil
}

// Computes the customized chordal weights with a single ascending pass
// over the shortcut arcs. Lower triangles of an arc only reference lower
// arc ids, so every arc is final once processed.
func (self *Metric) Customize() {
	arc_count := self.cch.ShortcutCount()
	for a := int32(0); a < arc_count; a++ {
		self._ResetArcWeights(a)
		self._RelaxLowerTriangles(a)
	}
}

// Sets the chordal weights of an arc to the minimum over its original
// input arcs, INF_WEIGHT if there are none.
func (self *Metric) _ResetArcWeights(arc int32) {
	cch := self.cch
	fwd := INF_WEIGHT
	for i := cch.fwd_input_first[arc]; i < cch.fwd_input_first[arc+1]; i++ {
		w := self.weights[cch.fwd_input_arcs[i]]
		if w < fwd {
			fwd = w
		}
	}
	bwd := INF_WEIGHT
	for i := cch.bwd_input_first[arc]; i < cch.bwd_input_first[arc+1]; i++ {
		w := self.weights[cch.bwd_input_arcs[i]]
		if w < bwd {
			bwd = w
		}
	}
	self.fwd[arc] = fwd
	self.bwd[arc] = bwd
}

// Applies every lower triangle of the arc (x, y): paths through a node z
// below both endpoints may undercut the direct weight.
func (self *Metric) _RelaxLowerTriangles(arc int32) {
	self.cch._ForLowerTriangles(arc, func(z, zx, zy int32) {
		fwd := _AddWeights(self.bwd[zx], self.fwd[zy])
		if fwd < self.fwd[arc] {
			self.fwd[arc] = fwd
		}
		bwd := _AddWeights(self.bwd[zy], self.fwd[zx])
		if bwd < self.bwd[arc] {
			self.bwd[arc] = bwd
		}
	})
}

// Saturating addition, INF_WEIGHT absorbs.
func _AddWeights(a, b int32) int32 {
	if a == INF_WEIGHT || b == INF_WEIGHT {
		return INF_WEIGHT
	}
	sum := int64(a) + int64(b)
	if sum >= int64(INF_WEIGHT) {
		return INF_WEIGHT
	}
	return int32(sum)
}
