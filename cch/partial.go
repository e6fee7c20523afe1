package cch

import (
	"fmt"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// partial customization
//*******************************************

// PartialCustomizer re-customizes a metric after a small number of weight
// changes without touching the untouched parts of the hierarchy. All
// bookkeeping is preallocated, repeated update rounds do not allocate.
//
// The customizer is bound to a structure, not a metric, the same instance
// can serve several metrics over the same CCH in turn.
type PartialCustomizer struct {
	cch      *CCH
	queue    PriorityQueue[int32, int32]
	in_queue Array[bool]
}

func NewPartialCustomizer(cch *CCH) *PartialCustomizer {
	return &PartialCustomizer{
		cch:      cch,
		queue:    NewPriorityQueue[int32, int32](64),
		in_queue: NewArray[bool](int(cch.ShortcutCount())),
	}
}

// Marks the chordal arc carrying the given original arc as dirty. Marking
// a self-loop is a no-op, it maps to no chordal arc.
func (self *PartialCustomizer) MarkArcDirty(arc int32) error {
	if arc < 0 || arc >= self.cch.ArcCount() {
		return fmt.Errorf("arc %v out of range [0, %v)", arc, self.cch.ArcCount())
	}
	cch_arc, _ := self.cch._MapOriginalArc(arc)
	if cch_arc != -1 {
		self._Enqueue(cch_arc)
	}
	return nil
}

// Writes a new weight into the metric and marks the arc dirty.
func (self *PartialCustomizer) UpdateArc(metric *Metric, arc int32, weight int32) error {
	if metric.cch != self.cch {
		return fmt.Errorf("metric belongs to a different cch structure")
	}
	if err := metric.SetWeight(arc, weight); err != nil {
		return err
	}
	return self.MarkArcDirty(arc)
}

// Drops all pending dirty marks.
func (self *PartialCustomizer) Reset() {
	for {
		arc, ok := self.queue.Dequeue()
		if !ok {
			break
		}
		self.in_queue[arc] = false
	}
}

// Recomputes every dirty chordal arc and propagates changes upwards.
// Arcs are processed ascending by id; a change to an arc can only affect
// arcs with a strictly higher id, so every arc is recomputed at most once.
// Afterwards the metric is fully customized again and the customizer is
// clean.
func (self *PartialCustomizer) Customize(metric *Metric) error {
	if metric.cch != self.cch {
		return fmt.Errorf("metric belongs to a different cch structure")
	}
	for {
		arc, ok := self.queue.Dequeue()
		if !ok {
			break
		}
		if !self.in_queue[arc] {
			continue
		}
		self.in_queue[arc] = false
		old_fwd := metric.fwd[arc]
		old_bwd := metric.bwd[arc]
		metric._ResetArcWeights(arc)
		metric._RelaxLowerTriangles(arc)
		if metric.fwd[arc] != old_fwd || metric.bwd[arc] != old_bwd {
			self._EnqueueDependents(arc)
		}
	}
	return nil
}

// Applies a batch of weight updates and re-customizes. With duplicate arc
// entries the last weight wins.
func (self *PartialCustomizer) Apply(metric *Metric, arcs Array[int32], weights Array[int32]) error {
	if arcs.Length() != weights.Length() {
		return fmt.Errorf("arcs and weights arrays differ in length: %v != %v", arcs.Length(), weights.Length())
	}
	for i := 0; i < arcs.Length(); i++ {
		if err := self.UpdateArc(metric, arcs[i], weights[i]); err != nil {
			self.Reset()
			return err
		}
	}
	return self.Customize(metric)
}

func (self *PartialCustomizer) _Enqueue(arc int32) {
	if self.in_queue[arc] {
		return
	}
	self.in_queue[arc] = true
	self.queue.Enqueue(arc, arc)
}

// A changed arc (x, y) invalidates every arc that has a lower triangle
// through it: arcs between y and another up-neighbour of x.
func (self *PartialCustomizer) _EnqueueDependents(arc int32) {
	cch := self.cch
	x := cch.up_tail[arc]
	y := cch.up_head[arc]
	for i := cch.up_first[x]; i < cch.up_first[x+1]; i++ {
		w := cch.up_head[i]
		if w == y {
			continue
		}
		lo, hi := y, w
		if lo > hi {
			lo, hi = hi, lo
		}
		dependent := cch._FindUpArc(lo, hi)
		if dependent != -1 {
			self._Enqueue(dependent)
		}
	}
}
