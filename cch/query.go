package cch

import (
	"fmt"
	"sort"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// query
//*******************************************

type _QueryState byte

const (
	_QUERY_IDLE       _QueryState = 0
	_QUERY_ENDPOINTS  _QueryState = 1
	_QUERY_RUN        _QueryState = 2
	_QUERY_RUN_TO_TRG _QueryState = 3
	_QUERY_RUN_TO_SRC _QueryState = 4
)

// Query answers shortest path requests on a customized metric. All search
// state is preallocated and reused between runs, a query instance is not
// safe for concurrent use.
//
// Sources and targets may carry distance offsets, the reported distance is
// min over all pairs of source offset + path distance + target offset.
// Instead of targets a set of nodes can be pinned to compute distances
// from all sources to every pinned node in one run (and symmetrically for
// pinned sources).
type Query struct {
	metric *Metric
	cch    *CCH
	state  _QueryState

	fwd_dist Array[int32] // by rank
	bwd_dist Array[int32]
	fwd_pred Array[int32] // chordal arc reaching the rank, -1 at sources
	bwd_pred Array[int32]
	in_fwd   Array[bool]
	in_bwd   Array[bool]

	fwd_space List[int32] // touched ranks, ancestor-closed
	bwd_space List[int32]

	source_count int
	target_count int

	pinned_targets      List[int32] // node ids
	pinned_target_space List[int32] // ranks, descending
	in_pinned_target    Array[bool]
	pinned_sources      List[int32]
	pinned_source_space List[int32]
	in_pinned_source    Array[bool]

	best_dist int32
	meet_rank int32
}

func NewQuery(metric *Metric) *Query {
	node_count := int(metric.cch.node_count)
	self := &Query{
		metric:              metric,
		cch:                 metric.cch,
		fwd_dist:            NewArray[int32](node_count),
		bwd_dist:            NewArray[int32](node_count),
		fwd_pred:            NewArray[int32](node_count),
		bwd_pred:            NewArray[int32](node_count),
		in_fwd:              NewArray[bool](node_count),
		in_bwd:              NewArray[bool](node_count),
		fwd_space:           NewList[int32](64),
		bwd_space:           NewList[int32](64),
		pinned_targets:      NewList[int32](16),
		pinned_target_space: NewList[int32](64),
		in_pinned_target:    NewArray[bool](node_count),
		pinned_sources:      NewList[int32](16),
		pinned_source_space: NewList[int32](64),
		in_pinned_source:    NewArray[bool](node_count),
	}
	for i := 0; i < node_count; i++ {
		self.fwd_dist[i] = INF_WEIGHT
		self.bwd_dist[i] = INF_WEIGHT
		self.fwd_pred[i] = -1
		self.bwd_pred[i] = -1
	}
	self.best_dist = INF_WEIGHT
	self.meet_rank = -1
	return self
}

// Rebinds the query to a metric and clears all state including pins. The
// metric may differ from the current one, typically after an update round.
func (self *Query) Reset(metric *Metric) error {
	if metric.cch.node_count != self.cch.node_count {
		return fmt.Errorf("metric node count %v differs from query node count %v", metric.cch.node_count, self.cch.node_count)
	}
	self.ResetSources()
	self.ResetTargets()
	self._ClearPinnedTargets()
	self._ClearPinnedSources()
	self.metric = metric
	self.cch = metric.cch
	self.state = _QUERY_IDLE
	return nil
}

// Drops all sources and forward search state, targets and pins survive.
func (self *Query) ResetSources() {
	for i := 0; i < self.fwd_space.Length(); i++ {
		r := self.fwd_space[i]
		self.fwd_dist[r] = INF_WEIGHT
		self.fwd_pred[r] = -1
		self.in_fwd[r] = false
	}
	self.fwd_space.Clear()
	for i := 0; i < self.pinned_target_space.Length(); i++ {
		r := self.pinned_target_space[i]
		self.fwd_dist[r] = INF_WEIGHT
		self.fwd_pred[r] = -1
	}
	self.source_count = 0
	self.best_dist = INF_WEIGHT
	self.meet_rank = -1
	if self.target_count > 0 {
		self.state = _QUERY_ENDPOINTS
	} else {
		self.state = _QUERY_IDLE
	}
}

// Drops all targets and backward search state, sources and pins survive.
func (self *Query) ResetTargets() {
	for i := 0; i < self.bwd_space.Length(); i++ {
		r := self.bwd_space[i]
		self.bwd_dist[r] = INF_WEIGHT
		self.bwd_pred[r] = -1
		self.in_bwd[r] = false
	}
	self.bwd_space.Clear()
	for i := 0; i < self.pinned_source_space.Length(); i++ {
		r := self.pinned_source_space[i]
		self.bwd_dist[r] = INF_WEIGHT
		self.bwd_pred[r] = -1
	}
	self.target_count = 0
	self.best_dist = INF_WEIGHT
	self.meet_rank = -1
	if self.source_count > 0 {
		self.state = _QUERY_ENDPOINTS
	} else {
		self.state = _QUERY_IDLE
	}
}

// Adds a source with a distance offset. Multiple sources are allowed, on
// duplicates the smaller offset wins.
func (self *Query) AddSource(node int32, dist int32) error {
	if err := self._CheckEndpoint(node, dist); err != nil {
		return err
	}
	r := self.cch.rank[node]
	if dist < self.fwd_dist[r] {
		self.fwd_dist[r] = dist
	}
	self._ClimbForward(r)
	self.source_count += 1
	self.state = _QUERY_ENDPOINTS
	return nil
}

func (self *Query) AddTarget(node int32, dist int32) error {
	if err := self._CheckEndpoint(node, dist); err != nil {
		return err
	}
	r := self.cch.rank[node]
	if dist < self.bwd_dist[r] {
		self.bwd_dist[r] = dist
	}
	self._ClimbBackward(r)
	self.target_count += 1
	self.state = _QUERY_ENDPOINTS
	return nil
}

func (self *Query) _CheckEndpoint(node int32, dist int32) error {
	if node < 0 || node >= self.cch.node_count {
		return fmt.Errorf("node %v out of range [0, %v)", node, self.cch.node_count)
	}
	if dist < 0 || dist == INF_WEIGHT {
		return fmt.Errorf("invalid distance offset %v", dist)
	}
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it before adding endpoints")
	}
	return nil
}

// Marks the rank and all its elimination tree ancestors as part of the
// forward search space.
func (self *Query) _ClimbForward(rank int32) {
	for rank != -1 && !self.in_fwd[rank] {
		self.in_fwd[rank] = true
		self.fwd_space.Add(rank)
		rank = self.cch.tree_parent[rank]
	}
}

func (self *Query) _ClimbBackward(rank int32) {
	for rank != -1 && !self.in_bwd[rank] {
		self.in_bwd[rank] = true
		self.bwd_space.Add(rank)
		rank = self.cch.tree_parent[rank]
	}
}

//*******************************************
// one-to-one run
//*******************************************

// Runs the bidirectional elimination tree search. Both search spaces are
// swept once in ascending rank order, the best distance is the minimum
// over all ranks settled from both sides. Running without sources or
// targets is valid and yields an unreachable result.
func (self *Query) Run() error {
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it first")
	}
	self._SortSpace(self.fwd_space)
	self._SortSpace(self.bwd_space)
	self._SweepForward()
	self._SweepBackward()

	self.best_dist = INF_WEIGHT
	self.meet_rank = -1
	for i := 0; i < self.fwd_space.Length(); i++ {
		r := self.fwd_space[i]
		if !self.in_bwd[r] {
			continue
		}
		d := _AddWeights(self.fwd_dist[r], self.bwd_dist[r])
		if d < self.best_dist {
			self.best_dist = d
			self.meet_rank = r
		}
	}
	self.state = _QUERY_RUN
	return nil
}

func (self *Query) _SortSpace(space List[int32]) {
	sort.Slice(space, func(i, j int) bool { return space[i] < space[j] })
}

// Relaxes all upward arcs out of the forward space in ascending rank
// order. Heads of upward arcs are tree ancestors of the tail, so they are
// always part of the space themselves.
func (self *Query) _SweepForward() {
	cch := self.cch
	for i := 0; i < self.fwd_space.Length(); i++ {
		r := self.fwd_space[i]
		d := self.fwd_dist[r]
		if d == INF_WEIGHT {
			continue
		}
		for a := cch.up_first[r]; a < cch.up_first[r+1]; a++ {
			h := cch.up_head[a]
			nd := _AddWeights(d, self.metric.fwd[a])
			if nd < self.fwd_dist[h] {
				self.fwd_dist[h] = nd
				self.fwd_pred[h] = a
			}
		}
	}
}

func (self *Query) _SweepBackward() {
	cch := self.cch
	for i := 0; i < self.bwd_space.Length(); i++ {
		r := self.bwd_space[i]
		d := self.bwd_dist[r]
		if d == INF_WEIGHT {
			continue
		}
		for a := cch.up_first[r]; a < cch.up_first[r+1]; a++ {
			h := cch.up_head[a]
			nd := _AddWeights(d, self.metric.bwd[a])
			if nd < self.bwd_dist[h] {
				self.bwd_dist[h] = nd
				self.bwd_pred[h] = a
			}
		}
	}
}

// Shortest distance found by the last Run, INF_WEIGHT if no connection
// exists. Panics if the query has not run.
func (self *Query) Distance() int32 {
	if self.state != _QUERY_RUN {
		panic("query distance requested before run")
	}
	return self.best_dist
}

//*******************************************
// paths
//*******************************************

// Original arc ids of the shortest path in travel order. Empty if the
// target is unreachable or source and target coincide.
func (self *Query) ArcPath() Array[int32] {
	if self.state != _QUERY_RUN {
		panic("query path requested before run")
	}
	path := NewList[int32](16)
	if self.best_dist == INF_WEIGHT {
		return Array[int32](path)
	}

	fwd_chain := NewList[int32](16)
	r := self.meet_rank
	for self.fwd_pred[r] != -1 {
		a := self.fwd_pred[r]
		fwd_chain.Add(a)
		r = self.cch.up_tail[a]
	}
	for i := fwd_chain.Length() - 1; i >= 0; i-- {
		self._UnpackUp(fwd_chain[i], &path)
	}
	r = self.meet_rank
	for self.bwd_pred[r] != -1 {
		a := self.bwd_pred[r]
		self._UnpackDown(a, &path)
		r = self.cch.up_tail[a]
	}
	return Array[int32](path)
}

// Node ids of the shortest path in travel order, including source and
// target. Empty if the target is unreachable, a single node if source and
// target coincide.
func (self *Query) NodePath() Array[int32] {
	arcs := self.ArcPath()
	if self.best_dist == INF_WEIGHT {
		return NewArray[int32](0)
	}
	if arcs.Length() == 0 {
		nodes := NewArray[int32](1)
		nodes[0] = self.cch.order[self.meet_rank]
		return nodes
	}
	nodes := NewArray[int32](arcs.Length() + 1)
	nodes[0] = self.cch.orig_tail[arcs[0]]
	for i := 0; i < arcs.Length(); i++ {
		nodes[i+1] = self.cch.orig_head[arcs[i]]
	}
	return nodes
}

// Expands a chordal arc traversed upwards (tail to head) into original
// arcs. The customized weight is either an original input arc or composed
// from a lower triangle, the recursion follows whichever decomposition
// reproduces the weight exactly.
func (self *Query) _UnpackUp(arc int32, path *List[int32]) {
	cch := self.cch
	m := self.metric
	target := m.fwd[arc]
	for i := cch.fwd_input_first[arc]; i < cch.fwd_input_first[arc+1]; i++ {
		orig := cch.fwd_input_arcs[i]
		if m.weights[orig] == target {
			path.Add(orig)
			return
		}
	}
	found := false
	var via_zx, via_zy int32
	cch._ForLowerTriangles(arc, func(z, zx, zy int32) {
		if found {
			return
		}
		if _AddWeights(m.bwd[zx], m.fwd[zy]) == target {
			found = true
			via_zx = zx
			via_zy = zy
		}
	})
	if !found {
		panic("no decomposition for shortcut weight, metric not customized")
	}
	self._UnpackDown(via_zx, path)
	self._UnpackUp(via_zy, path)
}

// Expands a chordal arc traversed downwards (head to tail).
func (self *Query) _UnpackDown(arc int32, path *List[int32]) {
	cch := self.cch
	m := self.metric
	target := m.bwd[arc]
	for i := cch.bwd_input_first[arc]; i < cch.bwd_input_first[arc+1]; i++ {
		orig := cch.bwd_input_arcs[i]
		if m.weights[orig] == target {
			path.Add(orig)
			return
		}
	}
	found := false
	var via_zx, via_zy int32
	cch._ForLowerTriangles(arc, func(z, zx, zy int32) {
		if found {
			return
		}
		if _AddWeights(m.bwd[zy], m.fwd[zx]) == target {
			found = true
			via_zx = zx
			via_zy = zy
		}
	})
	if !found {
		panic("no decomposition for shortcut weight, metric not customized")
	}
	self._UnpackDown(via_zy, path)
	self._UnpackUp(via_zx, path)
}

//*******************************************
// pinned targets / sources
//*******************************************

// Pins a set of target nodes for repeated one-to-many runs. Replaces any
// previously pinned targets.
func (self *Query) PinTargets(targets Array[int32]) error {
	for i := 0; i < targets.Length(); i++ {
		if targets[i] < 0 || targets[i] >= self.cch.node_count {
			return fmt.Errorf("target %v out of range [0, %v)", targets[i], self.cch.node_count)
		}
	}
	self._ClearPinnedTargets()
	for i := 0; i < targets.Length(); i++ {
		self.pinned_targets.Add(targets[i])
		r := self.cch.rank[targets[i]]
		for r != -1 && !self.in_pinned_target[r] {
			self.in_pinned_target[r] = true
			self.pinned_target_space.Add(r)
			r = self.cch.tree_parent[r]
		}
	}
	sort.Slice(self.pinned_target_space, func(i, j int) bool {
		return self.pinned_target_space[i] > self.pinned_target_space[j]
	})
	return nil
}

// Pins a set of source nodes for repeated many-to-one runs. Replaces any
// previously pinned sources.
func (self *Query) PinSources(sources Array[int32]) error {
	for i := 0; i < sources.Length(); i++ {
		if sources[i] < 0 || sources[i] >= self.cch.node_count {
			return fmt.Errorf("source %v out of range [0, %v)", sources[i], self.cch.node_count)
		}
	}
	self._ClearPinnedSources()
	for i := 0; i < sources.Length(); i++ {
		self.pinned_sources.Add(sources[i])
		r := self.cch.rank[sources[i]]
		for r != -1 && !self.in_pinned_source[r] {
			self.in_pinned_source[r] = true
			self.pinned_source_space.Add(r)
			r = self.cch.tree_parent[r]
		}
	}
	sort.Slice(self.pinned_source_space, func(i, j int) bool {
		return self.pinned_source_space[i] > self.pinned_source_space[j]
	})
	return nil
}

func (self *Query) _ClearPinnedTargets() {
	for i := 0; i < self.pinned_target_space.Length(); i++ {
		self.in_pinned_target[self.pinned_target_space[i]] = false
	}
	self.pinned_target_space.Clear()
	self.pinned_targets.Clear()
}

func (self *Query) _ClearPinnedSources() {
	for i := 0; i < self.pinned_source_space.Length(); i++ {
		self.in_pinned_source[self.pinned_source_space[i]] = false
	}
	self.pinned_source_space.Clear()
	self.pinned_sources.Clear()
}

// Computes distances from the current sources to all pinned targets: an
// upward sweep from the sources followed by a downward sweep over the
// pinned space in descending rank order. Read the results with
// GetDistancesToTargets.
func (self *Query) RunToPinnedTargets() error {
	if self.pinned_targets.Length() == 0 {
		return fmt.Errorf("no targets pinned")
	}
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it first")
	}
	cch := self.cch
	self._SortSpace(self.fwd_space)
	self._SweepForward()
	for i := 0; i < self.pinned_target_space.Length(); i++ {
		r := self.pinned_target_space[i]
		for a := cch.up_first[r]; a < cch.up_first[r+1]; a++ {
			h := cch.up_head[a]
			nd := _AddWeights(self.fwd_dist[h], self.metric.bwd[a])
			if nd < self.fwd_dist[r] {
				self.fwd_dist[r] = nd
			}
		}
	}
	self.state = _QUERY_RUN_TO_TRG
	return nil
}

// Computes distances from all pinned sources to the current targets,
// symmetric to RunToPinnedTargets. Read the results with
// GetDistancesToSources.
func (self *Query) RunToPinnedSources() error {
	if self.pinned_sources.Length() == 0 {
		return fmt.Errorf("no sources pinned")
	}
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it first")
	}
	cch := self.cch
	self._SortSpace(self.bwd_space)
	self._SweepBackward()
	for i := 0; i < self.pinned_source_space.Length(); i++ {
		r := self.pinned_source_space[i]
		for a := cch.up_first[r]; a < cch.up_first[r+1]; a++ {
			h := cch.up_head[a]
			nd := _AddWeights(self.bwd_dist[h], self.metric.fwd[a])
			if nd < self.bwd_dist[r] {
				self.bwd_dist[r] = nd
			}
		}
	}
	self.state = _QUERY_RUN_TO_SRC
	return nil
}

// Distances to the pinned targets, aligned with the pinned array.
// Unreachable targets hold INF_WEIGHT.
func (self *Query) GetDistancesToTargets() Array[int32] {
	out := NewArray[int32](self.pinned_targets.Length())
	if err := self.GetDistancesToTargetsInto(out); err != nil {
		panic(err.Error())
	}
	return out
}

// Allocation-free variant, out must have one entry per pinned target.
func (self *Query) GetDistancesToTargetsInto(out Array[int32]) error {
	if self.state != _QUERY_RUN_TO_TRG {
		return fmt.Errorf("query has not run to pinned targets")
	}
	if out.Length() != self.pinned_targets.Length() {
		return fmt.Errorf("output array has length %v, want %v", out.Length(), self.pinned_targets.Length())
	}
	for i := 0; i < self.pinned_targets.Length(); i++ {
		out[i] = self.fwd_dist[self.cch.rank[self.pinned_targets[i]]]
	}
	return nil
}

// Distances from the pinned sources to the targets, aligned with the
// pinned array. Unreachable sources hold INF_WEIGHT.
func (self *Query) GetDistancesToSources() Array[int32] {
	out := NewArray[int32](self.pinned_sources.Length())
	if err := self.GetDistancesToSourcesInto(out); err != nil {
		panic(err.Error())
	}
	return out
}

func (self *Query) GetDistancesToSourcesInto(out Array[int32]) error {
	if self.state != _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has not run to pinned sources")
	}
	if out.Length() != self.pinned_sources.Length() {
		return fmt.Errorf("output array has length %v, want %v", out.Length(), self.pinned_sources.Length())
	}
	for i := 0; i < self.pinned_sources.Length(); i++ {
		out[i] = self.bwd_dist[self.cch.rank[self.pinned_sources[i]]]
	}
	return nil
}
