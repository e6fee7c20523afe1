package ch

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

type _QFlag struct {
	dist    int32
	pred    int32
	visited bool
}

// Query answers shortest path requests on a contraction hierarchy with a
// bidirectional upward Dijkstra. The API mirrors the customizable query:
// sources and targets carry distance offsets, pinned node sets allow
// batched one-to-many and many-to-one runs. Not safe for concurrent use.
type Query struct {
	hierarchy *Hierarchy
	state     _QueryState

	fwd_flags Flags[_QFlag]
	bwd_flags Flags[_QFlag]
	heap      PriorityQueue[int32, int32]

	sources List[Tuple[int32, int32]] // (node, offset)
	targets List[Tuple[int32, int32]]

	pinned_targets     List[int32]
	target_sweep_arcs  List[int32] // descending by rank of the arc tail
	pinned_sources     List[int32]
	source_sweep_arcs  List[int32] // descending by rank of the arc head

	best_dist int32
	meet_node int32
}

func NewQuery(hierarchy *Hierarchy) *Query {
	return &Query{
		hierarchy:         hierarchy,
		fwd_flags:         NewFlags[_QFlag](hierarchy.node_count, _QFlag{dist: INF_WEIGHT, pred: -1}),
		bwd_flags:         NewFlags[_QFlag](hierarchy.node_count, _QFlag{dist: INF_WEIGHT, pred: -1}),
		heap:              NewPriorityQueue[int32, int32](128),
		sources:           NewList[Tuple[int32, int32]](4),
		targets:           NewList[Tuple[int32, int32]](4),
		pinned_targets:    NewList[int32](16),
		target_sweep_arcs: NewList[int32](64),
		pinned_sources:    NewList[int32](16),
		source_sweep_arcs: NewList[int32](64),
		best_dist:         INF_WEIGHT,
		meet_node:         -1,
	}
}

// Rebinds the query to a hierarchy and clears all state including pins.
func (self *Query) Reset(hierarchy *Hierarchy) {
	if hierarchy.node_count != self.hierarchy.node_count {
		self.fwd_flags = NewFlags[_QFlag](hierarchy.node_count, _QFlag{dist: INF_WEIGHT, pred: -1})
		self.bwd_flags = NewFlags[_QFlag](hierarchy.node_count, _QFlag{dist: INF_WEIGHT, pred: -1})
	}
	self.hierarchy = hierarchy
	self.ResetSources()
	self.ResetTargets()
	self.pinned_targets.Clear()
	self.target_sweep_arcs.Clear()
	self.pinned_sources.Clear()
	self.source_sweep_arcs.Clear()
	self.state = _QUERY_IDLE
}

func (self *Query) ResetSources() {
	self.fwd_flags.Reset()
	self.sources.Clear()
	self.best_dist = INF_WEIGHT
	self.meet_node = -1
	if self.targets.Length() > 0 {
		self.state = _QUERY_ENDPOINTS
	} else {
		self.state = _QUERY_IDLE
	}
}

func (self *Query) ResetTargets() {
	self.bwd_flags.Reset()
	self.targets.Clear()
	self.best_dist = INF_WEIGHT
	self.meet_node = -1
	if self.sources.Length() > 0 {
		self.state = _QUERY_ENDPOINTS
	} else {
		self.state = _QUERY_IDLE
	}
}

func (self *Query) AddSource(node int32, dist int32) error {
	if err := self._CheckEndpoint(node, dist); err != nil {
		return err
	}
	self.sources.Add(MakeTuple(node, dist))
	self.state = _QUERY_ENDPOINTS
	return nil
}

func (self *Query) AddTarget(node int32, dist int32) error {
	if err := self._CheckEndpoint(node, dist); err != nil {
		return err
	}
	self.targets.Add(MakeTuple(node, dist))
	self.state = _QUERY_ENDPOINTS
	return nil
}

func (self *Query) _CheckEndpoint(node int32, dist int32) error {
	if node < 0 || node >= self.hierarchy.node_count {
		return fmt.Errorf("node %v out of range [0, %v)", node, self.hierarchy.node_count)
	}
	if dist < 0 || dist == INF_WEIGHT {
		return fmt.Errorf("invalid distance offset %v", dist)
	}
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it before adding endpoints")
	}
	return nil
}

//*******************************************
// one-to-one run
//*******************************************

// Runs both upward searches to exhaustion, the best distance is the
// minimum over all nodes settled from both sides.
func (self *Query) Run() error {
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it first")
	}
	self._RunForward()
	self._RunBackwardWithMeet()
	self.state = _QUERY_RUN
	return nil
}

func (self *Query) _RunForward() {
	self.heap.Clear()
	for i := 0; i < self.sources.Length(); i++ {
		node, offset := self.sources[i].A, self.sources[i].B
		flag := self.fwd_flags.Get(node)
		if offset < flag.dist {
			flag.dist = offset
		}
		self.heap.Enqueue(node, flag.dist)
	}
	h := self.hierarchy
	for self.heap.Len() > 0 {
		curr, _ := self.heap.Dequeue()
		flag := self.fwd_flags.Get(curr)
		if flag.visited {
			continue
		}
		flag.visited = true
		curr_dist := flag.dist
		for i := h.fwd_first[curr]; i < h.fwd_first[curr+1]; i++ {
			arc_id := h.fwd_arcs[i]
			arc := h.arcs[arc_id]
			other_flag := self.fwd_flags.Get(arc.To)
			new_dist := curr_dist + arc.Weight
			if new_dist < other_flag.dist {
				other_flag.dist = new_dist
				other_flag.pred = arc_id
				self.heap.Enqueue(arc.To, new_dist)
			}
		}
	}
}

func (self *Query) _RunBackwardWithMeet() {
	self.heap.Clear()
	self.best_dist = INF_WEIGHT
	self.meet_node = -1
	for i := 0; i < self.targets.Length(); i++ {
		node, offset := self.targets[i].A, self.targets[i].B
		flag := self.bwd_flags.Get(node)
		if offset < flag.dist {
			flag.dist = offset
		}
		self.heap.Enqueue(node, flag.dist)
	}
	h := self.hierarchy
	for self.heap.Len() > 0 {
		curr, _ := self.heap.Dequeue()
		flag := self.bwd_flags.Get(curr)
		if flag.visited {
			continue
		}
		flag.visited = true
		curr_dist := flag.dist
		fwd_dist := self.fwd_flags.Get(curr).dist
		if fwd_dist != INF_WEIGHT {
			if d := fwd_dist + curr_dist; d < self.best_dist {
				self.best_dist = d
				self.meet_node = curr
			}
		}
		for i := h.bwd_first[curr]; i < h.bwd_first[curr+1]; i++ {
			arc_id := h.bwd_arcs[i]
			arc := h.arcs[arc_id]
			other_flag := self.bwd_flags.Get(arc.From)
			new_dist := curr_dist + arc.Weight
			if new_dist < other_flag.dist {
				other_flag.dist = new_dist
				other_flag.pred = arc_id
				self.heap.Enqueue(arc.From, new_dist)
			}
		}
	}
}

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
	node := self.meet_node
	for {
		pred := self.fwd_flags.Get(node).pred
		if pred == -1 {
			break
		}
		fwd_chain.Add(pred)
		node = self.hierarchy.arcs[pred].From
	}
	for i := fwd_chain.Length() - 1; i >= 0; i-- {
		self._UnpackArc(fwd_chain[i], &path)
	}
	node = self.meet_node
	for {
		pred := self.bwd_flags.Get(node).pred
		if pred == -1 {
			break
		}
		self._UnpackArc(pred, &path)
		node = self.hierarchy.arcs[pred].To
	}
	return Array[int32](path)
}

// Node ids of the shortest path in travel order. Empty if unreachable, a
// single node if source and target coincide.
func (self *Query) NodePath() Array[int32] {
	arcs := self.ArcPath()
	if self.best_dist == INF_WEIGHT {
		return NewArray[int32](0)
	}
	if arcs.Length() == 0 {
		nodes := NewArray[int32](1)
		nodes[0] = self.meet_node
		return nodes
	}
	nodes := NewArray[int32](arcs.Length() + 1)
	// unpacked ids are original input arcs, endpoints are stored on them
	first := self.hierarchy.arcs[self._FindArc(arcs[0])]
	nodes[0] = first.From
	for i := 0; i < arcs.Length(); i++ {
		nodes[i+1] = self.hierarchy.arcs[self._FindArc(arcs[i])].To
	}
	return nodes
}

// Maps an original input arc id back to its hierarchy arc. Original arcs
// are inserted first and in input order, self-loops excepted.
func (self *Query) _FindArc(source int32) int32 {
	lo := int32(0)
	hi := int32(self.hierarchy.arcs.Length())
	for lo < hi {
		mid := (lo + hi) / 2
		if self.hierarchy.arcs[mid].Source == -1 || self.hierarchy.arcs[mid].Source >= source {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// Expands a hierarchy arc into original arc ids in travel order.
func (self *Query) _UnpackArc(arc_id int32, path *List[int32]) {
	arc := self.hierarchy.arcs[arc_id]
	if arc.Source != -1 {
		path.Add(arc.Source)
		return
	}
	self._UnpackArc(arc.ChildA, path)
	self._UnpackArc(arc.ChildB, path)
}

//*******************************************
// pinned targets / sources
//*******************************************

// Pins a set of target nodes: collects the nodes that can reach a target
// on a downward path and the arcs of a descending sweep over them.
func (self *Query) PinTargets(targets Array[int32]) error {
	for i := 0; i < targets.Length(); i++ {
		if targets[i] < 0 || targets[i] >= self.hierarchy.node_count {
			return fmt.Errorf("target %v out of range [0, %v)", targets[i], self.hierarchy.node_count)
		}
	}
	self.pinned_targets.Clear()
	for i := 0; i < targets.Length(); i++ {
		self.pinned_targets.Add(targets[i])
	}
	self.target_sweep_arcs = self._CollectSweepArcs(targets, true)
	return nil
}

func (self *Query) PinSources(sources Array[int32]) error {
	for i := 0; i < sources.Length(); i++ {
		if sources[i] < 0 || sources[i] >= self.hierarchy.node_count {
			return fmt.Errorf("source %v out of range [0, %v)", sources[i], self.hierarchy.node_count)
		}
	}
	self.pinned_sources.Clear()
	for i := 0; i < sources.Length(); i++ {
		self.pinned_sources.Add(sources[i])
	}
	self.source_sweep_arcs = self._CollectSweepArcs(sources, false)
	return nil
}

// BFS over the upward arcs entering (to_targets) or leaving the seed
// nodes, collecting every traversed arc. The result is sorted so that a
// linear sweep settles nodes top-down.
func (self *Query) _CollectSweepArcs(seeds Array[int32], to_targets bool) List[int32] {
	h := self.hierarchy
	visited := NewDict[int32, bool](seeds.Length() * 4)
	queue := NewQueue[int32]()
	for i := 0; i < seeds.Length(); i++ {
		if visited[seeds[i]] {
			continue
		}
		visited[seeds[i]] = true
		queue.Push(seeds[i])
	}
	arcs := NewList[int32](64)
	for {
		curr, ok := queue.Pop()
		if !ok {
			break
		}
		if to_targets {
			for i := h.bwd_first[curr]; i < h.bwd_first[curr+1]; i++ {
				arc_id := h.bwd_arcs[i]
				arcs.Add(arc_id)
				from := h.arcs[arc_id].From
				if !visited[from] {
					visited[from] = true
					queue.Push(from)
				}
			}
		} else {
			for i := h.fwd_first[curr]; i < h.fwd_first[curr+1]; i++ {
				arc_id := h.fwd_arcs[i]
				arcs.Add(arc_id)
				to := h.arcs[arc_id].To
				if !visited[to] {
					visited[to] = true
					queue.Push(to)
				}
			}
		}
	}
	if to_targets {
		sort.Slice(arcs, func(i, j int) bool {
			return h.ranks[h.arcs[arcs[i]].From] > h.ranks[h.arcs[arcs[j]].From]
		})
	} else {
		sort.Slice(arcs, func(i, j int) bool {
			return h.ranks[h.arcs[arcs[i]].To] > h.ranks[h.arcs[arcs[j]].To]
		})
	}
	return arcs
}

// Distances from the current sources to all pinned targets: upward
// Dijkstra followed by the descending sweep.
func (self *Query) RunToPinnedTargets() error {
	if self.pinned_targets.Length() == 0 {
		return fmt.Errorf("no targets pinned")
	}
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it first")
	}
	self._RunForward()
	h := self.hierarchy
	for i := 0; i < self.target_sweep_arcs.Length(); i++ {
		arc := h.arcs[self.target_sweep_arcs[i]]
		from_dist := self.fwd_flags.Get(arc.From).dist
		if from_dist == INF_WEIGHT {
			continue
		}
		to_flag := self.fwd_flags.Get(arc.To)
		if new_dist := from_dist + arc.Weight; new_dist < to_flag.dist {
			to_flag.dist = new_dist
		}
	}
	self.state = _QUERY_RUN_TO_TRG
	return nil
}

// Distances from all pinned sources to the current targets, symmetric to
// RunToPinnedTargets.
func (self *Query) RunToPinnedSources() error {
	if self.pinned_sources.Length() == 0 {
		return fmt.Errorf("no sources pinned")
	}
	if self.state == _QUERY_RUN || self.state == _QUERY_RUN_TO_TRG || self.state == _QUERY_RUN_TO_SRC {
		return fmt.Errorf("query has already run, reset it first")
	}
	self._RunBackward()
	h := self.hierarchy
	for i := 0; i < self.source_sweep_arcs.Length(); i++ {
		arc := h.arcs[self.source_sweep_arcs[i]]
		to_dist := self.bwd_flags.Get(arc.To).dist
		if to_dist == INF_WEIGHT {
			continue
		}
		from_flag := self.bwd_flags.Get(arc.From)
		if new_dist := to_dist + arc.Weight; new_dist < from_flag.dist {
			from_flag.dist = new_dist
		}
	}
	self.state = _QUERY_RUN_TO_SRC
	return nil
}

func (self *Query) _RunBackward() {
	self.heap.Clear()
	for i := 0; i < self.targets.Length(); i++ {
		node, offset := self.targets[i].A, self.targets[i].B
		flag := self.bwd_flags.Get(node)
		if offset < flag.dist {
			flag.dist = offset
		}
		self.heap.Enqueue(node, flag.dist)
	}
	h := self.hierarchy
	for self.heap.Len() > 0 {
		curr, _ := self.heap.Dequeue()
		flag := self.bwd_flags.Get(curr)
		if flag.visited {
			continue
		}
		flag.visited = true
		curr_dist := flag.dist
		for i := h.bwd_first[curr]; i < h.bwd_first[curr+1]; i++ {
			arc_id := h.bwd_arcs[i]
			arc := h.arcs[arc_id]
			other_flag := self.bwd_flags.Get(arc.From)
			new_dist := curr_dist + arc.Weight
			if new_dist < other_flag.dist {
				other_flag.dist = new_dist
				other_flag.pred = arc_id
				self.heap.Enqueue(arc.From, new_dist)
			}
		}
	}
}

// Distances to the pinned targets, aligned with the pinned array.
func (self *Query) GetDistancesToTargets() Array[int32] {
	out := NewArray[int32](self.pinned_targets.Length())
	if err := self.GetDistancesToTargetsInto(out); err != nil {
		panic(err.Error())
	}
	return out
}

func (self *Query) GetDistancesToTargetsInto(out Array[int32]) error {
	if self.state != _QUERY_RUN_TO_TRG {
		return fmt.Errorf("query has not run to pinned targets")
	}
	if out.Length() != self.pinned_targets.Length() {
		return fmt.Errorf("output array has length %v, want %v", out.Length(), self.pinned_targets.Length())
	}
	for i := 0; i < self.pinned_targets.Length(); i++ {
		out[i] = self.fwd_flags.Get(self.pinned_targets[i]).dist
	}
	return nil
}

// Distances from the pinned sources, aligned with the pinned array.
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
		out[i] = self.bwd_flags.Get(self.pinned_sources[i]).dist
	}
	return nil
}
