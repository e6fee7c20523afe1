package order

import (
	"fmt"
	"sort"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// inertial nested dissection
//*******************************************

// subsets below this size are ordered directly
const dissection_cutoff = 64

// fraction of nodes fixed as sources resp. sinks of the flow problem
const flow_balance = 0.25

// Computes a fill-in reducing nested dissection order using inertial-flow
// separators. Arcs are treated as undirected; latitude/longitude must hold
// one entry per node. Returns the order as rank -> node: separator nodes of
// the top-level cut receive the highest ranks.
func ComputeOrderInertial(node_count int32, tail Array[int32], head Array[int32], latitude Array[float32], longitude Array[float32]) (Array[int32], error) {
	if tail.Length() != head.Length() {
		return nil, fmt.Errorf("tail and head arrays differ in length: %v != %v", tail.Length(), head.Length())
	}
	if latitude.Length() != int(node_count) {
		return nil, fmt.Errorf("latitude array has length %v, want %v", latitude.Length(), node_count)
	}
	if longitude.Length() != int(node_count) {
		return nil, fmt.Errorf("longitude array has length %v, want %v", longitude.Length(), node_count)
	}
	for i := 0; i < tail.Length(); i++ {
		if tail[i] < 0 || tail[i] >= node_count {
			return nil, fmt.Errorf("arc %v: tail %v out of range [0, %v)", i, tail[i], node_count)
		}
		if head[i] < 0 || head[i] >= node_count {
			return nil, fmt.Errorf("arc %v: head %v out of range [0, %v)", i, head[i], node_count)
		}
	}

	// undirected adjacency over all nodes
	adj_first := NewArray[int32](int(node_count) + 1)
	for i := 0; i < tail.Length(); i++ {
		if tail[i] == head[i] {
			continue
		}
		adj_first[tail[i]+1] += 1
		adj_first[head[i]+1] += 1
	}
	for i := 0; i < int(node_count); i++ {
		adj_first[i+1] += adj_first[i]
	}
	adj_nodes := NewArray[int32](int(adj_first[node_count]))
	offsets := NewArray[int32](int(node_count))
	for i := 0; i < tail.Length(); i++ {
		if tail[i] == head[i] {
			continue
		}
		adj_nodes[adj_first[tail[i]]+offsets[tail[i]]] = head[i]
		offsets[tail[i]] += 1
		adj_nodes[adj_first[head[i]]+offsets[head[i]]] = tail[i]
		offsets[head[i]] += 1
	}

	ctx := &_DissectionContext{
		adj_first: adj_first,
		adj_nodes: adj_nodes,
		latitude:  latitude,
		longitude: longitude,
		order:     NewList[int32](int(node_count)),
	}

	nodes := NewArray[int32](int(node_count))
	for i := 0; i < int(node_count); i++ {
		nodes[i] = int32(i)
	}
	ctx._Dissect(nodes)

	return Array[int32](ctx.order), nil
}

type _DissectionContext struct {
	adj_first Array[int32]
	adj_nodes Array[int32]
	latitude  Array[float32]
	longitude Array[float32]
	order     List[int32]
}

func (self *_DissectionContext) _ForNeighbours(node int32, callback func(int32)) {
	for i := self.adj_first[node]; i < self.adj_first[node+1]; i++ {
		callback(self.adj_nodes[i])
	}
}

// Recursively orders the given node subset, appending to self.order.
func (self *_DissectionContext) _Dissect(nodes []int32) {
	if len(nodes) <= dissection_cutoff {
		self._OrderLeaf(nodes)
		return
	}

	separator := self._ComputeSeparator(nodes)
	is_separator := NewDict[int32, bool](len(separator))
	for _, node := range separator {
		is_separator[node] = true
	}

	// split the remainder into connected components
	visited := NewDict[int32, bool](len(nodes))
	in_subset := NewDict[int32, bool](len(nodes))
	for _, node := range nodes {
		in_subset[node] = true
	}
	parts := NewList[[]int32](2)
	for _, node := range nodes {
		if visited[node] || is_separator[node] {
			continue
		}
		part := NewList[int32](16)
		queue := NewQueue[int32]()
		queue.Push(node)
		visited[node] = true
		for {
			curr, ok := queue.Pop()
			if !ok {
				break
			}
			part.Add(curr)
			self._ForNeighbours(curr, func(other int32) {
				if !in_subset[other] || visited[other] || is_separator[other] {
					return
				}
				visited[other] = true
				queue.Push(other)
			})
		}
		parts.Add(part)
	}

	// a degenerate cut makes no progress, fall back to a direct ordering
	if parts.Length() == 1 && len(parts[0]) == len(nodes) {
		self._OrderLeaf(nodes)
		return
	}

	for _, part := range parts {
		self._Dissect(part)
	}
	self._OrderLeaf(separator)
}

// Orders a small subset ascending by (subset degree, id).
func (self *_DissectionContext) _OrderLeaf(nodes []int32) {
	in_subset := NewDict[int32, bool](len(nodes))
	for _, node := range nodes {
		in_subset[node] = true
	}
	degrees := NewDict[int32, int32](len(nodes))
	for _, node := range nodes {
		deg := int32(0)
		self._ForNeighbours(node, func(other int32) {
			if in_subset[other] {
				deg += 1
			}
		})
		degrees[node] = deg
	}
	sorted := make([]int32, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		a := sorted[i]
		b := sorted[j]
		if degrees[a] != degrees[b] {
			return degrees[a] < degrees[b]
		}
		return a < b
	})
	for _, node := range sorted {
		self.order.Add(node)
	}
}

// Computes a node separator of the subset via inertial flow: of four
// projection directions the one yielding the smallest saturated cut wins.
func (self *_DissectionContext) _ComputeSeparator(nodes []int32) []int32 {
	directions := [4][2]float64{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

	var best_separator []int32
	for _, dir := range directions {
		separator := self._FlowSeparator(nodes, dir)
		if best_separator == nil || len(separator) < len(best_separator) {
			best_separator = separator
		}
	}
	return best_separator
}

func (self *_DissectionContext) _FlowSeparator(nodes []int32, dir [2]float64) []int32 {
	// sort subset along the projection direction
	sorted := make([]int32, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		a := sorted[i]
		b := sorted[j]
		pa := dir[0]*float64(self.longitude[a]) + dir[1]*float64(self.latitude[a])
		pb := dir[0]*float64(self.longitude[b]) + dir[1]*float64(self.latitude[b])
		if pa != pb {
			return pa < pb
		}
		return a < b
	})

	side_count := (len(nodes)*int(flow_balance*100) + 99) / 100
	if side_count < 1 {
		side_count = 1
	}

	// local graph over the subset
	local_id := NewDict[int32, int32](len(nodes))
	for i, node := range sorted {
		local_id[node] = int32(i)
	}
	is_source := NewArray[bool](len(nodes))
	is_sink := NewArray[bool](len(nodes))
	for i := 0; i < side_count; i++ {
		is_source[i] = true
		is_sink[len(nodes)-1-i] = true
	}

	// directed residual arcs, two per undirected local edge
	arc_heads := NewList[int32](len(nodes) * 2)
	arc_caps := NewList[int8](len(nodes) * 2)
	local_first := NewArray[int32](len(nodes) + 1)
	// count local degrees first
	for i, node := range sorted {
		deg := int32(0)
		self._ForNeighbours(node, func(other int32) {
			if _, ok := local_id[other]; ok {
				deg += 1
			}
		})
		local_first[i+1] = local_first[i] + deg
	}
	local_arcs := make([]int32, local_first[len(nodes)])
	local_offsets := NewArray[int32](len(nodes))
	for i, node := range sorted {
		u := int32(i)
		self._ForNeighbours(node, func(other int32) {
			v, ok := local_id[other]
			if !ok {
				return
			}
			arc_id := int32(arc_heads.Length())
			arc_heads.Add(v)
			arc_caps.Add(1)
			local_arcs[local_first[u]+local_offsets[u]] = arc_id
			local_offsets[u] += 1
		})
	}

	// BFS augmenting until no source-sink path remains
	parent_arc := NewArray[int32](len(nodes))
	parent_node := NewArray[int32](len(nodes))
	visited := NewArray[int32](len(nodes))
	round := int32(0)
	for {
		round += 1
		queue := NewQueue[int32]()
		for i := 0; i < len(nodes); i++ {
			if is_source[i] {
				visited[i] = round
				parent_arc[i] = -1
				queue.Push(int32(i))
			}
		}
		found := int32(-1)
		for found == -1 {
			curr, ok := queue.Pop()
			if !ok {
				break
			}
			for i := local_first[curr]; i < local_first[curr+1]; i++ {
				arc := local_arcs[i]
				if arc_caps[arc] == 0 {
					continue
				}
				other := arc_heads[arc]
				if visited[other] == round {
					continue
				}
				visited[other] = round
				parent_arc[other] = arc
				parent_node[other] = curr
				if is_sink[other] {
					found = other
					break
				}
				queue.Push(other)
			}
		}
		if found == -1 {
			break
		}
		// augment along the path; reverse arcs pair up via shared edges
		curr := found
		for parent_arc[curr] != -1 {
			arc := parent_arc[curr]
			arc_caps[arc] -= 1
			rev := self._FindReverseArc(local_first, local_arcs, arc_heads, parent_node[curr], curr)
			if rev != -1 {
				arc_caps[rev] += 1
			}
			curr = parent_node[curr]
		}
	}

	// residual reachability from the sources
	round += 1
	queue := NewQueue[int32]()
	for i := 0; i < len(nodes); i++ {
		if is_source[i] {
			visited[i] = round
			queue.Push(int32(i))
		}
	}
	for {
		curr, ok := queue.Pop()
		if !ok {
			break
		}
		for i := local_first[curr]; i < local_first[curr+1]; i++ {
			arc := local_arcs[i]
			if arc_caps[arc] == 0 {
				continue
			}
			other := arc_heads[arc]
			if visited[other] == round {
				continue
			}
			visited[other] = round
			queue.Push(other)
		}
	}

	// reachable endpoints of saturated cut arcs form the separator
	separator := NewList[int32](16)
	in_separator := NewArray[bool](len(nodes))
	for u := 0; u < len(nodes); u++ {
		if visited[u] != round {
			continue
		}
		for i := local_first[u]; i < local_first[u+1]; i++ {
			arc := local_arcs[i]
			other := arc_heads[arc]
			if visited[other] == round {
				continue
			}
			if !in_separator[u] {
				in_separator[u] = true
				separator.Add(sorted[u])
			}
			break
		}
	}
	return separator
}

func (self *_DissectionContext) _FindReverseArc(local_first Array[int32], local_arcs []int32, arc_heads List[int32], from, to int32) int32 {
	for i := local_first[to]; i < local_first[to+1]; i++ {
		arc := local_arcs[i]
		if arc_heads[arc] == from {
			return arc
		}
	}
	return -1
}
