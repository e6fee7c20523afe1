package order

import (
	"fmt"
	"sort"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// degree ordering
//*******************************************

// Computes a fast fallback elimination order sorting nodes ascending by
// (degree, id). The degree counts every arc endpoint occurrence of a node,
// tail or head. Returns the order as rank -> node.
func ComputeOrderDegree(node_count int32, tail Array[int32], head Array[int32]) (Array[int32], error) {
	if tail.Length() != head.Length() {
		return nil, fmt.Errorf("tail and head arrays differ in length: %v != %v", tail.Length(), head.Length())
	}

	degrees := NewArray[int32](int(node_count))
	for i := 0; i < tail.Length(); i++ {
		if tail[i] < 0 || tail[i] >= node_count {
			return nil, fmt.Errorf("arc %v: tail %v out of range [0, %v)", i, tail[i], node_count)
		}
		if head[i] < 0 || head[i] >= node_count {
			return nil, fmt.Errorf("arc %v: head %v out of range [0, %v)", i, head[i], node_count)
		}
		degrees[tail[i]] += 1
		degrees[head[i]] += 1
	}

	nodes := NewArray[int32](int(node_count))
	for i := 0; i < int(node_count); i++ {
		nodes[i] = int32(i)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a := nodes[i]
		b := nodes[j]
		if degrees[a] != degrees[b] {
			return degrees[a] < degrees[b]
		}
		return a < b
	})

	return nodes, nil
}
