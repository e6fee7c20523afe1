package cch

import (
	"testing"

	"github.com/ttpr0/go-cch/order"
	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// test helpers
//*******************************************

// 4x4 grid with asymmetric weights, some reverse arcs missing and one
// isolated extra node (16).
func _TestGraph() (int32, Array[int32], Array[int32], Array[int32]) {
	node_count := int32(17)
	tail := NewList[int32](64)
	head := NewList[int32](64)
	weight := NewList[int32](64)
	add := func(a, b int32) {
		tail.Add(a)
		head.Add(b)
		weight.Add((a*7+b*13)%20 + 1)
	}
	for y := int32(0); y < 4; y++ {
		for x := int32(0); x < 4; x++ {
			node := y*4 + x
			if x < 3 {
				add(node, node+1)
				if (node+x)%5 != 0 {
					add(node+1, node)
				}
			}
			if y < 3 {
				add(node, node+4)
				if (node+y)%4 != 0 {
					add(node+4, node)
				}
			}
		}
	}
	return node_count, Array[int32](tail), Array[int32](head), Array[int32](weight)
}

func _TestOrder(t *testing.T, node_count int32, tail Array[int32], head Array[int32]) Array[int32] {
	node_order, err := order.ComputeOrderDegree(node_count, tail, head)
	if err != nil {
		t.Fatalf("unexpected order error: %v", err)
	}
	return node_order
}

func _TestMetric(t *testing.T, filter bool) (*Metric, Array[int32], Array[int32], Array[int32]) {
	node_count, tail, head, weights := _TestGraph()
	structure, err := NewCCH(_TestOrder(t, node_count, tail, head), tail, head, nil, filter)
	if err != nil {
		t.Fatalf("unexpected cch error: %v", err)
	}
	metric, err := NewMetric(structure, weights)
	if err != nil {
		t.Fatalf("unexpected metric error: %v", err)
	}
	metric.Customize()
	return metric, tail, head, weights
}

// plain one-to-all dijkstra as oracle
func _Dijkstra(node_count int32, tail Array[int32], head Array[int32], weights Array[int32], source int32) Array[int32] {
	first := NewArray[int32](int(node_count) + 1)
	for i := 0; i < tail.Length(); i++ {
		first[tail[i]+1] += 1
	}
	for i := 0; i < int(node_count); i++ {
		first[i+1] += first[i]
	}
	arcs := NewArray[int32](tail.Length())
	offsets := NewArray[int32](int(node_count))
	for i := 0; i < tail.Length(); i++ {
		arcs[first[tail[i]]+offsets[tail[i]]] = int32(i)
		offsets[tail[i]] += 1
	}

	dist := NewArray[int32](int(node_count))
	for i := range dist {
		dist[i] = INF_WEIGHT
	}
	visited := NewArray[bool](int(node_count))
	dist[source] = 0
	heap := NewPriorityQueue[int32, int32](16)
	heap.Enqueue(source, 0)
	for heap.Len() > 0 {
		curr, _ := heap.Dequeue()
		if visited[curr] {
			continue
		}
		visited[curr] = true
		for i := first[curr]; i < first[curr+1]; i++ {
			arc := arcs[i]
			other := head[arc]
			new_dist := dist[curr] + weights[arc]
			if new_dist < dist[other] {
				dist[other] = new_dist
				heap.Enqueue(other, new_dist)
			}
		}
	}
	return dist
}

func _QueryDistance(t *testing.T, metric *Metric, from, to int32) int32 {
	query := NewQuery(metric)
	if err := query.AddSource(from, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := query.AddTarget(to, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return query.Distance()
}

//*******************************************
// tests
//*******************************************

func TestCustomizeDistances(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	for source := int32(0); source < node_count; source += 3 {
		expected := _Dijkstra(node_count, tail, head, weights, source)
		for target := int32(0); target < node_count; target += 2 {
			got := _QueryDistance(t, metric, source, target)
			if got != expected[target] {
				t.Errorf("distance %v -> %v: got %v, want %v", source, target, got, expected[target])
			}
		}
	}
}

func TestParallelCustomizeMatchesSequential(t *testing.T) {
	node_count, tail, head, weights := _TestGraph()
	structure, err := NewCCH(_TestOrder(t, node_count, tail, head), tail, head, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sequential, _ := NewMetric(structure, weights)
	sequential.Customize()
	parallel, _ := NewMetric(structure, weights)
	parallel.ParallelCustomize(4)

	for a := 0; a < sequential.fwd.Length(); a++ {
		if sequential.fwd[a] != parallel.fwd[a] || sequential.bwd[a] != parallel.bwd[a] {
			t.Fatalf("arc %v: parallel (%v, %v) differs from sequential (%v, %v)",
				a, parallel.fwd[a], parallel.bwd[a], sequential.fwd[a], sequential.bwd[a])
		}
	}
}

func TestParallelCustomizeDefaultThreads(t *testing.T) {
	node_count, tail, head, weights := _TestGraph()
	structure, err := NewCCH(_TestOrder(t, node_count, tail, head), tail, head, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metric, _ := NewMetric(structure, weights)
	metric.ParallelCustomize(0)
	expected := _Dijkstra(node_count, tail, head, weights, 0)
	if got := _QueryDistance(t, metric, 0, 15); got != expected[15] {
		t.Errorf("distance 0 -> 15: got %v, want %v", got, expected[15])
	}
}

func TestMetricValidation(t *testing.T) {
	node_count, tail, head, weights := _TestGraph()
	structure, err := NewCCH(_TestOrder(t, node_count, tail, head), tail, head, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	short := NewArray[int32](weights.Length() - 1)
	if _, err := NewMetric(structure, short); err == nil {
		t.Errorf("expected error for wrong weights length")
	}
	bad := NewArray[int32](weights.Length())
	bad[3] = -5
	if _, err := NewMetric(structure, bad); err == nil {
		t.Errorf("expected error for negative weight")
	}
}

func TestMetricOwnsWeights(t *testing.T) {
	node_count, tail, head, weights := _TestGraph()
	structure, err := NewCCH(_TestOrder(t, node_count, tail, head), tail, head, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metric, _ := NewMetric(structure, weights)
	metric.Customize()
	before := _QueryDistance(t, metric, 0, 15)
	weights[0] = 1000
	metric.Customize()
	after := _QueryDistance(t, metric, 0, 15)
	if before != after {
		t.Errorf("caller mutation leaked into the metric: %v != %v", before, after)
	}
}

func TestAddWeightsSaturates(t *testing.T) {
	if _AddWeights(INF_WEIGHT, 5) != INF_WEIGHT {
		t.Errorf("expected inf to absorb")
	}
	if _AddWeights(5, INF_WEIGHT) != INF_WEIGHT {
		t.Errorf("expected inf to absorb")
	}
	if _AddWeights(INF_WEIGHT-1, INF_WEIGHT-1) != INF_WEIGHT {
		t.Errorf("expected saturation at inf")
	}
	if _AddWeights(3, 4) != 7 {
		t.Errorf("expected plain addition")
	}
}
