package ch

import (
	"path/filepath"
	"testing"

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

func _TestHierarchy(t *testing.T) (*Hierarchy, Array[int32], Array[int32], Array[int32]) {
	node_count, tail, head, weights := _TestGraph()
	hierarchy, err := BuildHierarchy(node_count, tail, head, weights, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return hierarchy, tail, head, weights
}

//*******************************************
// tests
//*******************************************

func TestBuildHierarchyDistances(t *testing.T) {
	hierarchy, tail, head, weights := _TestHierarchy(t)
	node_count := hierarchy.NodeCount()
	for source := int32(0); source < node_count; source += 3 {
		expected := _Dijkstra(node_count, tail, head, weights, source)
		for target := int32(0); target < node_count; target += 2 {
			query := NewQuery(hierarchy)
			query.AddSource(source, 0)
			query.AddTarget(target, 0)
			if err := query.Run(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := query.Distance(); got != expected[target] {
				t.Errorf("distance %v -> %v: got %v, want %v", source, target, got, expected[target])
			}
		}
	}
}

func TestBuildHierarchyValidation(t *testing.T) {
	if _, err := BuildHierarchy(2, Array[int32]{0, 1}, Array[int32]{1}, Array[int32]{1, 1}, nil, 0); err == nil {
		t.Errorf("expected error for mismatched arrays")
	}
	if _, err := BuildHierarchy(2, Array[int32]{0}, Array[int32]{5}, Array[int32]{1}, nil, 0); err == nil {
		t.Errorf("expected error for out of range head")
	}
	if _, err := BuildHierarchy(2, Array[int32]{0}, Array[int32]{1}, Array[int32]{-1}, nil, 0); err == nil {
		t.Errorf("expected error for negative weight")
	}
}

func TestHierarchyPaths(t *testing.T) {
	hierarchy, _, _, weights := _TestHierarchy(t)
	node_count := hierarchy.NodeCount()
	for source := int32(0); source < node_count-1; source += 4 {
		for target := int32(1); target < node_count; target += 5 {
			query := NewQuery(hierarchy)
			query.AddSource(source, 0)
			query.AddTarget(target, 0)
			query.Run()
			dist := query.Distance()
			arcs := query.ArcPath()
			if dist == INF_WEIGHT {
				if arcs.Length() != 0 {
					t.Errorf("%v -> %v: unreachable but arc path %v", source, target, arcs)
				}
				continue
			}
			sum := int32(0)
			for i := 0; i < arcs.Length(); i++ {
				sum += weights[arcs[i]]
			}
			if sum != dist {
				t.Errorf("%v -> %v: arc path weights sum to %v, distance is %v", source, target, sum, dist)
			}
			nodes := query.NodePath()
			if nodes[0] != source || nodes[nodes.Length()-1] != target {
				t.Errorf("%v -> %v: node path endpoints %v, %v", source, target, nodes[0], nodes[nodes.Length()-1])
			}
		}
	}
}

func TestHierarchyPersistence(t *testing.T) {
	hierarchy, tail, head, weights := _TestHierarchy(t)
	file := filepath.Join(t.TempDir(), "graph.ch")
	if err := hierarchy.Save(file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadHierarchy(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.NodeCount() != hierarchy.NodeCount() || loaded.ArcCount() != hierarchy.ArcCount() {
		t.Fatalf("loaded hierarchy differs: %v nodes, %v arcs", loaded.NodeCount(), loaded.ArcCount())
	}
	node_count := loaded.NodeCount()
	for source := int32(0); source < node_count; source += 5 {
		expected := _Dijkstra(node_count, tail, head, weights, source)
		for target := int32(0); target < node_count; target += 3 {
			query := NewQuery(loaded)
			query.AddSource(source, 0)
			query.AddTarget(target, 0)
			query.Run()
			if got := query.Distance(); got != expected[target] {
				t.Errorf("distance %v -> %v after reload: got %v, want %v", source, target, got, expected[target])
			}
		}
	}
}

func TestLoadHierarchyRejectsGarbage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "garbage.ch")
	writer := NewBufferWriter()
	Write(writer, int32(12345))
	Write(writer, int32(0))
	if err := WriteBufferToFile(writer, file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := LoadHierarchy(file); err == nil {
		t.Errorf("expected error for wrong magic")
	}
	if _, err := LoadHierarchy(filepath.Join(t.TempDir(), "missing.ch")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestHierarchyPinnedTargets(t *testing.T) {
	hierarchy, tail, head, weights := _TestHierarchy(t)
	node_count := hierarchy.NodeCount()
	targets := Array[int32]{3, 7, 12, 15, 16}
	query := NewQuery(hierarchy)
	if err := query.PinTargets(targets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for source := int32(0); source < node_count; source += 3 {
		query.ResetSources()
		query.AddSource(source, 0)
		if err := query.RunToPinnedTargets(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := query.GetDistancesToTargets()
		expected := _Dijkstra(node_count, tail, head, weights, source)
		for i := 0; i < targets.Length(); i++ {
			if got[i] != expected[targets[i]] {
				t.Errorf("source %v, target %v: got %v, want %v", source, targets[i], got[i], expected[targets[i]])
			}
		}
	}
}

func TestHierarchyPinnedSources(t *testing.T) {
	hierarchy, tail, head, weights := _TestHierarchy(t)
	node_count := hierarchy.NodeCount()
	sources := Array[int32]{0, 5, 9, 16}
	query := NewQuery(hierarchy)
	if err := query.PinSources(sources); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for target := int32(0); target < node_count; target += 4 {
		query.ResetTargets()
		query.AddTarget(target, 0)
		if err := query.RunToPinnedSources(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := query.GetDistancesToSources()
		for i := 0; i < sources.Length(); i++ {
			expected := _Dijkstra(node_count, tail, head, weights, sources[i])
			if got[i] != expected[target] {
				t.Errorf("source %v, target %v: got %v, want %v", sources[i], target, got[i], expected[target])
			}
		}
	}
}

func TestHierarchyMaxPopCount(t *testing.T) {
	// a tiny pop budget forces extra shortcuts but must not change results
	node_count, tail, head, weights := _TestGraph()
	hierarchy, err := BuildHierarchy(node_count, tail, head, weights, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for source := int32(0); source < node_count; source += 4 {
		expected := _Dijkstra(node_count, tail, head, weights, source)
		for target := int32(0); target < node_count; target += 3 {
			query := NewQuery(hierarchy)
			query.AddSource(source, 0)
			query.AddTarget(target, 0)
			query.Run()
			if got := query.Distance(); got != expected[target] {
				t.Errorf("distance %v -> %v: got %v, want %v", source, target, got, expected[target])
			}
		}
	}
}
