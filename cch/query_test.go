package cch

import (
	"testing"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// query tests
//*******************************************

// 0 -> 1 -> 2 -> 3 with weights 10, 5, 7
func _LineMetric(t *testing.T) *Metric {
	node_order := Array[int32]{0, 1, 2, 3}
	tail := Array[int32]{0, 1, 2}
	head := Array[int32]{1, 2, 3}
	weights := Array[int32]{10, 5, 7}
	structure, err := NewCCH(node_order, tail, head, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metric, err := NewMetric(structure, weights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metric.Customize()
	return metric
}

func TestQueryLineGraph(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	query.AddSource(0, 0)
	query.AddTarget(3, 0)
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := query.Distance(); got != 22 {
		t.Errorf("distance: got %v, want 22", got)
	}
	nodes := query.NodePath()
	expected_nodes := []int32{0, 1, 2, 3}
	if len(nodes) != len(expected_nodes) {
		t.Fatalf("node path: got %v, want %v", nodes, expected_nodes)
	}
	for i := range expected_nodes {
		if nodes[i] != expected_nodes[i] {
			t.Fatalf("node path: got %v, want %v", nodes, expected_nodes)
		}
	}
	arcs := query.ArcPath()
	expected_arcs := []int32{0, 1, 2}
	if len(arcs) != len(expected_arcs) {
		t.Fatalf("arc path: got %v, want %v", arcs, expected_arcs)
	}
	for i := range expected_arcs {
		if arcs[i] != expected_arcs[i] {
			t.Fatalf("arc path: got %v, want %v", arcs, expected_arcs)
		}
	}
}

func TestQueryUnreachable(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	query.AddSource(3, 0)
	query.AddTarget(0, 0)
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := query.Distance(); got != INF_WEIGHT {
		t.Errorf("distance: got %v, want INF_WEIGHT", got)
	}
	if nodes := query.NodePath(); nodes.Length() != 0 {
		t.Errorf("node path of unreachable target not empty: %v", nodes)
	}
	if arcs := query.ArcPath(); arcs.Length() != 0 {
		t.Errorf("arc path of unreachable target not empty: %v", arcs)
	}
}

func TestQuerySameNode(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	query.AddSource(2, 0)
	query.AddTarget(2, 0)
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := query.Distance(); got != 0 {
		t.Errorf("distance: got %v, want 0", got)
	}
	nodes := query.NodePath()
	if nodes.Length() != 1 || nodes[0] != 2 {
		t.Errorf("node path: got %v, want [2]", nodes)
	}
	if arcs := query.ArcPath(); arcs.Length() != 0 {
		t.Errorf("arc path: got %v, want empty", arcs)
	}
}

func TestQueryWithoutEndpoints(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := query.Distance(); got != INF_WEIGHT {
		t.Errorf("distance: got %v, want INF_WEIGHT", got)
	}
}

func TestQueryOffsets(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	query.AddSource(0, 100)
	query.AddSource(1, 3)
	query.AddTarget(3, 2)
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3 + 5 + 7 + 2 over source 1 beats 100 + 22 + 2 over source 0
	if got := query.Distance(); got != 17 {
		t.Errorf("distance: got %v, want 17", got)
	}
	nodes := query.NodePath()
	if nodes.Length() != 3 || nodes[0] != 1 {
		t.Errorf("node path: got %v, want [1 2 3]", nodes)
	}
}

func TestQueryEndpointValidation(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	if err := query.AddSource(-1, 0); err == nil {
		t.Errorf("expected error for negative node")
	}
	if err := query.AddSource(4, 0); err == nil {
		t.Errorf("expected error for out of range node")
	}
	if err := query.AddTarget(0, -1); err == nil {
		t.Errorf("expected error for negative offset")
	}
	query.AddSource(0, 0)
	query.AddTarget(3, 0)
	query.Run()
	if err := query.AddSource(1, 0); err == nil {
		t.Errorf("expected error when adding a source after run")
	}
}

func TestQueryDistanceBeforeRunPanics(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	query.AddSource(0, 0)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for distance before run")
		}
	}()
	query.Distance()
}

func TestQueryReset(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	query.AddSource(0, 0)
	query.AddTarget(3, 0)
	query.Run()
	if got := query.Distance(); got != 22 {
		t.Fatalf("distance: got %v, want 22", got)
	}

	query.ResetSources()
	query.AddSource(1, 0)
	if err := query.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := query.Distance(); got != 12 {
		t.Errorf("distance after source reset: got %v, want 12", got)
	}

	if err := query.Reset(metric); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	query.AddSource(2, 0)
	query.AddTarget(3, 0)
	query.Run()
	if got := query.Distance(); got != 7 {
		t.Errorf("distance after full reset: got %v, want 7", got)
	}
}

func TestQueryMultiSourceMultiTarget(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	sources := []int32{0, 5}
	targets := []int32{10, 15}
	expected := INF_WEIGHT
	for _, s := range sources {
		dist := _Dijkstra(node_count, tail, head, weights, s)
		for _, trg := range targets {
			if dist[trg] < expected {
				expected = dist[trg]
			}
		}
	}
	query := NewQuery(metric)
	for _, s := range sources {
		query.AddSource(s, 0)
	}
	for _, trg := range targets {
		query.AddTarget(trg, 0)
	}
	query.Run()
	if got := query.Distance(); got != expected {
		t.Errorf("distance: got %v, want %v", got, expected)
	}
}

func TestQueryPathWeightsAddUp(t *testing.T) {
	metric, _, _, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	for source := int32(0); source < node_count-1; source += 4 {
		for target := int32(1); target < node_count; target += 5 {
			query := NewQuery(metric)
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

//*******************************************
// pinned tests
//*******************************************

func TestQueryPinnedTargets(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	targets := Array[int32]{3, 7, 12, 15, 16}

	query := NewQuery(metric)
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

func TestQueryPinnedTargetsInto(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	targets := Array[int32]{1, 8, 14}
	query := NewQuery(metric)
	query.PinTargets(targets)
	query.AddSource(2, 0)
	if err := query.RunToPinnedTargets(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := NewArray[int32](3)
	if err := query.GetDistancesToTargetsInto(out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := _Dijkstra(metric.CCH().NodeCount(), tail, head, weights, 2)
	for i := 0; i < targets.Length(); i++ {
		if out[i] != expected[targets[i]] {
			t.Errorf("target %v: got %v, want %v", targets[i], out[i], expected[targets[i]])
		}
	}
	short := NewArray[int32](2)
	if err := query.GetDistancesToTargetsInto(short); err == nil {
		t.Errorf("expected error for wrong output length")
	}
}

func TestQueryPinnedSources(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	sources := Array[int32]{0, 5, 9, 16}

	query := NewQuery(metric)
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

func TestQueryPinnedValidation(t *testing.T) {
	metric := _LineMetric(t)
	query := NewQuery(metric)
	if err := query.PinTargets(Array[int32]{0, 9}); err == nil {
		t.Errorf("expected error for out of range target")
	}
	if err := query.RunToPinnedTargets(); err == nil {
		t.Errorf("expected error without pinned targets")
	}
}
