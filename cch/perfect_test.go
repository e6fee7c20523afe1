package cch

import (
	"testing"

	"github.com/ttpr0/go-cch/ch"
)

//*******************************************
// perfect ch tests
//*******************************************

func TestPerfectCHDistances(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	hierarchy, err := metric.BuildPerfectCH()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for source := int32(0); source < node_count; source += 3 {
		expected := _Dijkstra(node_count, tail, head, weights, source)
		for target := int32(0); target < node_count; target += 2 {
			query := ch.NewQuery(hierarchy)
			query.AddSource(source, 0)
			query.AddTarget(target, 0)
			if err := query.Run(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := query.Distance()
			want := expected[target]
			if want == INF_WEIGHT {
				want = ch.INF_WEIGHT
			}
			if got != want {
				t.Errorf("distance %v -> %v: got %v, want %v", source, target, got, want)
			}
		}
	}
}

func TestPerfectCHPaths(t *testing.T) {
	metric, _, _, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	hierarchy, err := metric.BuildPerfectCH()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for source := int32(0); source < node_count-1; source += 4 {
		for target := int32(1); target < node_count; target += 5 {
			query := ch.NewQuery(hierarchy)
			query.AddSource(source, 0)
			query.AddTarget(target, 0)
			query.Run()
			dist := query.Distance()
			if dist == ch.INF_WEIGHT {
				continue
			}
			arcs := query.ArcPath()
			sum := int32(0)
			for i := 0; i < arcs.Length(); i++ {
				sum += weights[arcs[i]]
			}
			if sum != dist {
				t.Errorf("%v -> %v: arc path weights sum to %v, distance is %v", source, target, sum, dist)
			}
			nodes := query.NodePath()
			if nodes.Length() > 0 && (nodes[0] != source || nodes[nodes.Length()-1] != target) {
				t.Errorf("%v -> %v: node path endpoints %v, %v", source, target, nodes[0], nodes[nodes.Length()-1])
			}
		}
	}
}

func TestPerfectCHDoesNotModifyMetric(t *testing.T) {
	metric, tail, head, weights := _TestMetric(t, false)
	node_count := metric.CCH().NodeCount()
	if _, err := metric.BuildPerfectCH(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := _Dijkstra(node_count, tail, head, weights, 1)
	for target := int32(0); target < node_count; target += 5 {
		got := _QueryDistance(t, metric, 1, target)
		if got != expected[target] {
			t.Errorf("distance 1 -> %v after extraction: got %v, want %v", target, got, expected[target])
		}
	}
}
