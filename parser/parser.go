package parser

import (
	"context"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"golang.org/x/exp/slog"

	"github.com/ttpr0/go-cch/geo"
	"github.com/ttpr0/go-cch/graph"
	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// osm parser
//*******************************************

var street_types = Dict[string, int32]{
	"motorway":       130,
	"motorway_link":  50,
	"trunk":          100,
	"trunk_link":     50,
	"primary":        90,
	"primary_link":   30,
	"secondary":      70,
	"secondary_link": 30,
	"tertiary":       50,
	"tertiary_link":  25,
	"residential":    30,
	"living_street":  10,
	"unclassified":   30,
	"road":           30,
	"service":        15,
}

type _OSMEdge struct {
	node_a int32
	node_b int32
	oneway bool
	speed  int32
	length float32
}

// Parses a driving graph from an osm.pbf file: topology, node coordinates
// and travel time weights in seconds. Ways without a drivable highway tag
// are skipped, oneway ways produce a single arc.
func ParseGraph(pbf string) (*graph.Topology, Array[geo.Coord], Array[int32], error) {
	osm_nodes := NewDict[int64, int32](1000)
	if err := _CollectWayNodes(pbf, osm_nodes); err != nil {
		return nil, nil, nil, err
	}
	slog.Info("finished first pass")
	coords := NewList[geo.Coord](osm_nodes.Length())
	edges := NewList[_OSMEdge](osm_nodes.Length())
	if err := _CollectNodes(pbf, osm_nodes, &coords); err != nil {
		return nil, nil, nil, err
	}
	slog.Info("finished second pass")
	if err := _CollectEdges(pbf, osm_nodes, coords, &edges); err != nil {
		return nil, nil, nil, err
	}
	slog.Info("finished third pass")

	tail := NewList[int32](edges.Length())
	head := NewList[int32](edges.Length())
	weight := NewList[int32](edges.Length())
	add_arc := func(from, to int32, edge _OSMEdge) {
		tail.Add(from)
		head.Add(to)
		w := int32(edge.length / (float32(edge.speed) / 3.6))
		if w < 1 {
			w = 1
		}
		weight.Add(w)
	}
	for i := 0; i < edges.Length(); i++ {
		edge := edges[i]
		add_arc(edge.node_a, edge.node_b, edge)
		if !edge.oneway {
			add_arc(edge.node_b, edge.node_a, edge)
		}
	}

	topology, err := graph.NewTopology(int32(coords.Length()), Array[int32](tail), Array[int32](head))
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Info("parsing finished")
	return topology, Array[geo.Coord](coords), Array[int32](weight), nil
}

// First pass, marks the osm ids of all nodes used by drivable ways.
func _CollectWayNodes(pbf string, osm_nodes Dict[int64, int32]) error {
	file, err := os.Open(pbf)
	if err != nil {
		return err
	}
	defer file.Close()
	scanner := osmpbf.New(context.Background(), file, 4)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	defer scanner.Close()
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !_IsDrivable(way) {
			continue
		}
		for _, node := range way.Nodes {
			osm_nodes[int64(node.ID)] = -1
		}
	}
	return scanner.Err()
}

// Second pass, assigns graph node ids and gathers coordinates.
func _CollectNodes(pbf string, osm_nodes Dict[int64, int32], coords *List[geo.Coord]) error {
	file, err := os.Open(pbf)
	if err != nil {
		return err
	}
	defer file.Close()
	scanner := osmpbf.New(context.Background(), file, 4)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	defer scanner.Close()
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if !osm_nodes.ContainsKey(int64(node.ID)) {
			continue
		}
		osm_nodes[int64(node.ID)] = int32(coords.Length())
		coords.Add(geo.Coord{float32(node.Lon), float32(node.Lat)})
	}
	return scanner.Err()
}

// Third pass, splits ways into edges between consecutive nodes.
func _CollectEdges(pbf string, osm_nodes Dict[int64, int32], coords List[geo.Coord], edges *List[_OSMEdge]) error {
	file, err := os.Open(pbf)
	if err != nil {
		return err
	}
	defer file.Close()
	scanner := osmpbf.New(context.Background(), file, 4)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	defer scanner.Close()
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !_IsDrivable(way) {
			continue
		}
		speed := street_types[way.Tags.Find("highway")]
		oneway := way.Tags.Find("oneway") == "yes"
		for i := 0; i < len(way.Nodes)-1; i++ {
			node_a, ok_a := osm_nodes[int64(way.Nodes[i].ID)]
			node_b, ok_b := osm_nodes[int64(way.Nodes[i+1].ID)]
			if !ok_a || !ok_b || node_a == -1 || node_b == -1 {
				continue
			}
			edges.Add(_OSMEdge{
				node_a: node_a,
				node_b: node_b,
				oneway: oneway,
				speed:  speed,
				length: float32(geo.HaversineDist(coords[node_a], coords[node_b])),
			})
		}
	}
	return scanner.Err()
}

func _IsDrivable(way *osm.Way) bool {
	if len(way.Nodes) < 2 {
		return false
	}
	return street_types.ContainsKey(way.Tags.Find("highway"))
}
