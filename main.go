package main

import (
	"fmt"
	"net/http"
	"os"

	"golang.org/x/exp/slog"

	"github.com/ttpr0/go-cch/cch"
	"github.com/ttpr0/go-cch/ch"
	"github.com/ttpr0/go-cch/geo"
	"github.com/ttpr0/go-cch/graph"
	"github.com/ttpr0/go-cch/order"
	"github.com/ttpr0/go-cch/parser"
	. "github.com/ttpr0/go-cch/util"
)

func main() {
	config_file := "config.yml"
	if len(os.Args) > 1 {
		config_file = os.Args[1]
	}
	config, err := ReadConfig(config_file)
	if err != nil {
		fmt.Println("failed to read config:", err)
		os.Exit(1)
	}
	InitLogging(config.Logging.Level)

	topology, coords, weights, err := parser.ParseGraph(config.Graph.Pbf)
	if err != nil {
		slog.Error("failed to parse graph", "error", err)
		os.Exit(1)
	}
	slog.Info("graph loaded", "nodes", topology.NodeCount(), "arcs", topology.ArcCount())
	adjacency := graph.BuildAdjacency(topology)
	isolated := 0
	for i := int32(0); i < topology.NodeCount(); i++ {
		if adjacency.GetNodeDegree(i, graph.FORWARD) == 0 && adjacency.GetNodeDegree(i, graph.BACKWARD) == 0 {
			isolated += 1
		}
	}
	if isolated > 0 {
		slog.Warn("graph contains isolated nodes", "count", isolated)
	}

	metric, err := _BuildMetric(config, topology, coords, weights)
	if err != nil {
		slog.Error("failed to build hierarchy", "error", err)
		os.Exit(1)
	}
	_ = _BuildClassicalCH(config, topology, weights)

	index := graph.NewNodeIndex(coords)
	routing := &RoutingHandler{metric: metric, index: index}
	matrix := &MatrixHandler{metric: metric, index: index}
	MapPost("/v1/routing", routing.Handle)
	MapPost("/v1/matrix", matrix.Handle)
	MapGet("/v1/health", func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	address := fmt.Sprintf("%s:%v", config.Server.Host, config.Server.Port)
	slog.Info("starting server", "address", address)
	if err := http.ListenAndServe(address, nil); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func _BuildMetric(config Config, topology *graph.Topology, coords Array[geo.Coord], weights Array[int32]) (*cch.Metric, error) {
	tail := NewArray[int32](int(topology.ArcCount()))
	head := NewArray[int32](int(topology.ArcCount()))
	for i := int32(0); i < topology.ArcCount(); i++ {
		tail[i] = topology.Tail(i)
		head[i] = topology.Head(i)
	}

	var node_order Array[int32]
	var err error
	if config.Build.Ordering == "degree" {
		node_order, err = order.ComputeOrderDegree(topology.NodeCount(), tail, head)
	} else {
		latitude := NewArray[float32](coords.Length())
		longitude := NewArray[float32](coords.Length())
		for i := 0; i < coords.Length(); i++ {
			latitude[i] = coords[i].Lat()
			longitude[i] = coords[i].Lon()
		}
		node_order, err = order.ComputeOrderInertial(topology.NodeCount(), tail, head, latitude, longitude)
	}
	if err != nil {
		return nil, err
	}

	structure, err := cch.NewCCH(node_order, tail, head, func(msg string) { slog.Info(msg) }, config.Build.FilterAlwaysInf)
	if err != nil {
		return nil, err
	}
	metric, err := cch.NewMetric(structure, weights)
	if err != nil {
		return nil, err
	}
	metric.ParallelCustomize(config.Build.ThreadCount)
	return metric, nil
}

// Builds (or loads) the classical hierarchy used as an offline artefact,
// nil if no cache file is configured.
func _BuildClassicalCH(config Config, topology *graph.Topology, weights Array[int32]) *ch.Hierarchy {
	if config.Graph.ChFile == "" {
		return nil
	}
	if hierarchy, err := ch.LoadHierarchy(config.Graph.ChFile); err == nil {
		slog.Info("loaded contraction hierarchy", "file", config.Graph.ChFile)
		return hierarchy
	}
	tail := NewArray[int32](int(topology.ArcCount()))
	head := NewArray[int32](int(topology.ArcCount()))
	for i := int32(0); i < topology.ArcCount(); i++ {
		tail[i] = topology.Tail(i)
		head[i] = topology.Head(i)
	}
	hierarchy, err := ch.BuildHierarchy(topology.NodeCount(), tail, head, weights, func(msg string) { slog.Info(msg) }, int32(config.Build.MaxPopCount))
	if err != nil {
		slog.Error("failed to build contraction hierarchy", "error", err)
		return nil
	}
	if err := hierarchy.Save(config.Graph.ChFile); err != nil {
		slog.Error("failed to save contraction hierarchy", "error", err)
	}
	return hierarchy
}
