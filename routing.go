package main

import (
	"net/http"

	"golang.org/x/exp/slog"

	"github.com/ttpr0/go-cch/cch"
	"github.com/ttpr0/go-cch/geo"
	"github.com/ttpr0/go-cch/graph"
)

//*******************************************
// routing handler
//*******************************************

type RoutingRequest struct {
	// (lon, lat)
	Start [2]float32 `json:"start"`
	End   [2]float32 `json:"end"`
}

type RoutingResponse struct {
	// travel time in seconds, -1 if unreachable
	Distance int32   `json:"distance"`
	Nodes    []int32 `json:"nodes"`
	Arcs     []int32 `json:"arcs"`
}

type RoutingHandler struct {
	metric *cch.Metric
	index  *graph.NodeIndex
}

func (self *RoutingHandler) Handle(w http.ResponseWriter, r *http.Request) {
	request, err := ReadRequestBody[RoutingRequest](r)
	if err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	start := self.index.GetClosestNode(geo.Coord(request.Start))
	if !start.HasValue() {
		WriteError(w, "no node near start location", http.StatusBadRequest)
		return
	}
	end := self.index.GetClosestNode(geo.Coord(request.End))
	if !end.HasValue() {
		WriteError(w, "no node near end location", http.StatusBadRequest)
		return
	}

	query := cch.NewQuery(self.metric)
	query.AddSource(start.Value, 0)
	query.AddTarget(end.Value, 0)
	query.Run()
	distance := query.Distance()
	if distance == cch.INF_WEIGHT {
		WriteResponse(w, RoutingResponse{Distance: -1, Nodes: []int32{}, Arcs: []int32{}}, http.StatusOK)
		return
	}
	response := RoutingResponse{
		Distance: distance,
		Nodes:    query.NodePath(),
		Arcs:     query.ArcPath(),
	}
	slog.Debug("routing request answered", "distance", distance, "nodes", len(response.Nodes))
	WriteResponse(w, response, http.StatusOK)
}
