package main

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/ttpr0/go-cch/cch"
	"github.com/ttpr0/go-cch/geo"
	"github.com/ttpr0/go-cch/graph"
	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// matrix handler
//*******************************************

type MatrixRequest struct {
	// (lon, lat) pairs
	Sources [][2]float32 `json:"sources"`
	Targets [][2]float32 `json:"targets"`
}

type MatrixResponse struct {
	// distances[i][j] is the travel time from source i to target j in
	// seconds, -1 if unreachable
	Distances [][]int32 `json:"distances"`
}

type MatrixHandler struct {
	metric *cch.Metric
	index  *graph.NodeIndex
}

func (self *MatrixHandler) Handle(w http.ResponseWriter, r *http.Request) {
	request, err := ReadRequestBody[MatrixRequest](r)
	if err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sources := NewArray[int32](len(request.Sources))
	for i, location := range request.Sources {
		node := self.index.GetClosestNode(geo.Coord(location))
		if !node.HasValue() {
			WriteError(w, "no node near source location", http.StatusBadRequest)
			return
		}
		sources[i] = node.Value
	}
	targets := NewArray[int32](len(request.Targets))
	for i, location := range request.Targets {
		node := self.index.GetClosestNode(geo.Coord(location))
		if !node.HasValue() {
			WriteError(w, "no node near target location", http.StatusBadRequest)
			return
		}
		targets[i] = node.Value
	}

	distances := self._ComputeMatrix(sources, targets)
	WriteResponse(w, MatrixResponse{Distances: distances}, http.StatusOK)
}

// One-to-many runs against the pinned targets, sources fanned out over a
// worker pool. Every worker owns its query, the pinned state is computed
// once per worker and reused between sources.
func (self *MatrixHandler) _ComputeMatrix(sources Array[int32], targets Array[int32]) [][]int32 {
	distances := make([][]int32, sources.Length())
	worker_count := Min(runtime.NumCPU(), sources.Length())
	jobs := make(chan int, sources.Length())
	for i := 0; i < sources.Length(); i++ {
		jobs <- i
	}
	close(jobs)

	wg := sync.WaitGroup{}
	for t := 0; t < worker_count; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			query := cch.NewQuery(self.metric)
			query.PinTargets(targets)
			for i := range jobs {
				query.ResetSources()
				query.AddSource(sources[i], 0)
				query.RunToPinnedTargets()
				row := query.GetDistancesToTargets()
				for j := 0; j < row.Length(); j++ {
					if row[j] == cch.INF_WEIGHT {
						row[j] = -1
					}
				}
				distances[i] = row
			}
		}()
	}
	wg.Wait()
	return distances
}
