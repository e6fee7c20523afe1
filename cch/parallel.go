package cch

import (
	"runtime"
	"sync"

	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// parallel customization
//*******************************************

// Customizes the metric using thread_count worker goroutines, 0 picks the
// number of CPUs. Produces exactly the same weights as Customize.
//
// Arcs are batched by the elimination tree depth of their tail, deepest
// level first. The lower triangles of an arc only reference arcs whose
// tail lies strictly deeper in the tree, so all batches an arc reads from
// are finished before its own batch starts. Within a batch every arc is
// written by exactly one worker.
func (self *Metric) ParallelCustomize(thread_count int) {
	if thread_count <= 0 {
		thread_count = runtime.NumCPU()
	}
	cch := self.cch
	arc_count := int(cch.ShortcutCount())
	if thread_count == 1 {
		self.Customize()
		return
	}

	for a := 0; a < arc_count; a++ {
		self._ResetArcWeights(int32(a))
	}

	max_level := int32(0)
	for r := 0; r < int(cch.node_count); r++ {
		max_level = Max(max_level, cch.tree_level[r])
	}
	buckets := make([][]int32, max_level+1)
	for a := 0; a < arc_count; a++ {
		level := cch.tree_level[cch.up_tail[a]]
		buckets[level] = append(buckets[level], int32(a))
	}

	for level := max_level; level >= 0; level-- {
		bucket := buckets[level]
		if len(bucket) == 0 {
			continue
		}
		chunk_size := (len(bucket) + thread_count - 1) / thread_count
		wg := sync.WaitGroup{}
		for start := 0; start < len(bucket); start += chunk_size {
			end := start + chunk_size
			if end > len(bucket) {
				end = len(bucket)
			}
			wg.Add(1)
			go func(arcs []int32) {
				defer wg.Done()
				for _, a := range arcs {
					self._RelaxLowerTriangles(a)
				}
			}(bucket[start:end])
		}
		wg.Wait()
	}
}
