package graph

import (
	"math"
	"sort"

	"github.com/ttpr0/go-cch/geo"
	. "github.com/ttpr0/go-cch/util"
)

//*******************************************
// node index
//*******************************************

// Grid cell size in degrees, 0.01 deg is roughly 1.1 km at the equator.
const grid_cell_size = 0.01

// NodeIndex maps coordinates to their closest graph node using a flat
// sorted grid over the node locations.
type NodeIndex struct {
	cells  []_CellNode
	coords []geo.Coord
}

type _CellNode struct {
	key  uint64
	node int32
}

func NewNodeIndex(coords []geo.Coord) *NodeIndex {
	cells := make([]_CellNode, 0, len(coords))
	for i := 0; i < len(coords); i++ {
		cells = append(cells, _CellNode{
			key:  _CellKey(coords[i]),
			node: int32(i),
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].key < cells[j].key
	})
	return &NodeIndex{
		cells:  cells,
		coords: coords,
	}
}

// Returns the closest node within a 3x3 cell neighbourhood of the query
// point, None if the neighbourhood contains no node.
func (self *NodeIndex) GetClosestNode(point geo.Coord) Optional[int32] {
	lat_idx, lon_idx := _GridCell(point)
	closest := int32(-1)
	closest_dist := math.MaxFloat64
	for la := lat_idx - 1; la <= lat_idx+1; la++ {
		for lo := lon_idx - 1; lo <= lon_idx+1; lo++ {
			for _, entry := range self._CellRange(_PackKey(la, lo)) {
				dist := geo.HaversineDist(point, self.coords[entry.node])
				if dist < closest_dist {
					closest_dist = dist
					closest = entry.node
				}
			}
		}
	}
	if closest == -1 {
		return None[int32]()
	}
	return Some(closest)
}

func (self *NodeIndex) _CellRange(key uint64) []_CellNode {
	lo := sort.Search(len(self.cells), func(i int) bool {
		return self.cells[i].key >= key
	})
	if lo >= len(self.cells) || self.cells[lo].key != key {
		return nil
	}
	hi := sort.Search(len(self.cells), func(i int) bool {
		return self.cells[i].key > key
	})
	return self.cells[lo:hi]
}

func _GridCell(point geo.Coord) (int32, int32) {
	return int32(math.Floor(float64(point.Lat()) / grid_cell_size)), int32(math.Floor(float64(point.Lon()) / grid_cell_size))
}

func _PackKey(lat_idx, lon_idx int32) uint64 {
	return uint64(uint32(lat_idx))<<32 | uint64(uint32(lon_idx))
}

func _CellKey(point geo.Coord) uint64 {
	lat_idx, lon_idx := _GridCell(point)
	return _PackKey(lat_idx, lon_idx)
}
