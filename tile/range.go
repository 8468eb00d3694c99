package tile

// Bounds is an inclusive column/row rectangle at one zoom level.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int64
}

// Range selects a set of tiles of one layer, gridset and format across a span
// of zoom levels. A zoom level without an entry in Bounds covers every tile.
type Range struct {
	LayerName  string
	GridSetID  string
	BlobFormat string
	Parameters map[string]string
	ZoomStart  int64
	ZoomStop   int64
	Bounds     map[int64]Bounds
}

// Contains reports whether xyz falls inside the range.
func (r *Range) Contains(xyz [3]int64) bool {
	z := xyz[2]
	if z < r.ZoomStart || z > r.ZoomStop {
		return false
	}
	b, ok := r.Bounds[z]
	if !ok {
		return true
	}
	return xyz[0] >= b.MinX && xyz[0] <= b.MaxX && xyz[1] >= b.MinY && xyz[1] <= b.MaxY
}
