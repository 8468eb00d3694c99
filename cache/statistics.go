package cache

// Statistics is a point-in-time snapshot of a provider's counters. Derived
// values are computed when the snapshot is taken and are not guaranteed to be
// monotonic across resets.
type Statistics struct {
	HitCount      int64 `json:"hitCount" xml:"hitCount"`
	MissCount     int64 `json:"missCount" xml:"missCount"`
	EvictionCount int64 `json:"evictionCount" xml:"evictionCount"`
	TotalCount    int64 `json:"totalCount" xml:"totalCount"`

	// HitRate and MissRate are percentages of TotalCount.
	HitRate  float64 `json:"hitRate" xml:"hitRate"`
	MissRate float64 `json:"missRate" xml:"missRate"`

	// TotalSize is the configured capacity and ActualSize the occupied size, in bytes.
	TotalSize  int64 `json:"totalSize" xml:"totalSize"`
	ActualSize int64 `json:"actualSize" xml:"actualSize"`

	// CurrentMemoryOccupation is ActualSize as a percentage of TotalSize.
	CurrentMemoryOccupation float64 `json:"currentMemoryOccupation" xml:"currentMemoryOccupation"`
}

// NewStatistics builds a snapshot from raw counters and sizes, deriving the
// total lookup count, the hit and miss rates and the memory occupation.
// An eviction count of -1 means the backend does not expose one.
func NewStatistics(hits, misses, evictions, totalSize, actualSize int64) *Statistics {
	s := &Statistics{
		HitCount:      hits,
		MissCount:     misses,
		EvictionCount: evictions,
		TotalCount:    hits + misses,
		TotalSize:     totalSize,
		ActualSize:    actualSize,
	}

	if s.TotalCount > 0 {
		// Whole percentages, truncated
		s.HitRate = float64(int64(100 * float64(hits) / float64(s.TotalCount)))
		s.MissRate = 100 - s.HitRate
	}

	if totalSize > 0 {
		occupation := float64(int64(100 * float64(actualSize) / float64(totalSize)))
		s.CurrentMemoryOccupation = min(max(occupation, 0), 100)
	}

	return s
}
