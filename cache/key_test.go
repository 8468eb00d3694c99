package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/tilecache/tile"
)

func TestTileKeyFormat(t *testing.T) {
	obj := tile.NewObject("roads", [3]int64{1, 2, 3}, "EPSG:4326", "image/png", nil)

	assert.Equal(t, "roads_EPSG:4326_[1, 2, 3]_image/png", TileKey(obj))
}

func TestTileKeyIgnoresParameters(t *testing.T) {
	a := tile.NewObject("roads", [3]int64{0, 0, 0}, "g", "png", map[string]string{"STYLES": "day"})
	b := tile.NewObject("roads", [3]int64{0, 0, 0}, "g", "png", map[string]string{"STYLES": "night"})

	assert.Equal(t, TileKey(a), TileKey(b))
}

func TestTileKeyDistinguishesIdentity(t *testing.T) {
	base := tile.NewObject("roads", [3]int64{1, 2, 3}, "g", "png", nil)

	tests := []struct {
		name  string
		other *tile.Object
	}{
		{"Layer", tile.NewObject("rivers", [3]int64{1, 2, 3}, "g", "png", nil)},
		{"GridSet", tile.NewObject("roads", [3]int64{1, 2, 3}, "h", "png", nil)},
		{"Coordinates", tile.NewObject("roads", [3]int64{1, 2, 4}, "g", "png", nil)},
		{"Format", tile.NewObject("roads", [3]int64{1, 2, 3}, "g", "jpeg", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, TileKey(base), TileKey(tt.other))
		})
	}
}

func TestTileKeyEscapesSeparator(t *testing.T) {
	// Without escaping both would render as "a_b_c_[0, 0, 0]_png"
	a := tile.NewObject("a_b", [3]int64{}, "c", "png", nil)
	b := tile.NewObject("a", [3]int64{}, "b_c", "png", nil)

	assert.NotEqual(t, TileKey(a), TileKey(b))
	assert.Equal(t, `a\_b_c_[0, 0, 0]_png`, TileKey(a))
}

func TestTileKeyEscapesBackslash(t *testing.T) {
	a := tile.NewObject(`a\`, [3]int64{}, "b", "png", nil)
	b := tile.NewObject("a", [3]int64{}, `\b`, "png", nil)

	assert.NotEqual(t, TileKey(a), TileKey(b))
}
