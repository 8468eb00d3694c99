package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
	"github.com/gaborage/tilecache/tile"
)

const (
	layerRoads = "roads"
	gridSet    = "EPSG:4326"
	formatPNG  = "image/png"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(logger.New("disabled", false), t.TempDir())
	require.NoError(t, err)
	return s
}

func putTile(t *testing.T, s *Store, layer string, xyz [3]int64, data string) *tile.Object {
	t.Helper()
	obj := tile.NewCompleteObject(layer, xyz, gridSet, formatPNG, nil, tile.NewByteResource([]byte(data)))
	require.NoError(t, s.Put(context.Background(), obj))
	return obj
}

func get(t *testing.T, s *Store, layer string, xyz [3]int64) (string, bool) {
	t.Helper()
	obj := tile.NewObject(layer, xyz, gridSet, formatPNG, nil)
	found, err := s.Get(context.Background(), obj)
	require.NoError(t, err)
	if !found {
		return "", false
	}
	data, err := tile.ReadAll(obj.Blob)
	require.NoError(t, err)
	return string(data), true
}

type countingListener struct {
	stored, deleted, layers, renamed, gridSets int
}

var _ storage.Listener = (*countingListener)(nil)

func (c *countingListener) TileStored(*tile.Object)       { c.stored++ }
func (c *countingListener) TileDeleted(*tile.Object)      { c.deleted++ }
func (c *countingListener) LayerDeleted(string)           { c.layers++ }
func (c *countingListener) LayerRenamed(string, string)   { c.renamed++ }
func (c *countingListener) GridSetDeleted(string, string) { c.gridSets++ }

func TestNewRequiresRoot(t *testing.T) {
	_, err := New(logger.New("disabled", false), "")
	assert.Error(t, err)
}

func TestPutGetLayout(t *testing.T) {
	s := newTestStore(t)
	putTile(t, s, layerRoads, [3]int64{3, 5, 7}, "png")

	path := filepath.Join(s.Root(), "roads", "EPSG:4326", "image%2Fpng", "7", "3_5.bin")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	got, ok := get(t, s, layerRoads, [3]int64{3, 5, 7})
	assert.True(t, ok)
	assert.Equal(t, "png", got)

	_, ok = get(t, s, layerRoads, [3]int64{3, 5, 8})
	assert.False(t, ok)
}

func TestPutOverwritesWithoutTempLeftovers(t *testing.T) {
	s := newTestStore(t)
	putTile(t, s, layerRoads, [3]int64{1, 1, 1}, "first")
	putTile(t, s, layerRoads, [3]int64{1, 1, 1}, "second")

	got, _ := get(t, s, layerRoads, [3]int64{1, 1, 1})
	assert.Equal(t, "second", got)

	entries, err := os.ReadDir(filepath.Join(s.formatDir(layerRoads, gridSet, formatPNG), "1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSegmentEscapesTraversal(t *testing.T) {
	assert.Equal(t, "_%2E%2E", segment(".."))
	assert.Equal(t, "_%2E", segment("."))
	assert.Equal(t, "_", segment(""))
	assert.Equal(t, "a%2Fb", segment("a/b"))

	s := newTestStore(t)
	putTile(t, s, "..", [3]int64{0, 0, 0}, "x")
	assert.DirExists(t, filepath.Join(s.Root(), "_%2E%2E"))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	listener := &countingListener{}
	s.AddListener(listener)

	obj := putTile(t, s, layerRoads, [3]int64{1, 2, 3}, "x")

	ok, err := s.Delete(ctx, obj)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, obj)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, listener.stored)
	assert.Equal(t, 1, listener.deleted)
}

func TestDeleteLayerAndGridSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	listener := &countingListener{}
	s.AddListener(listener)

	putTile(t, s, layerRoads, [3]int64{0, 0, 0}, "x")
	other := tile.NewCompleteObject(layerRoads, [3]int64{0, 0, 0}, "EPSG:3857", formatPNG, nil, tile.NewByteResource([]byte("y")))
	require.NoError(t, s.Put(ctx, other))

	ok, err := s.DeleteByGridSet(ctx, layerRoads, gridSet)
	require.NoError(t, err)
	assert.True(t, ok)
	_, found := get(t, s, layerRoads, [3]int64{0, 0, 0})
	assert.False(t, found)

	found, err = s.Get(ctx, tile.NewObject(layerRoads, [3]int64{0, 0, 0}, "EPSG:3857", formatPNG, nil))
	require.NoError(t, err)
	assert.True(t, found, "other gridsets are kept")

	ok, err = s.DeleteLayer(ctx, layerRoads)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoDirExists(t, s.layerDir(layerRoads))

	ok, err = s.DeleteLayer(ctx, layerRoads)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, listener.gridSets)
	assert.Equal(t, 1, listener.layers)
}

func TestDeleteRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for x := range int64(4) {
		putTile(t, s, layerRoads, [3]int64{x, 0, 2}, "z2")
	}
	putTile(t, s, layerRoads, [3]int64{0, 0, 3}, "z3")
	putTile(t, s, layerRoads, [3]int64{0, 0, 5}, "z5")

	rng := &tile.Range{
		LayerName:  layerRoads,
		GridSetID:  gridSet,
		BlobFormat: formatPNG,
		ZoomStart:  2,
		ZoomStop:   4,
		Bounds:     map[int64]tile.Bounds{2: {MinX: 1, MinY: 0, MaxX: 2, MaxY: 0}},
	}
	ok, err := s.DeleteRange(ctx, rng)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found := get(t, s, layerRoads, [3]int64{0, 0, 2})
	assert.True(t, found, "outside bounds")
	_, found = get(t, s, layerRoads, [3]int64{1, 0, 2})
	assert.False(t, found)
	_, found = get(t, s, layerRoads, [3]int64{2, 0, 2})
	assert.False(t, found)
	_, found = get(t, s, layerRoads, [3]int64{3, 0, 2})
	assert.True(t, found, "outside bounds")
	_, found = get(t, s, layerRoads, [3]int64{0, 0, 3})
	assert.False(t, found, "unbounded zoom level")
	_, found = get(t, s, layerRoads, [3]int64{0, 0, 5})
	assert.True(t, found, "above zoom stop")

	ok, err = s.DeleteRange(ctx, rng)
	require.NoError(t, err)
	assert.False(t, ok, "nothing left to delete")
}

func TestParseTileName(t *testing.T) {
	x, y, ok := parseTileName("12_-3.bin")
	assert.True(t, ok)
	assert.Equal(t, int64(12), x)
	assert.Equal(t, int64(-3), y)

	for _, name := range []string{"12_3.png", "123.bin", "a_b.bin", ".tmp"} {
		_, _, ok := parseTileName(name)
		assert.False(t, ok, name)
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	putTile(t, s, layerRoads, [3]int64{1, 1, 1}, "x")
	putTile(t, s, "rivers", [3]int64{1, 1, 1}, "y")

	ok, err := s.Rename(ctx, layerRoads, "streets")
	require.NoError(t, err)
	assert.True(t, ok)

	got, found := get(t, s, "streets", [3]int64{1, 1, 1})
	assert.True(t, found)
	assert.Equal(t, "x", got)

	ok, err = s.Rename(ctx, layerRoads, "streets")
	require.NoError(t, err)
	assert.False(t, ok, "source is gone")

	_, err = s.Rename(ctx, "streets", "rivers")
	assert.Error(t, err, "target exists")
}

func TestClearKeepsRoot(t *testing.T) {
	s := newTestStore(t)
	putTile(t, s, layerRoads, [3]int64{1, 1, 1}, "x")
	require.NoError(t, s.PutLayerMetadata(layerRoads, "k", "v"))

	require.NoError(t, s.Clear(context.Background()))

	assert.DirExists(t, s.Root())
	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLayerMetadata(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.LayerMetadata(layerRoads, "owner"))

	require.NoError(t, s.PutLayerMetadata(layerRoads, "owner", "maps-team"))
	require.NoError(t, s.PutLayerMetadata(layerRoads, "enabled", "true"))
	require.NoError(t, s.PutLayerMetadata(layerRoads, "owner", "ops"))

	assert.Equal(t, "ops", s.LayerMetadata(layerRoads, "owner"))
	assert.Equal(t, "true", s.LayerMetadata(layerRoads, "enabled"))
	assert.FileExists(t, filepath.Join(s.layerDir(layerRoads), metadataFile))
}

func TestRemoveListener(t *testing.T) {
	s := newTestStore(t)
	listener := &countingListener{}
	s.AddListener(listener)
	assert.True(t, s.RemoveListener(listener))
	assert.False(t, s.RemoveListener(listener))

	putTile(t, s, layerRoads, [3]int64{0, 0, 0}, "x")
	assert.Zero(t, listener.stored)
}
