package tile

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleteObject(t *testing.T) {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	blob := NewByteResourceAt([]byte("png-bytes"), modified)

	obj := NewCompleteObject("roads", [3]int64{1, 2, 3}, "EPSG:4326", "image/png", nil, blob)

	assert.Equal(t, "roads", obj.LayerName)
	assert.Equal(t, int64(1), obj.X())
	assert.Equal(t, int64(2), obj.Y())
	assert.Equal(t, int64(3), obj.Z())
	assert.Equal(t, 9, obj.BlobSize)
	assert.Equal(t, modified, obj.Created)
}

func TestWithBlobClonesParameters(t *testing.T) {
	params := map[string]string{"STYLES": "night"}
	obj := NewObject("roads", [3]int64{0, 0, 0}, "g", "image/png", params)

	cp := obj.WithBlob(NewByteResource([]byte("x")))
	cp.Parameters["STYLES"] = "day"

	assert.Equal(t, "night", obj.Parameters["STYLES"])
	assert.Equal(t, 1, cp.BlobSize)
}

func TestSetBlobNil(t *testing.T) {
	obj := NewCompleteObject("roads", [3]int64{}, "g", "f", nil, NewByteResource([]byte("abc")))
	obj.SetBlob(nil)
	assert.Equal(t, 0, obj.BlobSize)
	assert.Nil(t, obj.Blob)
}

func TestFileResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.bin")
	require.NoError(t, os.WriteFile(path, []byte("file-bytes"), 0o644))

	res := NewFileResource(path)
	assert.Equal(t, int64(10), res.Size())
	assert.False(t, res.LastModified().IsZero())

	rc, err := res.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("file-bytes"), data)

	require.NoError(t, os.Remove(path))
	assert.Equal(t, int64(-1), res.Size())
	assert.True(t, res.LastModified().IsZero())
}

func TestRangeContains(t *testing.T) {
	rng := &Range{
		LayerName: "roads",
		ZoomStart: 2,
		ZoomStop:  4,
		Bounds: map[int64]Bounds{
			3: {MinX: 1, MinY: 1, MaxX: 2, MaxY: 2},
		},
	}

	assert.False(t, rng.Contains([3]int64{0, 0, 1}), "below zoom start")
	assert.False(t, rng.Contains([3]int64{0, 0, 5}), "above zoom stop")
	assert.True(t, rng.Contains([3]int64{9, 9, 2}), "unbounded zoom level")
	assert.True(t, rng.Contains([3]int64{2, 1, 3}))
	assert.False(t, rng.Contains([3]int64{3, 1, 3}))
}

func TestDetachFileResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.bin")
	require.NoError(t, os.WriteFile(path, []byte("from-disk"), 0o600))

	detached, err := Detach(NewFileResource(path))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	assert.Equal(t, []byte("from-disk"), detached.Contents())
	assert.Equal(t, int64(9), detached.Size())
}

func TestDetachByteResourceCopies(t *testing.T) {
	src := []byte("abc")
	detached, err := Detach(NewByteResource(src))
	require.NoError(t, err)

	src[0] = 'z'
	assert.Equal(t, []byte("abc"), detached.Contents())
}

func TestReadAllMissingFile(t *testing.T) {
	_, err := ReadAll(NewFileResource(filepath.Join(t.TempDir(), "absent")))
	assert.Error(t, err)
}
