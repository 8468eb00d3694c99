package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tilecache/tile"
)

type optimizedStruct struct {
	ID   int64  `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint"`
}

func TestMarshalUnmarshal(t *testing.T) {
	original := optimizedStruct{ID: 456, Name: "roads"}

	data, err := Marshal(original)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	result, err := Unmarshal[optimizedStruct](data)
	require.NoError(t, err)
	assert.Equal(t, original, result)
}

func TestMarshalDeterministic(t *testing.T) {
	m := map[string]string{"b": "2", "a": "1", "c": "3"}

	first, err := Marshal(m)
	require.NoError(t, err)
	second, err := Marshal(m)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUnmarshalInvalidData(t *testing.T) {
	t.Run("CorruptedData", func(t *testing.T) {
		_, err := Unmarshal[optimizedStruct]([]byte{0xFF, 0xFF, 0xFF})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cbor unmarshal failed")
	})

	t.Run("EmptyData", func(t *testing.T) {
		_, err := Unmarshal[optimizedStruct]([]byte{})
		assert.Error(t, err)
	})
}

func TestEncodeDecodeTile(t *testing.T) {
	created := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	params := map[string]string{"STYLES": "night"}
	obj := tile.NewCompleteObject("roads", [3]int64{10, 20, 5}, "EPSG:900913", "image/png", params,
		tile.NewByteResourceAt([]byte("png-payload"), created))

	data, err := EncodeTile(obj)
	require.NoError(t, err)

	decoded, err := DecodeTile(data)
	require.NoError(t, err)

	assert.Equal(t, "roads", decoded.LayerName)
	assert.Equal(t, "EPSG:900913", decoded.GridSetID)
	assert.Equal(t, [3]int64{10, 20, 5}, decoded.XYZ)
	assert.Equal(t, "image/png", decoded.BlobFormat)
	assert.Equal(t, params, decoded.Parameters)
	assert.Equal(t, len("png-payload"), decoded.BlobSize)
	assert.True(t, created.Equal(decoded.Created))

	payload, err := tile.ReadAll(decoded.Blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-payload"), payload)
}

func TestEncodeTileCapturesFileBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	require.NoError(t, os.WriteFile(path, []byte("on-disk"), 0o600))

	obj := tile.NewCompleteObject("roads", [3]int64{1, 1, 1}, "g", "image/png", nil, tile.NewFileResource(path))
	data, err := EncodeTile(obj)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	decoded, err := DecodeTile(data)
	require.NoError(t, err)
	payload, err := tile.ReadAll(decoded.Blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("on-disk"), payload)
}

func TestEncodeTileUnreadableBlob(t *testing.T) {
	obj := tile.NewCompleteObject("roads", [3]int64{}, "g", "f", nil,
		tile.NewFileResource(filepath.Join(t.TempDir(), "missing")))

	_, err := EncodeTile(obj)
	assert.Error(t, err)
}

func TestDecodeTileCorrupt(t *testing.T) {
	_, err := DecodeTile([]byte{0xFF, 0x00})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptEntry))
}
