package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tilecache/testing/mocks"
	"github.com/gaborage/tilecache/tile"
)

func TestExecuteDispatch(t *testing.T) {
	ctx := context.Background()
	obj := lookup(layerRoads, 1)
	rng := &tile.Range{LayerName: layerRivers}

	tests := []struct {
		task   task
		method string
		args   []any
		ret    []any
		layer  string
	}{
		{getTask{obj}, "Get", []any{mock.Anything, obj}, []any{true, nil}, layerRoads},
		{putTask{obj}, "Put", []any{mock.Anything, obj}, []any{nil}, layerRoads},
		{deleteTask{obj}, "Delete", []any{mock.Anything, obj}, []any{true, nil}, layerRoads},
		{deleteLayerTask{layerRoads}, "DeleteLayer", []any{mock.Anything, layerRoads}, []any{true, nil}, layerRoads},
		{deleteGridSetTask{layerRoads, gridSet}, "DeleteByGridSet", []any{mock.Anything, layerRoads, gridSet}, []any{true, nil}, layerRoads},
		{deleteRangeTask{rng}, "DeleteRange", []any{mock.Anything, rng}, []any{true, nil}, layerRivers},
		{renameTask{layerRoads, "streets"}, "Rename", []any{mock.Anything, layerRoads, "streets"}, []any{true, nil}, layerRoads},
		{clearTask{}, "Clear", []any{mock.Anything}, []any{nil}, ""},
		{destroyTask{}, "Destroy", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.task.name(), func(t *testing.T) {
			backing := &mocks.MockBlobStore{}
			backing.On(tt.method, tt.args...).Return(tt.ret...).Once()

			ok, err := execute(ctx, backing, tt.task)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.layer, layerOf(tt.task))
			backing.AssertExpectations(t)
		})
	}
}

func TestExecuteGetDetachesBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	backing := &mocks.MockBlobStore{}
	backing.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*tile.Object).SetBlob(tile.NewFileResource(path))
		}).
		Return(true, nil).Once()

	obj := lookup(layerRoads, 1)
	ok, err := execute(context.Background(), backing, getTask{obj})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, os.Remove(path))

	_, isBytes := obj.Blob.(*tile.ByteResource)
	assert.True(t, isBytes, "blob no longer refers to the file")
	data, err := tile.ReadAll(obj.Blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestLayerOfNilRange(t *testing.T) {
	assert.Empty(t, layerOf(deleteRangeTask{}))
}

func TestExecuteBarrierTouchesNothing(t *testing.T) {
	backing := &mocks.MockBlobStore{}

	ok, err := execute(context.Background(), backing, barrierTask{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, backing.Calls)
}
