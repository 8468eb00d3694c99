package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/tilecache/storage"
	"github.com/gaborage/tilecache/tile"
)

// MockBlobStore provides a testify-based mock implementation of storage.BlobStore.
//
// Example usage:
//
//	backing := &mocks.MockBlobStore{}
//	backing.ExpectGet(true, nil)
//	backing.On("Put", mock.Anything, mock.Anything).Return(nil)
type MockBlobStore struct {
	mock.Mock
}

// Ensure MockBlobStore implements storage.BlobStore
var _ storage.BlobStore = (*MockBlobStore)(nil)

// Get implements storage.BlobStore
func (m *MockBlobStore) Get(ctx context.Context, obj *tile.Object) (bool, error) {
	arguments := m.Called(ctx, obj)
	return arguments.Bool(0), arguments.Error(1)
}

// Put implements storage.BlobStore
func (m *MockBlobStore) Put(ctx context.Context, obj *tile.Object) error {
	arguments := m.Called(ctx, obj)
	return arguments.Error(0)
}

// Delete implements storage.BlobStore
func (m *MockBlobStore) Delete(ctx context.Context, obj *tile.Object) (bool, error) {
	arguments := m.Called(ctx, obj)
	return arguments.Bool(0), arguments.Error(1)
}

// DeleteLayer implements storage.BlobStore
func (m *MockBlobStore) DeleteLayer(ctx context.Context, layerName string) (bool, error) {
	arguments := m.Called(ctx, layerName)
	return arguments.Bool(0), arguments.Error(1)
}

// DeleteByGridSet implements storage.BlobStore
func (m *MockBlobStore) DeleteByGridSet(ctx context.Context, layerName, gridSetID string) (bool, error) {
	arguments := m.Called(ctx, layerName, gridSetID)
	return arguments.Bool(0), arguments.Error(1)
}

// DeleteRange implements storage.BlobStore
func (m *MockBlobStore) DeleteRange(ctx context.Context, rng *tile.Range) (bool, error) {
	arguments := m.Called(ctx, rng)
	return arguments.Bool(0), arguments.Error(1)
}

// Rename implements storage.BlobStore
func (m *MockBlobStore) Rename(ctx context.Context, oldLayerName, newLayerName string) (bool, error) {
	arguments := m.Called(ctx, oldLayerName, newLayerName)
	return arguments.Bool(0), arguments.Error(1)
}

// Clear implements storage.BlobStore
func (m *MockBlobStore) Clear(ctx context.Context) error {
	arguments := m.Called(ctx)
	return arguments.Error(0)
}

// Destroy implements storage.BlobStore
func (m *MockBlobStore) Destroy() {
	m.Called()
}

// AddListener implements storage.BlobStore
func (m *MockBlobStore) AddListener(l storage.Listener) {
	m.Called(l)
}

// RemoveListener implements storage.BlobStore
func (m *MockBlobStore) RemoveListener(l storage.Listener) bool {
	arguments := m.Called(l)
	return arguments.Bool(0)
}

// LayerMetadata implements storage.BlobStore
func (m *MockBlobStore) LayerMetadata(layerName, key string) string {
	arguments := m.Called(layerName, key)
	return arguments.String(0)
}

// PutLayerMetadata implements storage.BlobStore
func (m *MockBlobStore) PutLayerMetadata(layerName, key, value string) error {
	arguments := m.Called(layerName, key, value)
	return arguments.Error(0)
}

// Helper methods for common testing scenarios

// ExpectGet sets up a lookup expectation for any tile.
func (m *MockBlobStore) ExpectGet(found bool, err error) *mock.Call {
	return m.On("Get", mock.Anything, mock.Anything).Return(found, err)
}

// ExpectGetBlob sets up a successful lookup that fills the tile with data.
func (m *MockBlobStore) ExpectGetBlob(data []byte) *mock.Call {
	return m.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*tile.Object).SetBlob(tile.NewByteResource(data))
		}).
		Return(true, nil)
}

// ExpectPut sets up a write expectation for any tile.
func (m *MockBlobStore) ExpectPut(err error) *mock.Call {
	return m.On("Put", mock.Anything, mock.Anything).Return(err)
}
