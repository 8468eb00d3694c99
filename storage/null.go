package storage

import (
	"context"

	"github.com/gaborage/tilecache/tile"
)

// NullBlobStore keeps nothing. Mutations succeed and every lookup misses.
type NullBlobStore struct{}

// Ensure NullBlobStore implements BlobStore
var _ BlobStore = NullBlobStore{}

func (NullBlobStore) Get(context.Context, *tile.Object) (bool, error) { return false, nil }

func (NullBlobStore) Put(context.Context, *tile.Object) error { return nil }

func (NullBlobStore) Delete(context.Context, *tile.Object) (bool, error) { return true, nil }

func (NullBlobStore) DeleteLayer(context.Context, string) (bool, error) { return true, nil }

func (NullBlobStore) DeleteByGridSet(context.Context, string, string) (bool, error) {
	return true, nil
}

func (NullBlobStore) DeleteRange(context.Context, *tile.Range) (bool, error) { return true, nil }

func (NullBlobStore) Rename(context.Context, string, string) (bool, error) { return true, nil }

func (NullBlobStore) Clear(context.Context) error { return nil }

func (NullBlobStore) Destroy() {}

func (NullBlobStore) AddListener(Listener) {}

func (NullBlobStore) RemoveListener(Listener) bool { return true }

func (NullBlobStore) LayerMetadata(string, string) string { return "" }

func (NullBlobStore) PutLayerMetadata(string, string, string) error { return nil }
