// Package storage defines the tile blob store contract the caching tier sits
// in front of, the listener hooks stores notify, and a null store that keeps
// nothing.
package storage

import (
	"context"

	"github.com/gaborage/tilecache/tile"
)

// BlobStore persists tile blobs. Implementations are not assumed to be safe
// under concurrent structural mutation; wrap them in a serializing decorator
// before sharing one across goroutines.
type BlobStore interface {
	// Get looks up obj and, when found, sets its blob, size and creation time.
	Get(ctx context.Context, obj *tile.Object) (bool, error)

	// Put stores obj's blob, replacing any previous one.
	Put(ctx context.Context, obj *tile.Object) error

	// Delete removes one tile. It reports whether the tile existed.
	Delete(ctx context.Context, obj *tile.Object) (bool, error)

	// DeleteLayer removes every tile and the metadata of a layer.
	DeleteLayer(ctx context.Context, layerName string) (bool, error)

	// DeleteByGridSet removes every tile of a layer in one gridset.
	DeleteByGridSet(ctx context.Context, layerName, gridSetID string) (bool, error)

	// DeleteRange removes every tile inside rng.
	DeleteRange(ctx context.Context, rng *tile.Range) (bool, error)

	// Rename moves a layer and its metadata to a new name.
	Rename(ctx context.Context, oldLayerName, newLayerName string) (bool, error)

	// Clear removes everything.
	Clear(ctx context.Context) error

	// Destroy releases the store. It must not be used afterwards.
	Destroy()

	AddListener(l Listener)
	RemoveListener(l Listener) bool

	// LayerMetadata returns a metadata value of a layer, or "" when unset.
	LayerMetadata(layerName, key string) string

	// PutLayerMetadata sets a metadata value of a layer.
	PutLayerMetadata(layerName, key, value string) error
}
