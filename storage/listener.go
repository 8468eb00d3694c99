package storage

import (
	"slices"
	"sync"

	"github.com/gaborage/tilecache/tile"
)

// Listener is notified of changes a store made to its contents.
type Listener interface {
	TileStored(obj *tile.Object)
	TileDeleted(obj *tile.Object)
	LayerDeleted(layerName string)
	LayerRenamed(oldLayerName, newLayerName string)
	GridSetDeleted(layerName, gridSetID string)
}

// Listeners is a concurrency-safe listener set that fans every notification
// out to its members in registration order. The zero value is ready to use.
type Listeners struct {
	mu    sync.RWMutex
	items []Listener
}

// Ensure Listeners implements Listener
var _ Listener = (*Listeners)(nil)

// Add registers l.
func (ls *Listeners) Add(l Listener) {
	ls.mu.Lock()
	ls.items = append(ls.items, l)
	ls.mu.Unlock()
}

// Remove unregisters l and reports whether it was registered.
func (ls *Listeners) Remove(l Listener) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	i := slices.Index(ls.items, l)
	if i < 0 {
		return false
	}
	ls.items = slices.Delete(ls.items, i, i+1)
	return true
}

// Len returns the number of registered listeners.
func (ls *Listeners) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.items)
}

func (ls *Listeners) each(fn func(Listener)) {
	ls.mu.RLock()
	items := slices.Clone(ls.items)
	ls.mu.RUnlock()

	for _, l := range items {
		fn(l)
	}
}

func (ls *Listeners) TileStored(obj *tile.Object) {
	ls.each(func(l Listener) { l.TileStored(obj) })
}

func (ls *Listeners) TileDeleted(obj *tile.Object) {
	ls.each(func(l Listener) { l.TileDeleted(obj) })
}

func (ls *Listeners) LayerDeleted(layerName string) {
	ls.each(func(l Listener) { l.LayerDeleted(layerName) })
}

func (ls *Listeners) LayerRenamed(oldLayerName, newLayerName string) {
	ls.each(func(l Listener) { l.LayerRenamed(oldLayerName, newLayerName) })
}

func (ls *Listeners) GridSetDeleted(layerName, gridSetID string) {
	ls.each(func(l Listener) { l.GridSetDeleted(layerName, gridSetID) })
}
