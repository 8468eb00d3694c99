package local

import (
	"slices"
	"sync"
)

// layerIndex maps a layer name to the set of cache keys held for it. Layers
// whose set becomes empty are pruned.
type layerIndex struct {
	mu     sync.RWMutex
	layers map[string]map[string]struct{}
}

func newLayerIndex() *layerIndex {
	return &layerIndex{layers: make(map[string]map[string]struct{})}
}

func (x *layerIndex) add(layer, key string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	keys, ok := x.layers[layer]
	if !ok {
		keys = make(map[string]struct{})
		x.layers[layer] = keys
	}
	keys[key] = struct{}{}
}

func (x *layerIndex) remove(layer, key string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	keys, ok := x.layers[layer]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(x.layers, layer)
	}
}

// drain removes a layer and returns the keys it held.
func (x *layerIndex) drain(layer string) []string {
	x.mu.Lock()
	keys := x.layers[layer]
	delete(x.layers, layer)
	x.mu.Unlock()

	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}

// keys returns a sorted copy of the keys held for layer.
func (x *layerIndex) keys(layer string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	keys := x.layers[layer]
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (x *layerIndex) contains(layer string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.layers[layer]
	return ok
}

func (x *layerIndex) size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.layers)
}

func (x *layerIndex) reset() {
	x.mu.Lock()
	x.layers = make(map[string]map[string]struct{})
	x.mu.Unlock()
}
