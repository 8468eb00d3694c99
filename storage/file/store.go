// Package file implements a storage.BlobStore on the local file system.
//
// Tiles live at {root}/{layer}/{gridset}/{format}/{z}/{x}_{y}.bin with every
// name component path-escaped. Layer metadata is a YAML file next to the
// layer's gridset directories. Writes go to a uniquely named temporary file
// that is renamed into place.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"

	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
	"github.com/gaborage/tilecache/tile"
)

const (
	tileExt      = ".bin"
	metadataFile = "metadata.yaml"
	dirPerm      = 0o755
	filePerm     = 0o644
)

// Store is the file system blob store. Tile operations must be serialized
// by the caller; metadata access is safe for concurrent use.
type Store struct {
	log       logger.Logger
	root      string
	listeners storage.Listeners

	metaMu sync.Mutex
	yaml   *yaml.YAML
}

// Ensure Store implements storage.BlobStore
var _ storage.BlobStore = (*Store)(nil)

// New creates a store rooted at root, creating the directory if needed.
func New(log logger.Logger, root string) (*Store, error) {
	if root == "" {
		return nil, storage.NewStorageError("open", "", errors.New("root directory is required"))
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, storage.NewStorageError("open", "", err)
	}
	return &Store{log: log, root: root, yaml: yaml.Parser()}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// segment escapes one name for use as a single path element.
func segment(name string) string {
	esc := url.PathEscape(name)
	if strings.Trim(esc, ".") == "" {
		// "", "." and ".." must not address the parent or the directory itself
		esc = "_" + strings.ReplaceAll(esc, ".", "%2E")
	}
	return esc
}

func (s *Store) layerDir(layer string) string {
	return filepath.Join(s.root, segment(layer))
}

func (s *Store) formatDir(layer, gridSet, format string) string {
	return filepath.Join(s.layerDir(layer), segment(gridSet), segment(format))
}

func (s *Store) tilePath(obj *tile.Object) string {
	name := strconv.FormatInt(obj.X(), 10) + "_" + strconv.FormatInt(obj.Y(), 10) + tileExt
	return filepath.Join(s.formatDir(obj.LayerName, obj.GridSetID, obj.BlobFormat), strconv.FormatInt(obj.Z(), 10), name)
}

// writeAtomic writes data next to path under a unique name and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// exists reports whether path exists, treating only "not exist" as absence.
func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Get sets obj's blob to the tile file. The file is read lazily, so callers
// that keep the blob should copy it.
func (s *Store) Get(_ context.Context, obj *tile.Object) (bool, error) {
	path := s.tilePath(obj)
	found, err := exists(path)
	if err != nil || !found {
		return false, err
	}
	obj.SetBlob(tile.NewFileResource(path))
	return true, nil
}

func (s *Store) Put(_ context.Context, obj *tile.Object) error {
	if obj.Blob == nil {
		return fmt.Errorf("tile %s has no blob", obj)
	}
	data, err := tile.ReadAll(obj.Blob)
	if err != nil {
		return fmt.Errorf("read blob of %s: %w", obj, err)
	}
	if err := writeAtomic(s.tilePath(obj), data); err != nil {
		return err
	}
	s.listeners.TileStored(obj)
	return nil
}

func (s *Store) Delete(_ context.Context, obj *tile.Object) (bool, error) {
	err := os.Remove(s.tilePath(obj))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	s.listeners.TileDeleted(obj)
	return true, nil
}

// removeDir removes dir and reports whether it existed.
func removeDir(dir string) (bool, error) {
	found, err := exists(dir)
	if err != nil || !found {
		return false, err
	}
	return true, os.RemoveAll(dir)
}

func (s *Store) DeleteLayer(_ context.Context, layerName string) (bool, error) {
	removed, err := removeDir(s.layerDir(layerName))
	if err != nil || !removed {
		return false, err
	}
	s.listeners.LayerDeleted(layerName)
	return true, nil
}

func (s *Store) DeleteByGridSet(_ context.Context, layerName, gridSetID string) (bool, error) {
	removed, err := removeDir(filepath.Join(s.layerDir(layerName), segment(gridSetID)))
	if err != nil || !removed {
		return false, err
	}
	s.listeners.GridSetDeleted(layerName, gridSetID)
	return true, nil
}

// DeleteRange removes the tiles of rng between its zoom levels. It reports
// whether any tile was removed.
func (s *Store) DeleteRange(_ context.Context, rng *tile.Range) (bool, error) {
	base := s.formatDir(rng.LayerName, rng.GridSetID, rng.BlobFormat)
	removed := 0

	for z := rng.ZoomStart; z <= rng.ZoomStop; z++ {
		dir := filepath.Join(base, strconv.FormatInt(z, 10))
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed > 0, err
		}

		for _, e := range entries {
			x, y, ok := parseTileName(e.Name())
			if !ok || !rng.Contains([3]int64{x, y, z}) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return removed > 0, err
			}
			removed++
			s.listeners.TileDeleted(tile.NewObject(rng.LayerName, [3]int64{x, y, z}, rng.GridSetID, rng.BlobFormat, rng.Parameters))
		}
	}

	s.log.Debug().Str("layer", rng.LayerName).Int("tiles", removed).Msg("Tile range deleted")
	return removed > 0, nil
}

func parseTileName(name string) (x, y int64, ok bool) {
	stem, found := strings.CutSuffix(name, tileExt)
	if !found {
		return 0, 0, false
	}
	xs, ys, found := strings.Cut(stem, "_")
	if !found {
		return 0, 0, false
	}
	x, errX := strconv.ParseInt(xs, 10, 64)
	y, errY := strconv.ParseInt(ys, 10, 64)
	return x, y, errX == nil && errY == nil
}

// Rename moves a layer directory. It fails when the target layer exists and
// reports false when the source does not.
func (s *Store) Rename(_ context.Context, oldLayerName, newLayerName string) (bool, error) {
	from, to := s.layerDir(oldLayerName), s.layerDir(newLayerName)

	found, err := exists(from)
	if err != nil || !found {
		return false, err
	}
	taken, err := exists(to)
	if err != nil {
		return false, err
	}
	if taken {
		return false, fmt.Errorf("layer %q already exists", newLayerName)
	}

	if err := os.Rename(from, to); err != nil {
		return false, err
	}
	s.listeners.LayerRenamed(oldLayerName, newLayerName)
	return true, nil
}

// Clear removes every layer but keeps the root directory.
func (s *Store) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Destroy leaves the files in place; there is nothing to release.
func (s *Store) Destroy() {
	s.log.Debug().Str("root", s.root).Msg("File blob store destroyed")
}

func (s *Store) AddListener(l storage.Listener) { s.listeners.Add(l) }

func (s *Store) RemoveListener(l storage.Listener) bool { return s.listeners.Remove(l) }

func (s *Store) metadataPath(layer string) string {
	return filepath.Join(s.layerDir(layer), metadataFile)
}

func (s *Store) readMetadata(layer string) (map[string]any, error) {
	data, err := os.ReadFile(s.metadataPath(layer))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	m, err := s.yaml.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// LayerMetadata returns a metadata value, or "" when unset or unreadable.
func (s *Store) LayerMetadata(layerName, key string) string {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	m, err := s.readMetadata(layerName)
	if err != nil {
		s.log.Warn().Err(err).Str("layer", layerName).Msg("Could not read layer metadata")
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (s *Store) PutLayerMetadata(layerName, key, value string) error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	m, err := s.readMetadata(layerName)
	if err != nil {
		return storage.NewStorageError("put_metadata", layerName, err)
	}
	m[key] = value

	data, err := s.yaml.Marshal(m)
	if err != nil {
		return storage.NewStorageError("put_metadata", layerName, err)
	}
	if err := writeAtomic(s.metadataPath(layerName), data); err != nil {
		return storage.NewStorageError("put_metadata", layerName, err)
	}
	return nil
}
