package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/gaborage/tilecache/tile"
)

// CBOR encoding/decoding options configured for security and determinism.
// These options prevent potential DoS attacks and ensure consistent encoding.
var (
	// encMode defines encoding options for serialization.
	// - Sort: SortCanonical ensures deterministic field ordering (same input → same bytes)
	// - Time: TimeRFC3339 uses standard timestamp format for cross-language compatibility
	encMode cbor.EncMode

	// decMode defines decoding options for deserialization.
	// - MaxArrayElements: 10000 prevents DoS from malicious large arrays
	// - MaxMapPairs: 10000 prevents DoS from malicious large maps
	// - MaxNestedLevels: 16 prevents stack overflow from deeply nested structures
	decMode cbor.DecMode
)

//nolint:gochecknoinits // Required for CBOR mode configuration at package load time
func init() {
	var err error

	// Configure encoding mode
	encOpts := cbor.EncOptions{
		Sort: cbor.SortCanonical, // Deterministic encoding
		Time: cbor.TimeRFC3339,   // Standard timestamp format
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	// Configure decoding mode with security limits
	decOpts := cbor.DecOptions{
		MaxArrayElements: 10000, // Prevent DoS from huge arrays
		MaxMapPairs:      10000, // Prevent DoS from huge maps
		MaxNestedLevels:  16,    // Prevent stack overflow
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

// Marshal serializes a value to CBOR bytes.
func Marshal[T any](v T) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes CBOR bytes into a value of type T.
//
// Decoding is bounded by the package decode limits (10000 array elements,
// 10000 map pairs, 16 nesting levels).
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return v, nil
}

// tileRecord is the wire form of a cached tile.
type tileRecord struct {
	Layer      string            `cbor:"1,keyasint"`
	GridSet    string            `cbor:"2,keyasint"`
	XYZ        [3]int64          `cbor:"3,keyasint"`
	Format     string            `cbor:"4,keyasint"`
	Parameters map[string]string `cbor:"5,keyasint,omitempty"`
	Blob       []byte            `cbor:"6,keyasint"`
	Created    time.Time         `cbor:"7,keyasint"`
}

// EncodeTile serializes a tile and its full blob for storage outside the
// process. The blob is read through its resource, so file-backed tiles are
// captured by value.
func EncodeTile(obj *tile.Object) ([]byte, error) {
	rec := tileRecord{
		Layer:      obj.LayerName,
		GridSet:    obj.GridSetID,
		XYZ:        obj.XYZ,
		Format:     obj.BlobFormat,
		Parameters: obj.Parameters,
		Created:    obj.Created,
	}
	if obj.Blob != nil {
		b, err := tile.ReadAll(obj.Blob)
		if err != nil {
			return nil, fmt.Errorf("read tile blob: %w", err)
		}
		rec.Blob = b
	}
	return Marshal(rec)
}

// DecodeTile restores a tile written by EncodeTile. The blob comes back as an
// in-memory resource.
func DecodeTile(data []byte) (*tile.Object, error) {
	rec, err := Unmarshal[tileRecord](data)
	if err != nil {
		return nil, errors.Join(ErrCorruptEntry, err)
	}
	blob := tile.NewByteResourceAt(rec.Blob, rec.Created)
	return tile.NewCompleteObject(rec.Layer, rec.XYZ, rec.GridSet, rec.Format, rec.Parameters, blob), nil
}
