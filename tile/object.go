// Package tile defines the tile model consumed by the caching tier.
// A tile is identified by layer, gridset, XYZ coordinates, blob format and an
// opaque parameter set, and carries a blob resource with its size and
// modification time.
package tile

import (
	"fmt"
	"maps"
	"time"
)

// Object is one rendered map tile plus its identity.
type Object struct {
	LayerName  string
	GridSetID  string
	XYZ        [3]int64
	BlobFormat string
	Parameters map[string]string

	Blob     Resource
	BlobSize int
	Created  time.Time
}

// NewObject creates an identity-only tile used for lookups and deletes.
func NewObject(layer string, xyz [3]int64, gridSetID, format string, params map[string]string) *Object {
	return &Object{
		LayerName:  layer,
		GridSetID:  gridSetID,
		XYZ:        xyz,
		BlobFormat: format,
		Parameters: params,
	}
}

// NewCompleteObject creates a tile carrying a blob. Size and creation time are
// taken from the resource.
func NewCompleteObject(layer string, xyz [3]int64, gridSetID, format string, params map[string]string, blob Resource) *Object {
	obj := NewObject(layer, xyz, gridSetID, format, params)
	obj.SetBlob(blob)
	return obj
}

// SetBlob replaces the blob and refreshes BlobSize and Created from it.
func (o *Object) SetBlob(blob Resource) {
	o.Blob = blob
	if blob == nil {
		o.BlobSize = 0
		return
	}
	o.BlobSize = int(blob.Size())
	o.Created = blob.LastModified()
}

// X returns the column index.
func (o *Object) X() int64 { return o.XYZ[0] }

// Y returns the row index.
func (o *Object) Y() int64 { return o.XYZ[1] }

// Z returns the zoom level.
func (o *Object) Z() int64 { return o.XYZ[2] }

// WithBlob returns a copy of the tile identity bound to a different blob. The
// parameter map is cloned so the copy shares no mutable state with o.
func (o *Object) WithBlob(blob Resource) *Object {
	return NewCompleteObject(o.LayerName, o.XYZ, o.GridSetID, o.BlobFormat, maps.Clone(o.Parameters), blob)
}

// String renders the identity for log output.
func (o *Object) String() string {
	return fmt.Sprintf("%s/%s/%v/%s", o.LayerName, o.GridSetID, o.XYZ, o.BlobFormat)
}
