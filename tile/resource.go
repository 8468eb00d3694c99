package tile

import (
	"bytes"
	"io"
	"os"
	"time"
)

// Resource is the payload of a tile. Implementations may be memory or file backed.
type Resource interface {
	// Size returns the payload length in bytes, or -1 when unknown.
	Size() int64

	// LastModified returns the payload's modification time.
	LastModified() time.Time

	// Open returns a reader over the payload. Callers must close it.
	Open() (io.ReadCloser, error)
}

// ByteResource is an in-memory payload.
type ByteResource struct {
	contents []byte
	modified time.Time
}

// NewByteResource wraps b without copying it. The modification time is now.
func NewByteResource(b []byte) *ByteResource {
	return &ByteResource{contents: b, modified: time.Now()}
}

// NewByteResourceAt wraps b with an explicit modification time.
func NewByteResourceAt(b []byte, modified time.Time) *ByteResource {
	return &ByteResource{contents: b, modified: modified}
}

// Contents returns the underlying bytes. The slice is shared, not copied.
func (r *ByteResource) Contents() []byte { return r.contents }

func (r *ByteResource) Size() int64 { return int64(len(r.contents)) }

func (r *ByteResource) LastModified() time.Time { return r.modified }

func (r *ByteResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.contents)), nil
}

// FileResource is a payload stored on disk. The file may be removed by its
// owner at any time after the call that handed it over returns.
type FileResource struct {
	path string
}

// NewFileResource references the file at path.
func NewFileResource(path string) *FileResource {
	return &FileResource{path: path}
}

// Path returns the referenced file path.
func (r *FileResource) Path() string { return r.path }

func (r *FileResource) Size() int64 {
	info, err := os.Stat(r.path)
	if err != nil {
		return -1
	}
	return info.Size()
}

func (r *FileResource) LastModified() time.Time {
	info, err := os.Stat(r.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (r *FileResource) Open() (io.ReadCloser, error) {
	return os.Open(r.path)
}

// ReadAll returns the full payload of res.
func ReadAll(res Resource) ([]byte, error) {
	r, err := res.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Detach returns an in-memory copy of res that shares no storage with it. The
// copy keeps the modification time of the source.
func Detach(res Resource) (*ByteResource, error) {
	modified := res.LastModified()
	if br, ok := res.(*ByteResource); ok {
		return NewByteResourceAt(bytes.Clone(br.contents), modified), nil
	}
	b, err := ReadAll(res)
	if err != nil {
		return nil, err
	}
	return NewByteResourceAt(b, modified), nil
}
