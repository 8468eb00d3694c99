package memory

import (
	"context"

	"github.com/gaborage/tilecache/storage"
	"github.com/gaborage/tilecache/tile"
)

// task is one backing store request. Each variant carries exactly the
// arguments of the store method it maps to.
type task interface {
	name() string
}

type getTask struct{ obj *tile.Object }

type putTask struct{ obj *tile.Object }

type deleteTask struct{ obj *tile.Object }

type deleteLayerTask struct{ layer string }

type deleteGridSetTask struct{ layer, gridSet string }

type deleteRangeTask struct{ rng *tile.Range }

type renameTask struct{ oldName, newName string }

type clearTask struct{}

type destroyTask struct{}

// barrierTask does nothing; waiting on it waits for everything queued before it.
type barrierTask struct{}

func (getTask) name() string           { return "get" }
func (putTask) name() string           { return "put" }
func (deleteTask) name() string        { return "delete" }
func (deleteLayerTask) name() string   { return "delete_layer" }
func (deleteGridSetTask) name() string { return "delete_gridset" }
func (deleteRangeTask) name() string   { return "delete_range" }
func (renameTask) name() string        { return "rename" }
func (clearTask) name() string         { return "clear" }
func (destroyTask) name() string       { return "destroy" }
func (barrierTask) name() string       { return "barrier" }

// layerOf returns the layer a task targets, or "".
func layerOf(t task) string {
	switch t := t.(type) {
	case getTask:
		return t.obj.LayerName
	case putTask:
		return t.obj.LayerName
	case deleteTask:
		return t.obj.LayerName
	case deleteLayerTask:
		return t.layer
	case deleteGridSetTask:
		return t.layer
	case deleteRangeTask:
		if t.rng == nil {
			return ""
		}
		return t.rng.LayerName
	case renameTask:
		return t.oldName
	default:
		return ""
	}
}

// execute runs t against the backing store. A found tile's blob is read
// into memory before execute returns, so no later task can change it under
// the reader.
func execute(ctx context.Context, backing storage.BlobStore, t task) (bool, error) {
	switch t := t.(type) {
	case getTask:
		found, err := backing.Get(ctx, t.obj)
		if err != nil || !found || t.obj.Blob == nil {
			return found, err
		}
		blob, err := tile.Detach(t.obj.Blob)
		if err != nil {
			return false, err
		}
		t.obj.SetBlob(blob)
		return true, nil
	case putTask:
		if err := backing.Put(ctx, t.obj); err != nil {
			return false, err
		}
		return true, nil
	case deleteTask:
		return backing.Delete(ctx, t.obj)
	case deleteLayerTask:
		return backing.DeleteLayer(ctx, t.layer)
	case deleteGridSetTask:
		return backing.DeleteByGridSet(ctx, t.layer, t.gridSet)
	case deleteRangeTask:
		return backing.DeleteRange(ctx, t.rng)
	case renameTask:
		return backing.Rename(ctx, t.oldName, t.newName)
	case clearTask:
		if err := backing.Clear(ctx); err != nil {
			return false, err
		}
		return true, nil
	case destroyTask:
		backing.Destroy()
		return true, nil
	case barrierTask:
		return true, nil
	default:
		panic("memory: unknown task type")
	}
}

// outcome is the result of an executed task.
type outcome struct {
	ok  bool
	err error
}

// job is a task queued for the worker. done is nil for fire-and-forget tasks.
type job struct {
	ctx  context.Context
	task task
	done chan outcome
}
