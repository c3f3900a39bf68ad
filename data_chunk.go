package duckdb

import (
	"runtime"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// DataChunk is a batch of column vectors sharing a row count.
type DataChunk struct {
	host    *Host
	handle  capi.DataChunk
	own     ownership
	cleanup runtime.Cleanup
}

// NewDataChunk creates an owned chunk with one column per type. Its vectors hold
// VectorSize rows and are released with the chunk.
func (h *Host) NewDataChunk(types ...*LogicalType) (*DataChunk, error) {
	handles := make([]capi.LogicalType, len(types))
	for i, lt := range types {
		if err := lt.live(); err != nil {
			return nil, err
		}
		handles[i] = lt.handle
	}
	handle := h.api.CreateDataChunk(handles)
	if handle == 0 {
		return nil, newErrorf(ErrNativeAllocation, "create data chunk of %d columns", len(types))
	}
	dc := &DataChunk{host: h, handle: handle, own: owned}
	api := h.api
	dc.cleanup = track(h, dc, "data chunk", func() { api.DestroyDataChunk(&handle) })
	return dc, nil
}

// DataChunkFrom returns a borrowed view of an engine chunk.
func (h *Host) DataChunkFrom(handle capi.DataChunk) *DataChunk {
	return &DataChunk{host: h, handle: handle}
}

func (dc *DataChunk) live() {
	if dc.handle == 0 {
		panic(newErrorf(ErrUseAfterRelease, "use of released data chunk"))
	}
}

// Handle returns the engine handle.
func (dc *DataChunk) Handle() capi.DataChunk { return dc.handle }

// ColumnCount returns the number of columns.
func (dc *DataChunk) ColumnCount() int {
	dc.live()
	return int(dc.host.api.DataChunkGetColumnCount(dc.handle))
}

// Len returns the number of rows in the chunk.
func (dc *DataChunk) Len() int {
	dc.live()
	return int(dc.host.api.DataChunkGetSize(dc.handle))
}

// SetLen sets the number of rows in the chunk.
func (dc *DataChunk) SetLen(n int) error {
	dc.live()
	if n < 0 || n > dc.host.VectorSize() {
		return newErrorf(ErrOutOfBounds, "chunk length %d outside [0, %d]", n, dc.host.VectorSize())
	}
	dc.host.api.DataChunkSetSize(dc.handle, uint64(n))
	return nil
}

func (dc *DataChunk) column(idx int) capi.Vector {
	if n := dc.ColumnCount(); idx < 0 || idx >= n {
		panic(newErrorf(ErrOutOfBounds, "column %d out of range for %d columns", idx, n))
	}
	return dc.host.api.DataChunkGetVector(dc.handle, uint64(idx))
}

// Vector returns column idx as the vector kind matching its type.
func (dc *DataChunk) Vector(idx int) Vector { return dc.host.wrapVector(dc.column(idx), dc) }

// FlatVector returns column idx as a flat vector.
func (dc *DataChunk) FlatVector(idx int) *FlatVector {
	return dc.host.flatView(dc.column(idx), dc.host.VectorSize(), dc)
}

// ListVector returns column idx as a list vector.
func (dc *DataChunk) ListVector(idx int) *ListVector {
	return dc.host.listView(dc.column(idx), dc.host.VectorSize(), dc)
}

// ArrayVector returns column idx as an array vector.
func (dc *DataChunk) ArrayVector(idx int) *ArrayVector {
	return dc.host.arrayView(dc.column(idx), dc.host.VectorSize(), dc)
}

// StructVector returns column idx as a struct vector.
func (dc *DataChunk) StructVector(idx int) *StructVector {
	return dc.host.structView(dc.column(idx), dc.host.VectorSize(), dc)
}

// Close releases an owned chunk and its vectors. Closing twice is a no-op.
func (dc *DataChunk) Close() error {
	if dc.handle == 0 {
		return nil
	}
	handle := dc.handle
	dc.handle = 0
	if dc.own != owned {
		return nil
	}
	dc.cleanup.Stop()
	dc.host.destroy("data chunk", func() { dc.host.api.DestroyDataChunk(&handle) })
	return nil
}
