package memapi

import (
	"fmt"

	"github.com/semihalev/go-duckdb-ext/capi"
)

type chunk struct {
	vectors []*vector
	size    uint64
}

func (e *Engine) lookupChunk(dc capi.DataChunk) *chunk {
	c, ok := e.chunks[dc]
	if !ok {
		panic(fmt.Sprintf("memapi: unknown data chunk handle %#x", uintptr(dc)))
	}
	return c
}

func (e *Engine) CreateDataChunk(types []capi.LogicalType) capi.DataChunk {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &chunk{}
	for _, lt := range types {
		t := e.lookupType(lt)
		if t.id == capi.TypeInvalid {
			for _, v := range c.vectors {
				e.release(v)
			}
			return 0
		}
		c.vectors = append(c.vectors, e.newVector(t, e.vectorSize))
	}
	h := capi.DataChunk(e.handle())
	e.chunks[h] = c
	return h
}

func (e *Engine) DestroyDataChunk(dc *capi.DataChunk) {
	if dc == nil || *dc == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.chunks[*dc]
	if !ok {
		panic(fmt.Sprintf("memapi: double destroy of data chunk %#x", uintptr(*dc)))
	}
	for _, v := range c.vectors {
		e.release(v)
	}
	delete(e.chunks, *dc)
	*dc = 0
}

func (e *Engine) DataChunkGetColumnCount(dc capi.DataChunk) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.lookupChunk(dc).vectors))
}

func (e *Engine) DataChunkGetVector(dc capi.DataChunk, idx uint64) capi.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.lookupChunk(dc)
	if idx >= uint64(len(c.vectors)) {
		return 0
	}
	return c.vectors[idx].handle
}

func (e *Engine) DataChunkGetSize(dc capi.DataChunk) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupChunk(dc).size
}

func (e *Engine) DataChunkSetSize(dc capi.DataChunk, size uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if size > e.vectorSize {
		panic(fmt.Sprintf("memapi: chunk size %d exceeds vector size %d", size, e.vectorSize))
	}
	e.lookupChunk(dc).size = size
}
