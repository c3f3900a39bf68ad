// Package memapi is a DuckDB host engine implemented in Go memory. It implements
// capi.API with the same layouts and ownership rules as libduckdb so extension code
// can be exercised without the native library.
//
// The engine is strict about ownership: destroying a handle twice, destroying a handle
// the engine owns (a child or chunk vector), or freeing a pointer it never handed out
// panics, since any of those would corrupt a real engine.
package memapi

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// DefaultVectorSize is DuckDB's STANDARD_VECTOR_SIZE.
const DefaultVectorSize = 2048

// Option configures an Engine.
type Option func(*Engine)

// WithVectorSize sets the row count of engine created vectors.
func WithVectorSize(n uint64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.vectorSize = n
		}
	}
}

// WithMaxCapacity makes vector and selection vector creation fail, returning the null
// handle, when more than n rows are requested.
func WithMaxCapacity(n uint64) Option {
	return func(e *Engine) { e.maxCapacity = n }
}

// Engine implements capi.API.
type Engine struct {
	mu          sync.Mutex
	vectorSize  uint64
	maxCapacity uint64
	next        uintptr

	types      map[capi.LogicalType]*logicalType
	vectors    map[capi.Vector]*vector
	values     map[capi.Value]*value
	selections map[capi.SelectionVector]*selection
	chunks     map[capi.DataChunk]*chunk
	allocs     map[unsafe.Pointer][]byte
}

var _ capi.API = (*Engine)(nil)

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		vectorSize: DefaultVectorSize,
		next:       0x1000,
		types:      make(map[capi.LogicalType]*logicalType),
		vectors:    make(map[capi.Vector]*vector),
		values:     make(map[capi.Value]*value),
		selections: make(map[capi.SelectionVector]*selection),
		chunks:     make(map[capi.DataChunk]*chunk),
		allocs:     make(map[unsafe.Pointer][]byte),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats counts live handles and outstanding transient allocations.
type Stats struct {
	// Vectors counts vectors created with CreateVector; child and chunk vectors are
	// owned by their parent and not counted.
	Vectors          int
	Values           int
	LogicalTypes     int
	SelectionVectors int
	DataChunks       int
	Allocations      int
}

// Stats returns a snapshot of live handle counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		Values:           len(e.values),
		LogicalTypes:     len(e.types),
		SelectionVectors: len(e.selections),
		DataChunks:       len(e.chunks),
		Allocations:      len(e.allocs),
	}
	for _, v := range e.vectors {
		if v.standalone {
			s.Vectors++
		}
	}
	return s
}

func (e *Engine) handle() uintptr {
	e.next += 8
	return e.next
}

func (e *Engine) VectorSize() uint64 { return e.vectorSize }

func (e *Engine) LibraryVersion() string { return "v1.4.0-memapi" }

func (e *Engine) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.allocs[ptr]; !ok {
		panic(fmt.Sprintf("memapi: free of unknown pointer %p", ptr))
	}
	delete(e.allocs, ptr)
}

// cstring allocates a tracked NUL terminated copy of s. Callers hold e.mu.
func (e *Engine) cstring(s string) unsafe.Pointer {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	p := unsafe.Pointer(&buf[0])
	e.allocs[p] = buf
	return p
}

func (e *Engine) tooLarge(n uint64) bool {
	return e.maxCapacity > 0 && n > e.maxCapacity
}

func validityWords(rows uint64) uint64 { return max((rows+63)/64, 1) }
