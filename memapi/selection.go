package memapi

import (
	"fmt"

	"github.com/semihalev/go-duckdb-ext/capi"
)

type selection struct {
	data []uint32
}

func (e *Engine) lookupSelection(sel capi.SelectionVector) *selection {
	s, ok := e.selections[sel]
	if !ok {
		panic(fmt.Sprintf("memapi: unknown selection vector handle %#x", uintptr(sel)))
	}
	return s
}

func (e *Engine) CreateSelectionVector(size uint64) capi.SelectionVector {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tooLarge(size) {
		return 0
	}
	// Backing storage is never empty so the data pointer is always valid.
	buf := make([]uint32, max(size, 1))
	h := capi.SelectionVector(e.handle())
	e.selections[h] = &selection{data: buf[:size]}
	return h
}

func (e *Engine) DestroySelectionVector(sel capi.SelectionVector) {
	if sel == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.selections[sel]; !ok {
		panic(fmt.Sprintf("memapi: double destroy of selection vector %#x", uintptr(sel)))
	}
	delete(e.selections, sel)
}

func (e *Engine) SelectionVectorGetDataPtr(sel capi.SelectionVector) *uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.lookupSelection(sel)
	return &s.data[:1][0]
}
