package memapi

import (
	"fmt"
	"unsafe"

	"github.com/semihalev/go-duckdb-ext/capi"
)

type logicalType struct {
	id       capi.TypeID
	child    *logicalType
	size     uint64
	names    []string
	children []*logicalType
}

func (t *logicalType) width() int { return t.id.PhysicalSize() }

func (e *Engine) lookupType(lt capi.LogicalType) *logicalType {
	t, ok := e.types[lt]
	if !ok {
		panic(fmt.Sprintf("memapi: unknown logical type handle %#x", uintptr(lt)))
	}
	return t
}

func (e *Engine) registerType(t *logicalType) capi.LogicalType {
	h := capi.LogicalType(e.handle())
	e.types[h] = t
	return h
}

func (e *Engine) CreateLogicalType(id capi.TypeID) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch id {
	case capi.TypeList, capi.TypeArray, capi.TypeStruct, capi.TypeMap, capi.TypeUnion,
		capi.TypeDecimal, capi.TypeEnum:
		// Nested and parameterized types need their dedicated constructors.
		id = capi.TypeInvalid
	}
	return e.registerType(&logicalType{id: id})
}

func (e *Engine) CreateListType(child capi.LogicalType) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerType(&logicalType{id: capi.TypeList, child: e.lookupType(child)})
}

func (e *Engine) CreateArrayType(child capi.LogicalType, size uint64) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerType(&logicalType{id: capi.TypeArray, child: e.lookupType(child), size: size})
}

func (e *Engine) CreateStructType(children []capi.LogicalType, names []string) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(children) != len(names) || len(children) == 0 {
		return 0
	}
	t := &logicalType{id: capi.TypeStruct, names: append([]string(nil), names...)}
	for _, c := range children {
		t.children = append(t.children, e.lookupType(c))
	}
	return e.registerType(t)
}

func (e *Engine) DestroyLogicalType(lt *capi.LogicalType) {
	if lt == nil || *lt == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.types[*lt]; !ok {
		panic(fmt.Sprintf("memapi: double destroy of logical type %#x", uintptr(*lt)))
	}
	delete(e.types, *lt)
	*lt = 0
}

func (e *Engine) GetTypeID(lt capi.LogicalType) capi.TypeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupType(lt).id
}

func (e *Engine) ArrayTypeArraySize(lt capi.LogicalType) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.lookupType(lt)
	if t.id != capi.TypeArray {
		return 0
	}
	return t.size
}

func (e *Engine) ArrayTypeChildType(lt capi.LogicalType) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.lookupType(lt)
	if t.id != capi.TypeArray {
		return 0
	}
	return e.registerType(t.child)
}

func (e *Engine) ListTypeChildType(lt capi.LogicalType) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.lookupType(lt)
	if t.id != capi.TypeList {
		return 0
	}
	return e.registerType(t.child)
}

func (e *Engine) StructTypeChildCount(lt capi.LogicalType) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.lookupType(lt).children))
}

func (e *Engine) StructTypeChildName(lt capi.LogicalType, idx uint64) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.lookupType(lt)
	if idx >= uint64(len(t.names)) {
		return nil
	}
	return e.cstring(t.names[idx])
}

func (e *Engine) StructTypeChildType(lt capi.LogicalType, idx uint64) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.lookupType(lt)
	if idx >= uint64(len(t.children)) {
		return 0
	}
	return e.registerType(t.children[idx])
}
