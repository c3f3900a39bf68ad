package memapi

import (
	"fmt"
	"unsafe"

	"github.com/semihalev/go-duckdb-ext/capi"
)

type vector struct {
	handle   capi.Vector
	typ      *logicalType
	capacity uint64
	st       *storage

	// standalone vectors came from CreateVector and are destroyed by the caller.
	standalone bool
	constant   bool
	dict       *dictionary
	dictID     string
}

type dictionary struct {
	size uint64
	sel  []uint32
}

// storage is the physical buffer of a vector; ReferenceVector shares it.
type storage struct {
	data     []uint64
	validity []uint64
	heap     [][]byte
	children []*vector

	listSize     uint64
	listCapacity uint64
}

func words(bytes uint64) uint64 { return (bytes + 7) / 8 }

func (e *Engine) newVector(t *logicalType, capacity uint64) *vector {
	v := &vector{
		handle:   capi.Vector(e.handle()),
		typ:      t,
		capacity: capacity,
		st:       e.newStorage(t, capacity),
	}
	e.vectors[v.handle] = v
	return v
}

func (e *Engine) newStorage(t *logicalType, capacity uint64) *storage {
	st := &storage{}
	if w := uint64(t.width()); w > 0 {
		st.data = make([]uint64, max(words(w*capacity), 1))
	}
	switch t.id {
	case capi.TypeStruct:
		for _, c := range t.children {
			st.children = append(st.children, e.newVector(c, capacity))
		}
	case capi.TypeArray:
		st.children = []*vector{e.newVector(t.child, capacity*t.size)}
	case capi.TypeList, capi.TypeMap:
		st.listCapacity = e.vectorSize
		st.children = []*vector{e.newVector(t.child, st.listCapacity)}
	}
	return st
}

// release unregisters v and everything it owns.
func (e *Engine) release(v *vector) {
	delete(e.vectors, v.handle)
	for _, c := range v.st.children {
		if _, ok := e.vectors[c.handle]; ok {
			e.release(c)
		}
	}
}

// grow resizes v in place to capacity rows, preserving contents.
func (e *Engine) grow(v *vector, capacity uint64) {
	if capacity <= v.capacity {
		return
	}
	st := v.st
	if w := uint64(v.typ.width()); w > 0 {
		data := make([]uint64, words(w*capacity))
		copy(data, st.data)
		st.data = data
	}
	if st.validity != nil {
		validity := make([]uint64, validityWords(capacity))
		for i := range validity {
			validity[i] = ^uint64(0)
		}
		copy(validity, st.validity)
		st.validity = validity
	}
	switch v.typ.id {
	case capi.TypeStruct:
		for _, c := range st.children {
			e.grow(c, capacity)
		}
	case capi.TypeArray:
		e.grow(st.children[0], capacity*v.typ.size)
	}
	v.capacity = capacity
}

func (e *Engine) lookupVector(vec capi.Vector) *vector {
	v, ok := e.vectors[vec]
	if !ok {
		panic(fmt.Sprintf("memapi: unknown vector handle %#x", uintptr(vec)))
	}
	return v
}

func (e *Engine) CreateVector(lt capi.LogicalType, capacity uint64) capi.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.types[lt]
	if !ok || t.id == capi.TypeInvalid || e.tooLarge(capacity) {
		return 0
	}
	v := e.newVector(t, capacity)
	v.standalone = true
	return v.handle
}

func (e *Engine) DestroyVector(vec *capi.Vector) {
	if vec == nil || *vec == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vectors[*vec]
	if !ok {
		panic(fmt.Sprintf("memapi: double destroy of vector %#x", uintptr(*vec)))
	}
	if !v.standalone {
		panic(fmt.Sprintf("memapi: destroy of engine owned vector %#x", uintptr(*vec)))
	}
	e.release(v)
	*vec = 0
}

func (e *Engine) VectorGetColumnType(vec capi.Vector) capi.LogicalType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerType(e.lookupVector(vec).typ)
}

func (e *Engine) VectorGetData(vec capi.Vector) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if len(v.st.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&v.st.data[0])
}

func (e *Engine) VectorGetValidity(vec capi.Vector) *uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if v.st.validity == nil {
		return nil
	}
	return &v.st.validity[0]
}

func (e *Engine) VectorEnsureValidityWritable(vec capi.Vector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureValidity(e.lookupVector(vec))
}

func (e *Engine) ensureValidity(v *vector) {
	if v.st.validity != nil {
		return
	}
	v.st.validity = make([]uint64, validityWords(v.capacity))
	for i := range v.st.validity {
		v.st.validity[i] = ^uint64(0)
	}
}

func (e *Engine) VectorAssignStringElementLen(vec capi.Vector, idx uint64, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	switch v.typ.id {
	case capi.TypeVarchar, capi.TypeBlob, capi.TypeBit:
	default:
		panic(fmt.Sprintf("memapi: assign string element to %s vector", v.typ.id))
	}
	if idx >= v.capacity {
		panic(fmt.Sprintf("memapi: string element %d out of range for capacity %d", idx, v.capacity))
	}
	writeString(v.st, idx, data)
}

func writeString(st *storage, idx uint64, data []byte) {
	rec := unsafe.Add(unsafe.Pointer(&st.data[0]), idx*16)
	raw := unsafe.Slice((*byte)(rec), 16)
	clear(raw)
	*(*uint32)(rec) = uint32(len(data))
	if len(data) <= capi.StringInlineLength {
		copy(raw[4:], data)
		return
	}
	payload := append([]byte(nil), data...)
	st.heap = append(st.heap, payload)
	copy(raw[4:8], payload)
	*(*uintptr)(unsafe.Add(rec, 8)) = uintptr(unsafe.Pointer(&payload[0]))
}

func (e *Engine) VectorReferenceValue(vec capi.Vector, val capi.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	x := e.lookupValue(val)
	// A constant vector keeps its row count; only row 0 is meaningful.
	v.st = e.newStorage(v.typ, v.capacity)
	if x.null {
		e.ensureValidity(v)
		v.st.validity[0] &^= 1
	} else {
		writeScalar(v.typ, v.st, x)
	}
	v.constant = true
	v.dict = nil
}

func (e *Engine) VectorReferenceVector(to, from capi.Vector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dst := e.lookupVector(to)
	src := e.lookupVector(from)
	if dst.typ.id != src.typ.id {
		panic(fmt.Sprintf("memapi: reference %s vector from %s vector", dst.typ.id, src.typ.id))
	}
	dst.st = src.st
	dst.capacity = src.capacity
	dst.constant = src.constant
	dst.dict = src.dict
}

func (e *Engine) SliceVector(vec capi.Vector, dictSize uint64, sel capi.SelectionVector, length uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	s := e.lookupSelection(sel)
	if dictSize > v.capacity {
		panic(fmt.Sprintf("memapi: dictionary of %d rows over vector capacity %d", dictSize, v.capacity))
	}
	if length > uint64(len(s.data)) || length > dictSize {
		panic(fmt.Sprintf("memapi: slice of %d rows over dictionary of %d", length, dictSize))
	}
	d := &dictionary{size: dictSize, sel: append([]uint32(nil), s.data[:length]...)}
	for _, idx := range d.sel {
		if uint64(idx) >= dictSize {
			panic(fmt.Sprintf("memapi: selection index %d outside dictionary of %d", idx, dictSize))
		}
	}
	v.dict = d
}

func (e *Engine) SetDictionaryID(vec capi.Vector, id []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lookupVector(vec).dictID = string(id)
}

func (e *Engine) ListVectorGetChild(vec capi.Vector) capi.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if v.typ.id != capi.TypeList && v.typ.id != capi.TypeMap {
		return 0
	}
	return v.st.children[0].handle
}

func (e *Engine) ListVectorGetSize(vec capi.Vector) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupVector(vec).st.listSize
}

func (e *Engine) ListVectorSetSize(vec capi.Vector, size uint64) capi.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if v.typ.id != capi.TypeList && v.typ.id != capi.TypeMap {
		return capi.Failure
	}
	if size > v.st.listCapacity {
		return capi.Failure
	}
	v.st.listSize = size
	return capi.Success
}

func (e *Engine) ListVectorReserve(vec capi.Vector, capacity uint64) capi.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if v.typ.id != capi.TypeList && v.typ.id != capi.TypeMap {
		return capi.Failure
	}
	if capacity <= v.st.listCapacity {
		return capi.Success
	}
	if e.tooLarge(capacity) {
		return capi.Failure
	}
	newCap := max(v.st.listCapacity, 1)
	for newCap < capacity {
		newCap *= 2
	}
	e.grow(v.st.children[0], newCap)
	v.st.listCapacity = newCap
	return capi.Success
}

func (e *Engine) ArrayVectorGetChild(vec capi.Vector) capi.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if v.typ.id != capi.TypeArray {
		return 0
	}
	return v.st.children[0].handle
}

func (e *Engine) StructVectorGetChild(vec capi.Vector, idx uint64) capi.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.lookupVector(vec)
	if v.typ.id != capi.TypeStruct || idx >= uint64(len(v.st.children)) {
		return 0
	}
	return v.st.children[idx].handle
}

// IsConstant reports whether vec was collapsed to a constant by VectorReferenceValue.
func (e *Engine) IsConstant(vec capi.Vector) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupVector(vec).constant
}

// Dictionary returns the dictionary size and row selection attached by SliceVector.
func (e *Engine) Dictionary(vec capi.Vector) (size uint64, sel []uint32, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.lookupVector(vec).dict
	if d == nil {
		return 0, nil, false
	}
	return d.size, append([]uint32(nil), d.sel...), true
}

// DictionaryID returns the identifier attached by SetDictionaryID.
func (e *Engine) DictionaryID(vec capi.Vector) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupVector(vec).dictID
}

// ListCapacity returns the reserved child capacity of a LIST vector.
func (e *Engine) ListCapacity(vec capi.Vector) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupVector(vec).st.listCapacity
}
