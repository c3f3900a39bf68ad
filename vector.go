package duckdb

import (
	"runtime"
	"unsafe"

	"github.com/bits-and-blooms/bitset"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// VectorKind identifies the concrete type behind a Vector.
type VectorKind uint8

const (
	// KindFlat is a contiguous column buffer.
	KindFlat VectorKind = iota
	// KindDictionary is a flat vector read through a selection vector.
	KindDictionary
	// KindList is a LIST or MAP column.
	KindList
	// KindArray is a fixed size ARRAY column.
	KindArray
	// KindStruct is a STRUCT column.
	KindStruct
)

func (k VectorKind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindDictionary:
		return "dictionary"
	case KindList:
		return "list"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	}
	return "unknown"
}

// Vector is one of *FlatVector, *DictionaryVector, *ListVector, *ArrayVector or
// *StructVector. Switch on the concrete type, or on Kind, to reach the typed API.
type Vector interface {
	Kind() VectorKind
	Handle() capi.Vector
	vector()
}

// WrapVector returns a borrowed view of handle matching its logical type. LIST and MAP
// columns become *ListVector, ARRAY becomes *ArrayVector, STRUCT becomes *StructVector
// and everything else *FlatVector.
func (h *Host) WrapVector(handle capi.Vector) Vector {
	return h.wrapVector(handle, nil)
}

func (h *Host) wrapVector(handle capi.Vector, pin any) Vector {
	n := h.VectorSize()
	switch h.vectorType(handle) {
	case capi.TypeList, capi.TypeMap:
		return h.listView(handle, n, pin)
	case capi.TypeArray:
		return h.arrayView(handle, n, pin)
	case capi.TypeStruct:
		return h.structView(handle, n, pin)
	}
	return h.flatView(handle, n, pin)
}

// rows holds what every vector kind shares: a handle, a row capacity and the row
// validity bitmap.
type rows struct {
	host     *Host
	handle   capi.Vector
	capacity int
	// pin keeps the wrapper that owns handle reachable while this view is in use.
	pin any
}

func (r *rows) live() {
	if r.handle == 0 {
		panic(newErrorf(ErrUseAfterRelease, "use of released vector"))
	}
}

func (r *rows) checkRow(row int) {
	if row < 0 || row >= r.capacity {
		panic(newErrorf(ErrOutOfBounds, "row %d out of range for capacity %d", row, r.capacity))
	}
}

// Handle returns the engine handle.
func (r *rows) Handle() capi.Vector { return r.handle }

// Capacity returns the number of addressable rows.
func (r *rows) Capacity() int { return r.capacity }

// RowIsNull reports whether row is NULL. A vector without a validity bitmap has no
// NULL rows.
func (r *rows) RowIsNull(row int) bool {
	r.live()
	r.checkRow(row)
	words := r.host.api.VectorGetValidity(r.handle)
	if words == nil {
		return false
	}
	w := *(*uint64)(unsafe.Add(unsafe.Pointer(words), (row/64)*8))
	return w&(1<<(uint(row)%64)) == 0
}

// Validity returns the validity bitmap, or false when the engine has not materialized
// one and every row is valid.
func (r *rows) Validity() (ValidityMask, bool) {
	r.live()
	words := r.host.api.VectorGetValidity(r.handle)
	if words == nil {
		return ValidityMask{}, false
	}
	return newValidityMask(words, r.capacity), true
}

// EnsureValidity materializes a writable validity bitmap and returns it.
func (r *rows) EnsureValidity() ValidityMask {
	r.live()
	r.host.api.VectorEnsureValidityWritable(r.handle)
	return newValidityMask(r.host.api.VectorGetValidity(r.handle), r.capacity)
}

// SetNull marks row as NULL, materializing the bitmap if needed. It is idempotent.
func (r *rows) SetNull(row int) {
	r.checkRow(row)
	r.EnsureValidity().SetInvalid(row)
}

// LogicalType returns the type of the vector. The caller closes it.
func (r *rows) LogicalType() (*LogicalType, error) {
	r.live()
	return r.host.newLogicalType(r.host.api.VectorGetColumnType(r.handle), "vector")
}

// ValidityMask is a view of a vector's validity bitmap: one bit per row, set bits are
// valid rows. It aliases engine memory.
type ValidityMask struct {
	words []uint64
	rows  int
}

func newValidityMask(p *uint64, rows int) ValidityMask {
	return ValidityMask{words: unsafe.Slice(p, (rows+63)/64), rows: rows}
}

// Len returns the number of rows the mask covers.
func (m ValidityMask) Len() int { return m.rows }

// Words returns the packed bitmap words.
func (m ValidityMask) Words() []uint64 { return m.words }

// RowIsValid reports whether row is not NULL.
func (m ValidityMask) RowIsValid(row int) bool {
	return m.words[row/64]&(1<<(uint(row)%64)) != 0
}

// SetInvalid marks row as NULL.
func (m ValidityMask) SetInvalid(row int) {
	m.words[row/64] &^= 1 << (uint(row) % 64)
}

// SetValid marks row as not NULL.
func (m ValidityMask) SetValid(row int) {
	m.words[row/64] |= 1 << (uint(row) % 64)
}

// BitSet returns a bitset sharing the mask's words. Bits past Len are unspecified.
func (m ValidityMask) BitSet() *bitset.BitSet {
	return bitset.From(m.words)
}

// NullCount returns the number of NULL rows.
func (m ValidityMask) NullCount() int {
	if m.rows == 0 {
		return 0
	}
	return m.rows - int(m.BitSet().Rank(uint(m.rows-1)))
}

// FlatVector is a contiguous, nullable column buffer.
type FlatVector struct {
	rows
	own     ownership
	cleanup runtime.Cleanup
	typ     capi.TypeID
}

func (*FlatVector) vector() {}

// Kind returns KindFlat.
func (*FlatVector) Kind() VectorKind { return KindFlat }

// AllocateVector creates an owned vector of capacity rows. Close releases it.
func (h *Host) AllocateVector(lt *LogicalType, capacity int) (*FlatVector, error) {
	if err := lt.live(); err != nil {
		return nil, err
	}
	if capacity < 0 {
		return nil, newErrorf(ErrInvalidArgument, "negative vector capacity %d", capacity)
	}
	handle := h.api.CreateVector(lt.handle, uint64(capacity))
	if handle == 0 {
		return nil, newErrorf(ErrNativeAllocation, "allocate %s vector of %d rows", lt, capacity)
	}
	v := &FlatVector{rows: rows{host: h, handle: handle, capacity: capacity}, own: owned}
	api := h.api
	v.cleanup = track(h, v, "vector", func() { api.DestroyVector(&handle) })
	return v, nil
}

// FlatVectorFrom returns a borrowed view of an engine vector with the standard vector
// size as capacity.
func (h *Host) FlatVectorFrom(handle capi.Vector) *FlatVector {
	return h.flatView(handle, h.VectorSize(), nil)
}

// flatView returns a borrowed view; pin is the wrapper the view must keep alive.
func (h *Host) flatView(handle capi.Vector, capacity int, pin any) *FlatVector {
	return &FlatVector{rows: rows{host: h, handle: handle, capacity: capacity, pin: pin}}
}

// Owned reports whether Close releases the engine vector.
func (v *FlatVector) Owned() bool { return v.own == owned }

func (v *FlatVector) typeID() capi.TypeID {
	if v.typ == capi.TypeInvalid {
		v.typ = v.host.vectorType(v.handle)
	}
	return v.typ
}

// Data returns the start of the data buffer. Nested vectors without one return nil.
func (v *FlatVector) Data() unsafe.Pointer {
	v.live()
	return v.host.api.VectorGetData(v.handle)
}

// AsSlice views the data buffer as Capacity elements of T. T must match the physical
// layout of the vector's type; it is not checked.
func AsSlice[T any](v *FlatVector) []T {
	return AsSliceWithLen[T](v, v.capacity)
}

// AsSliceWithLen views the first n rows of the data buffer as T.
func AsSliceWithLen[T any](v *FlatVector, n int) []T {
	if n < 0 || n > v.capacity {
		panic(newErrorf(ErrOutOfBounds, "slice of %d rows over capacity %d", n, v.capacity))
	}
	p := v.Data()
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(p), n)
}

// Copy writes data into the first len(data) rows. Nothing is written when data does
// not fit.
func Copy[T any](v *FlatVector, data []T) error {
	if len(data) > v.capacity {
		return newErrorf(ErrOutOfBounds, "copy of %d rows into vector of capacity %d", len(data), v.capacity)
	}
	if len(data) == 0 {
		return nil
	}
	p := v.Data()
	if p == nil {
		return newErrorf(ErrType, "%s vector has no data buffer", v.typeID())
	}
	copy(unsafe.Slice((*T)(p), len(data)), data)
	return nil
}

func (v *FlatVector) checkStringRow(idx int) error {
	v.live()
	if idx < 0 || idx >= v.capacity {
		return newErrorf(ErrOutOfBounds, "row %d out of range for capacity %d", idx, v.capacity)
	}
	switch id := v.typeID(); id {
	case capi.TypeVarchar, capi.TypeBlob, capi.TypeBit:
		return nil
	default:
		return newErrorf(ErrType, "%s vector does not hold strings", id)
	}
}

// InsertString writes s into row idx of a VARCHAR or BLOB vector.
func (v *FlatVector) InsertString(idx int, s string) error {
	return v.InsertBytes(idx, unsafe.Slice(unsafe.StringData(s), len(s)))
}

// InsertBytes writes b into row idx of a VARCHAR or BLOB vector. The engine copies b.
func (v *FlatVector) InsertBytes(idx int, b []byte) error {
	if err := v.checkStringRow(idx); err != nil {
		return err
	}
	v.host.api.VectorAssignStringElementLen(v.handle, uint64(idx), b)
	return nil
}

func (v *FlatVector) stringT(row int) *capi.StringT {
	v.live()
	v.checkRow(row)
	return (*capi.StringT)(unsafe.Add(v.Data(), row*int(unsafe.Sizeof(capi.StringT{}))))
}

// StringAt returns a copy of row of a VARCHAR or BLOB vector.
func (v *FlatVector) StringAt(row int) string {
	return string(v.stringT(row).Bytes())
}

// BytesAt returns a copy of row of a VARCHAR or BLOB vector.
func (v *FlatVector) BytesAt(row int) []byte {
	b := v.stringT(row).Bytes()
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// AssignConstant turns v into a constant vector holding val. val stays owned by the
// caller. The capacity becomes 1.
func (v *FlatVector) AssignConstant(val *Value) {
	v.live()
	val.live()
	v.host.api.VectorReferenceValue(v.handle, val.handle)
	v.capacity = 1
}

// Reference makes v an alias of other's storage and adopts its capacity.
func (v *FlatVector) Reference(other *FlatVector) {
	v.live()
	other.live()
	v.host.api.VectorReferenceVector(v.handle, other.handle)
	v.capacity = other.capacity
}

// SetDictionaryID tags the vector so the engine can recognize vectors sharing a
// dictionary.
func (v *FlatVector) SetDictionaryID(id string) {
	v.live()
	v.host.api.SetDictionaryID(v.handle, []byte(id))
}

// Slice reinterprets v as a dictionary of dictLen rows indexed through sel. The
// returned DictionaryVector takes over sel and, if v is owned, the vector itself; v
// must not be used afterwards.
func (v *FlatVector) Slice(dictLen int, sel *SelectionVector) (*DictionaryVector, error) {
	v.live()
	if sel == nil || sel.handle == 0 {
		return nil, newErrorf(ErrUseAfterRelease, "slice through released selection vector")
	}
	if dictLen > v.capacity {
		return nil, newErrorf(ErrOutOfBounds,
			"dictionary of %d rows exceeds vector capacity %d", dictLen, v.capacity)
	}
	if dictLen < 0 || sel.Len() > uint64(dictLen) {
		return nil, newErrorf(ErrInvalidArgument,
			"selection of %d rows exceeds dictionary of %d", sel.Len(), dictLen)
	}
	for i, idx := range sel.raw() {
		if int64(idx) >= int64(dictLen) {
			return nil, newErrorf(ErrOutOfBounds,
				"selection row %d points at %d outside dictionary of %d", i, idx, dictLen)
		}
	}
	v.host.api.SliceVector(v.handle, uint64(dictLen), sel.handle, sel.Len())

	dv := &DictionaryVector{host: v.host, handle: v.handle, dictSize: dictLen, sel: sel, own: v.own, pin: v.pin}
	if v.own == owned {
		v.cleanup.Stop()
		api := v.host.api
		handle := v.handle
		dv.cleanup = track(v.host, dv, "vector", func() { api.DestroyVector(&handle) })
	}
	v.handle = 0
	return dv, nil
}

// Clone returns a borrowed view of the same vector.
func (v *FlatVector) Clone() *FlatVector {
	v.live()
	c := &FlatVector{rows: v.rows, typ: v.typ}
	if v.own == owned {
		c.pin = v
	}
	return c
}

// Close releases an owned vector. Borrowed views are only invalidated. Closing twice
// is a no-op.
func (v *FlatVector) Close() error {
	if v.handle == 0 {
		return nil
	}
	handle := v.handle
	v.handle = 0
	if v.own != owned {
		return nil
	}
	v.cleanup.Stop()
	v.host.destroy("vector", func() { v.host.api.DestroyVector(&handle) })
	return nil
}
