package duckdb

import (
	"unsafe"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// ListVector is a borrowed view of a LIST column. Each row is an offset and length into
// a single child vector.
type ListVector struct {
	rows
	reserved uint64
}

func (*ListVector) vector() {}

// Kind returns KindList.
func (*ListVector) Kind() VectorKind { return KindList }

// ListVectorFrom returns a borrowed view of an engine LIST vector.
func (h *Host) ListVectorFrom(handle capi.Vector) *ListVector {
	return h.listView(handle, h.VectorSize(), nil)
}

// Len returns the total number of child elements across all rows.
func (lv *ListVector) Len() int {
	lv.live()
	return int(lv.host.api.ListVectorGetSize(lv.handle))
}

// IsEmpty reports whether the list has no child elements.
func (lv *ListVector) IsEmpty() bool { return lv.Len() == 0 }

// reserve grows the child storage to at least n elements. Capacity already granted
// to this view is not requested again.
func (lv *ListVector) reserve(n int) error {
	lv.live()
	if n < 0 {
		return newErrorf(ErrInvalidArgument, "negative list capacity %d", n)
	}
	if uint64(n) <= lv.reserved {
		return nil
	}
	if lv.host.api.ListVectorReserve(lv.handle, uint64(n)) != capi.Success {
		return newErrorf(ErrNativeAllocation, "reserve %d list elements", n)
	}
	lv.reserved = uint64(n)
	return nil
}

func (lv *ListVector) child() capi.Vector {
	return lv.host.api.ListVectorGetChild(lv.handle)
}

// Child reserves capacity child elements and returns a view over them.
func (lv *ListVector) Child(capacity int) (*FlatVector, error) {
	if err := lv.reserve(capacity); err != nil {
		return nil, err
	}
	return lv.host.flatView(lv.child(), capacity, lv.pin), nil
}

// StructChild reserves capacity child elements of a LIST(STRUCT) and returns them.
func (lv *ListVector) StructChild(capacity int) (*StructVector, error) {
	if err := lv.reserve(capacity); err != nil {
		return nil, err
	}
	return lv.host.structView(lv.child(), capacity, lv.pin), nil
}

// ListChild returns the child of a LIST(LIST).
func (lv *ListVector) ListChild() *ListVector {
	lv.live()
	return lv.host.listView(lv.child(), int(max(lv.reserved, lv.host.api.ListVectorGetSize(lv.handle))), lv.pin)
}

// ArrayChild returns the child of a LIST(ARRAY).
func (lv *ListVector) ArrayChild() *ArrayVector {
	lv.live()
	return lv.host.arrayView(lv.child(), int(max(lv.reserved, lv.host.api.ListVectorGetSize(lv.handle))), lv.pin)
}

// Entries views the per row offset and length pairs.
func (lv *ListVector) Entries() []capi.ListEntry {
	lv.live()
	p := lv.host.api.VectorGetData(lv.handle)
	if p == nil || lv.capacity == 0 {
		return nil
	}
	return unsafe.Slice((*capi.ListEntry)(p), lv.capacity)
}

// SetEntry writes the offset and length of row. Only row is checked; the range must
// lie within the reserved child capacity.
func (lv *ListVector) SetEntry(row int, offset, length uint64) error {
	lv.live()
	if row < 0 || row >= lv.capacity {
		return newErrorf(ErrOutOfBounds, "list row %d out of range for capacity %d", row, lv.capacity)
	}
	lv.Entries()[row] = capi.ListEntry{Offset: offset, Length: length}
	return nil
}

// SetLen sets the total number of materialized child elements.
func (lv *ListVector) SetLen(n int) error {
	lv.live()
	if n < 0 {
		return newErrorf(ErrInvalidArgument, "negative list length %d", n)
	}
	if lv.host.api.ListVectorSetSize(lv.handle, uint64(n)) != capi.Success {
		return newErrorf(ErrOutOfBounds, "list length %d exceeds reserved child capacity", n)
	}
	return nil
}

// SetChild reserves len(data) child elements, copies data into them and sets the list
// length.
func SetChild[T any](lv *ListVector, data []T) error {
	child, err := lv.Child(len(data))
	if err != nil {
		return err
	}
	if err := Copy(child, data); err != nil {
		return err
	}
	return lv.SetLen(len(data))
}

func (h *Host) listView(handle capi.Vector, capacity int, pin any) *ListVector {
	return &ListVector{rows: rows{host: h, handle: handle, capacity: capacity, pin: pin}}
}

// ArrayVector is a borrowed view of an ARRAY column, where every row holds the same
// number of child elements.
type ArrayVector struct {
	rows
	size int
}

func (*ArrayVector) vector() {}

// Kind returns KindArray.
func (*ArrayVector) Kind() VectorKind { return KindArray }

// ArrayVectorFrom returns a borrowed view of an engine ARRAY vector.
func (h *Host) ArrayVectorFrom(handle capi.Vector) *ArrayVector {
	return h.arrayView(handle, h.VectorSize(), nil)
}

func (h *Host) arrayView(handle capi.Vector, capacity int, pin any) *ArrayVector {
	return &ArrayVector{rows: rows{host: h, handle: handle, capacity: capacity, pin: pin}, size: -1}
}

// ArraySize returns the element count of every row.
func (av *ArrayVector) ArraySize() int {
	av.live()
	if av.size < 0 {
		av.host.withVectorType(av.handle, func(lt capi.LogicalType) {
			av.size = int(av.host.api.ArrayTypeArraySize(lt))
		})
	}
	return av.size
}

// Child returns a view of the first capacity child elements. The child holds
// Capacity()*ArraySize() elements.
func (av *ArrayVector) Child(capacity int) (*FlatVector, error) {
	total := av.capacity * av.ArraySize()
	if capacity < 0 || capacity > total {
		return nil, newErrorf(ErrOutOfBounds, "array child of %d elements exceeds %d", capacity, total)
	}
	return av.host.flatView(av.host.api.ArrayVectorGetChild(av.handle), capacity, av.pin), nil
}

// SetArrayChild copies data into the child elements of av, row after row.
func SetArrayChild[T any](av *ArrayVector, data []T) error {
	child, err := av.Child(len(data))
	if err != nil {
		return err
	}
	return Copy(child, data)
}

// StructVector is a borrowed view of a STRUCT column. Child names and count come from
// the logical type.
type StructVector struct {
	rows
	n int
}

func (*StructVector) vector() {}

// Kind returns KindStruct.
func (*StructVector) Kind() VectorKind { return KindStruct }

// StructVectorFrom returns a borrowed view of an engine STRUCT vector.
func (h *Host) StructVectorFrom(handle capi.Vector) *StructVector {
	return h.structView(handle, h.VectorSize(), nil)
}

func (h *Host) structView(handle capi.Vector, capacity int, pin any) *StructVector {
	return &StructVector{rows: rows{host: h, handle: handle, capacity: capacity, pin: pin}, n: -1}
}

// NumChildren returns the number of struct members.
func (sv *StructVector) NumChildren() int {
	sv.live()
	if sv.n < 0 {
		sv.host.withVectorType(sv.handle, func(lt capi.LogicalType) {
			sv.n = int(sv.host.api.StructTypeChildCount(lt))
		})
	}
	return sv.n
}

// ChildName returns the name of member idx.
func (sv *StructVector) ChildName(idx int) string {
	sv.checkChild(idx)
	var name string
	sv.host.withVectorType(sv.handle, func(lt capi.LogicalType) {
		name = sv.host.takeString(sv.host.api.StructTypeChildName(lt, uint64(idx)))
	})
	return name
}

func (sv *StructVector) checkChild(idx int) {
	if n := sv.NumChildren(); idx < 0 || idx >= n {
		panic(newErrorf(ErrOutOfBounds, "struct child %d out of range for %d children", idx, n))
	}
}

func (sv *StructVector) child(idx int) capi.Vector {
	sv.checkChild(idx)
	return sv.host.api.StructVectorGetChild(sv.handle, uint64(idx))
}

// Child returns member idx as a flat vector of capacity rows.
func (sv *StructVector) Child(idx, capacity int) *FlatVector {
	return sv.host.flatView(sv.child(idx), capacity, sv.pin)
}

// StructChild returns member idx of a nested STRUCT.
func (sv *StructVector) StructChild(idx int) *StructVector {
	return sv.host.structView(sv.child(idx), sv.capacity, sv.pin)
}

// ListChild returns member idx of type LIST.
func (sv *StructVector) ListChild(idx int) *ListVector {
	return sv.host.listView(sv.child(idx), sv.capacity, sv.pin)
}

// ArrayChild returns member idx of type ARRAY.
func (sv *StructVector) ArrayChild(idx int) *ArrayVector {
	return sv.host.arrayView(sv.child(idx), sv.capacity, sv.pin)
}
