package duckdb

import (
	"runtime"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// SelectionVector is an owned, fixed length buffer of row indices that remaps logical
// rows onto physical rows.
type SelectionVector struct {
	host    *Host
	handle  capi.SelectionVector
	n       uint64
	cleanup runtime.Cleanup
}

// SizedSequence produces row indices and reports its length ahead of iteration.
type SizedSequence interface {
	// SizeHint returns bounds on the number of remaining items. exact is false when
	// the upper bound is unknown.
	SizeHint() (lower, upper int, exact bool)
	// Next returns the next index, or false once the sequence is drained.
	Next() (uint32, bool)
}

// NewSelectionVector allocates a selection vector of len(indices) rows and copies
// indices into it.
func (h *Host) NewSelectionVector(indices []uint32) (*SelectionVector, error) {
	sv, err := h.allocSelection(uint64(len(indices)))
	if err != nil {
		return nil, err
	}
	copy(sv.raw(), indices)
	return sv, nil
}

// SelectionVectorFrom allocates a selection vector sized by seq's exact size hint and
// fills it from seq. Every write is bounds checked: a sequence yielding more items than
// it reported fails with ErrOutOfBounds and one yielding fewer fails with
// ErrInvalidArgument. On failure the buffer is released before returning.
func (h *Host) SelectionVectorFrom(seq SizedSequence) (*SelectionVector, error) {
	lower, upper, exact := seq.SizeHint()
	if !exact || lower != upper || lower < 0 {
		return nil, newErrorf(ErrInvalidArgument,
			"selection vector needs an exact size hint, got [%d, %d] exact=%t", lower, upper, exact)
	}
	sv, err := h.allocSelection(uint64(lower))
	if err != nil {
		return nil, err
	}
	buf := sv.raw()
	n := 0
	for {
		idx, ok := seq.Next()
		if !ok {
			break
		}
		if n >= len(buf) {
			_ = sv.Close()
			return nil, newErrorf(ErrOutOfBounds,
				"sequence yielded more than the %d indices it reported", len(buf))
		}
		buf[n] = idx
		n++
	}
	if n != len(buf) {
		_ = sv.Close()
		return nil, newErrorf(ErrInvalidArgument,
			"sequence yielded %d indices but reported %d", n, len(buf))
	}
	return sv, nil
}

// SelectionVectorFromBitmap selects the rows set in bm in ascending order.
func (h *Host) SelectionVectorFromBitmap(bm *roaring.Bitmap) (*SelectionVector, error) {
	return h.SelectionVectorFrom(&bitmapSequence{it: bm.Iterator(), left: int(bm.GetCardinality())})
}

func (h *Host) allocSelection(n uint64) (*SelectionVector, error) {
	handle := h.api.CreateSelectionVector(n)
	if handle == 0 {
		return nil, newErrorf(ErrNativeAllocation, "allocate selection vector of %d rows", n)
	}
	sv := &SelectionVector{host: h, handle: handle, n: n}
	api := h.api
	sv.cleanup = track(h, sv, "selection vector", func() { api.DestroySelectionVector(handle) })
	return sv, nil
}

func (sv *SelectionVector) raw() []uint32 {
	if sv.n == 0 {
		return nil
	}
	return unsafe.Slice(sv.host.api.SelectionVectorGetDataPtr(sv.handle), sv.n)
}

// Len returns the number of rows.
func (sv *SelectionVector) Len() uint64 { return sv.n }

// Handle returns the engine handle.
func (sv *SelectionVector) Handle() capi.SelectionVector { return sv.handle }

// Indices returns a copy of the row indices.
func (sv *SelectionVector) Indices() []uint32 {
	if sv.handle == 0 {
		panic(newErrorf(ErrUseAfterRelease, "read of released selection vector"))
	}
	return append([]uint32(nil), sv.raw()...)
}

// Close releases the buffer. Closing twice is a no-op.
func (sv *SelectionVector) Close() error {
	if sv.handle == 0 {
		return nil
	}
	sv.cleanup.Stop()
	handle := sv.handle
	sv.handle = 0
	sv.host.destroy("selection vector", func() { sv.host.api.DestroySelectionVector(handle) })
	return nil
}

type rangeSequence struct {
	next, end uint32
}

// Range yields the indices start, start+1, ..., end-1.
func Range(start, end uint32) SizedSequence {
	if end < start {
		end = start
	}
	return &rangeSequence{next: start, end: end}
}

func (r *rangeSequence) SizeHint() (int, int, bool) {
	n := int(r.end - r.next)
	return n, n, true
}

func (r *rangeSequence) Next() (uint32, bool) {
	if r.next >= r.end {
		return 0, false
	}
	r.next++
	return r.next - 1, true
}

type sliceSequence struct {
	s []uint32
}

// Indices yields the elements of s in order.
func Indices(s []uint32) SizedSequence {
	return &sliceSequence{s: s}
}

func (s *sliceSequence) SizeHint() (int, int, bool) {
	return len(s.s), len(s.s), true
}

func (s *sliceSequence) Next() (uint32, bool) {
	if len(s.s) == 0 {
		return 0, false
	}
	v := s.s[0]
	s.s = s.s[1:]
	return v, true
}

type bitmapSequence struct {
	it   roaring.IntPeekable
	left int
}

func (b *bitmapSequence) SizeHint() (int, int, bool) {
	return b.left, b.left, true
}

func (b *bitmapSequence) Next() (uint32, bool) {
	if !b.it.HasNext() {
		return 0, false
	}
	b.left--
	return b.it.Next(), true
}
