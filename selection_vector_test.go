package duckdb

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/go-duckdb-ext/memapi"
)

func sequenceOf(n int) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = uint32(n - i)
	}
	return s
}

func TestSelectionVectorLengths(t *testing.T) {
	h, eng := newTestHost(t)

	for _, n := range []int{0, 1, 2048, 2049} {
		want := sequenceOf(n)

		copied, err := h.NewSelectionVector(want)
		require.NoError(t, err)
		assert.Equal(t, uint64(n), copied.Len())
		assert.Equal(t, append([]uint32(nil), want...), append([]uint32(nil), copied.Indices()...))

		seq, err := h.SelectionVectorFrom(Indices(want))
		require.NoError(t, err)
		assert.Equal(t, uint64(n), seq.Len())
		assert.Equal(t, copied.Indices(), seq.Indices())

		ranged, err := h.SelectionVectorFrom(Range(0, uint32(n)))
		require.NoError(t, err)
		require.Equal(t, uint64(n), ranged.Len())
		for i, idx := range ranged.Indices() {
			require.Equal(t, uint32(i), idx)
		}

		require.NoError(t, copied.Close())
		require.NoError(t, seq.Close())
		require.NoError(t, ranged.Close())
	}
	assert.Zero(t, eng.Stats().SelectionVectors)
}

// hintedSequence reports a size hint independent of what it yields.
type hintedSequence struct {
	lower, upper int
	exact        bool
	items        []uint32
	pulled       int
}

func (s *hintedSequence) SizeHint() (int, int, bool) { return s.lower, s.upper, s.exact }

func (s *hintedSequence) Next() (uint32, bool) {
	if s.pulled >= len(s.items) {
		return 0, false
	}
	s.pulled++
	return s.items[s.pulled-1], true
}

func TestSelectionVectorInexactHint(t *testing.T) {
	tests := []struct {
		name string
		seq  *hintedSequence
	}{
		{"bounds differ", &hintedSequence{lower: 2, upper: 4, exact: true, items: []uint32{1, 2, 3}}},
		{"unbounded", &hintedSequence{lower: 3, upper: 3, exact: false, items: []uint32{1, 2, 3}}},
		{"negative", &hintedSequence{lower: -1, upper: -1, exact: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, eng := newTestHost(t)
			sv, err := h.SelectionVectorFrom(tt.seq)
			requireErrorType(t, err, ErrInvalidArgument)
			assert.Nil(t, sv)
			assert.Zero(t, tt.seq.pulled, "no item may be consumed before the hint is validated")
			assert.Zero(t, eng.Stats().SelectionVectors)
		})
	}
}

func TestSelectionVectorMisreportedCount(t *testing.T) {
	t.Run("yields more", func(t *testing.T) {
		h, eng := newTestHost(t)
		seq := &hintedSequence{lower: 3, upper: 3, exact: true, items: []uint32{0, 1, 2, 3, 4}}
		sv, err := h.SelectionVectorFrom(seq)
		requireErrorType(t, err, ErrOutOfBounds)
		assert.Nil(t, sv)
		assert.Equal(t, 4, seq.pulled)
		assert.Zero(t, eng.Stats().SelectionVectors)
	})

	t.Run("yields fewer", func(t *testing.T) {
		h, eng := newTestHost(t)
		seq := &hintedSequence{lower: 5, upper: 5, exact: true, items: []uint32{0, 1}}
		sv, err := h.SelectionVectorFrom(seq)
		requireErrorType(t, err, ErrInvalidArgument)
		assert.Nil(t, sv)
		assert.Zero(t, eng.Stats().SelectionVectors)
	})
}

func TestSelectionVectorFromBitmap(t *testing.T) {
	h, _ := newTestHost(t)

	bm := roaring.BitmapOf(9, 1, 5, 1000)
	sv, err := h.SelectionVectorFromBitmap(bm)
	require.NoError(t, err)
	defer sv.Close()

	assert.Equal(t, uint64(4), sv.Len())
	assert.Equal(t, []uint32{1, 5, 9, 1000}, sv.Indices())

	empty, err := h.SelectionVectorFromBitmap(roaring.New())
	require.NoError(t, err)
	defer empty.Close()
	assert.Zero(t, empty.Len())
}

func TestSelectionVectorAllocationFailure(t *testing.T) {
	h, eng := newTestHost(t, memapi.WithMaxCapacity(4))

	_, err := h.NewSelectionVector(sequenceOf(5))
	requireErrorType(t, err, ErrNativeAllocation)

	_, err = h.SelectionVectorFrom(Range(0, 8))
	requireErrorType(t, err, ErrNativeAllocation)

	assert.Zero(t, eng.Stats().SelectionVectors)
}

func TestSelectionVectorClose(t *testing.T) {
	h, eng := newTestHost(t)

	sv, err := h.NewSelectionVector([]uint32{3, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Stats().SelectionVectors)

	require.NoError(t, sv.Close())
	require.NoError(t, sv.Close())
	assert.Zero(t, eng.Stats().SelectionVectors)

	requirePanicsWith(t, ErrUseAfterRelease, func() { sv.Indices() })
}

func TestRange(t *testing.T) {
	lower, upper, exact := Range(5, 2).SizeHint()
	assert.Equal(t, 0, lower)
	assert.Equal(t, 0, upper)
	assert.True(t, exact)

	r := Range(2, 4)
	var got []uint32
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, idx)
	}
	assert.Equal(t, []uint32{2, 3}, got)
}
