package duckdb

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/semihalev/go-duckdb-ext/capi"
	"github.com/semihalev/go-duckdb-ext/memapi"
)

func TestLeakedHandlesAreReleased(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	eng := memapi.New()
	h := NewHost(eng, WithLogger(zap.New(core)))

	func() {
		v, err := h.BoolValue(true)
		require.NoError(t, err)
		_ = v
		sv, err := h.NewSelectionVector([]uint32{1, 2})
		require.NoError(t, err)
		_ = sv
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		s := eng.Stats()
		return s.Values == 0 && s.SelectionVectors == 0
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("native handle leaked, releasing from cleanup").Len() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestClosedHandlesAreNotReleasedTwice(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	eng := memapi.New()
	h := NewHost(eng, WithLogger(zap.New(core)))

	func() {
		lt, err := h.NewLogicalType(capi.TypeInteger)
		require.NoError(t, err)
		v, err := h.AllocateVector(lt, 4)
		require.NoError(t, err)
		require.NoError(t, v.Close())
		require.NoError(t, lt.Close())
	}()

	for range 3 {
		runtime.GC()
	}
	assert.Zero(t, logs.Len(), "closed wrappers never reach the cleanup")
	assert.Equal(t, memapi.Stats{}, eng.Stats())
}

func TestDestructionFaultIsLoggedAndRaised(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	eng := memapi.New()
	h := NewHost(eng, WithLogger(zap.New(core)))

	v, err := h.VarcharValue("x")
	require.NoError(t, err)

	// Release the handle behind the wrapper's back.
	handle := v.Handle()
	eng.DestroyValue(&handle)

	assert.Panics(t, func() { _ = v.Close() })
	assert.Equal(t, 1, logs.FilterMessage("native handle release failed").Len())
}

func TestHostDefaults(t *testing.T) {
	eng := memapi.New(memapi.WithVectorSize(512))
	h := NewHost(eng, WithLogger(nil))

	assert.NotNil(t, h.Logger())
	assert.Same(t, eng, h.API())
	assert.Equal(t, 512, h.VectorSize())
}

func TestViewsKeepTheirOwnerAlive(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	eng := memapi.New()
	h := NewHost(eng, WithLogger(zap.New(core)))
	lt, err := h.NewLogicalType(capi.TypeInteger)
	require.NoError(t, err)
	defer lt.Close()

	column := func() *FlatVector {
		dc, err := h.NewDataChunk(lt)
		require.NoError(t, err)
		return dc.FlatVector(0)
	}()
	clone := func() *FlatVector {
		v, err := h.AllocateVector(lt, 4)
		require.NoError(t, err)
		return v.Clone()
	}()

	for range 3 {
		runtime.GC()
	}
	require.NoError(t, Copy(column, []int32{1, 2, 3}))
	require.NoError(t, Copy(clone, []int32{4, 5}))
	assert.Equal(t, []int32{1, 2, 3}, AsSliceWithLen[int32](column, 3))
	assert.Equal(t, []int32{4, 5}, AsSliceWithLen[int32](clone, 2))
	assert.Equal(t, 1, eng.Stats().DataChunks)
	assert.Equal(t, 1, eng.Stats().Vectors)
	assert.Zero(t, logs.Len())

	runtime.KeepAlive(column)
	runtime.KeepAlive(clone)
	require.Eventually(t, func() bool {
		runtime.GC()
		s := eng.Stats()
		return s.DataChunks == 0 && s.Vectors == 0
	}, 5*time.Second, 10*time.Millisecond, "owners are released once their last view is gone")
}

func TestChildViewsKeepTheirChunkAlive(t *testing.T) {
	eng := memapi.New()
	h := NewHost(eng)
	elem, err := h.NewLogicalType(capi.TypeBigInt)
	require.NoError(t, err)
	defer elem.Close()
	list, err := h.NewListType(elem)
	require.NoError(t, err)
	defer list.Close()

	child := func() *FlatVector {
		dc, err := h.NewDataChunk(list)
		require.NoError(t, err)
		c, err := dc.ListVector(0).Child(3)
		require.NoError(t, err)
		return c
	}()

	for range 3 {
		runtime.GC()
	}
	require.NoError(t, Copy(child, []int64{7, 8, 9}))
	assert.Equal(t, 1, eng.Stats().DataChunks)
	runtime.KeepAlive(child)
}
