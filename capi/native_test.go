package capi

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOpenMissingLibrary(t *testing.T) {
	_, err := Open(WithLibraryPath("/nonexistent/libduckdb.so"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLibraryNotFound))
}

func TestLibraryPathEnv(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/opt/duckdb/libduckdb.so")
	assert.Equal(t, []string{"/opt/duckdb/libduckdb.so"}, findLibraryPaths())

	t.Setenv(LibraryPathEnv, "")
	paths := findLibraryPaths()
	assert.Equal(t, libraryName(), paths[len(paths)-1])
}

// TestLibrary runs against a real libduckdb when one can be found.
func TestLibrary(t *testing.T) {
	lib, err := Open(WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Skipf("libduckdb not available: %v", err)
	}
	defer lib.Close()

	assert.NotEmpty(t, lib.LibraryVersion())
	assert.True(t, lib.Version().AtLeast(0, 9, 0))
	assert.NotEmpty(t, lib.Path())
	assert.Positive(t, lib.VectorSize())

	if !lib.Supports("duckdb_create_vector") {
		t.Skip("duckdb_create_vector not exported by this library")
	}

	lt := lib.CreateLogicalType(TypeVarchar)
	require.NotZero(t, lt)
	defer lib.DestroyLogicalType(&lt)
	assert.Equal(t, TypeVarchar, lib.GetTypeID(lt))

	vec := lib.CreateVector(lt, 4)
	require.NotZero(t, vec)
	defer lib.DestroyVector(&vec)

	lib.VectorAssignStringElementLen(vec, 1, []byte("a longer string than inline"))
	rec := (*StringT)(unsafe.Add(lib.VectorGetData(vec), unsafe.Sizeof(StringT{})))
	assert.Equal(t, "a longer string than inline", string(rec.Bytes()))

	val := lib.CreateInt64(42)
	defer lib.DestroyValue(&val)
	assert.Equal(t, int64(42), lib.GetInt64(val))
	s := lib.GetVarchar(val)
	assert.Equal(t, "42", GoString(s))
	lib.Free(s)
}

func TestDictionaryIDsArePinnedOncePerID(t *testing.T) {
	var live [][]byte
	lib := &Library{missing: map[string]struct{}{}}
	lib.malloc = func(n uintptr) unsafe.Pointer {
		buf := make([]byte, n)
		live = append(live, buf)
		return unsafe.Pointer(&buf[0])
	}
	freed := 0
	lib.free = func(unsafe.Pointer) { freed++ }

	a := lib.pinID([]byte("dict-a"))
	for range 100 {
		assert.Equal(t, a, lib.pinID([]byte("dict-a")))
	}
	b := lib.pinID([]byte("dict-b"))
	assert.NotEqual(t, a, b)
	assert.Len(t, live, 2)
	assert.Equal(t, "dict-a", GoString(a))

	require.NoError(t, lib.Close())
	assert.Equal(t, 2, freed)
}
