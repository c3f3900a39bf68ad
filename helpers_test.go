package duckdb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/semihalev/go-duckdb-ext/capi"
	"github.com/semihalev/go-duckdb-ext/memapi"
)

func newTestHost(t *testing.T, opts ...memapi.Option) (*Host, *memapi.Engine) {
	t.Helper()
	eng := memapi.New(opts...)
	return NewHost(eng, WithLogger(zaptest.NewLogger(t))), eng
}

func mustType(t *testing.T, h *Host, id capi.TypeID) *LogicalType {
	t.Helper()
	lt, err := h.NewLogicalType(id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lt.Close() })
	return lt
}

// requireErrorType asserts err is a vector layer error of the given type.
func requireErrorType(t *testing.T, err error, typ ErrorType) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, IsError(err, typ), "want %s error, got %v", typ, err)
}

// requirePanicsWith asserts fn panics with a vector layer error of the given type.
func requirePanicsWith(t *testing.T, typ ErrorType, fn func()) {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	require.NotNil(t, recovered, "expected panic")
	err, ok := recovered.(error)
	require.Truef(t, ok, "panic value %v is not an error", recovered)
	requireErrorType(t, err, typ)
}

// requireReleased asserts that every handle the engine handed out has been returned.
func requireReleased(t *testing.T, eng *memapi.Engine) {
	t.Helper()
	require.Equal(t, memapi.Stats{}, eng.Stats())
}
