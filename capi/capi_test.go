package capi

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestRecordLayouts(t *testing.T) {
	assert.Equal(t, uintptr(16), unsafe.Sizeof(StringT{}))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(StringT{}.Ptr))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(ListEntry{}))
}

func TestStringTBytes(t *testing.T) {
	short := &StringT{Length: 3}
	copy(unsafe.Slice(&short.Prefix[0], 12), "abc")
	assert.True(t, short.Inlined())
	assert.Equal(t, "abc", string(short.Bytes()))

	payload := []byte("thirteen byte")
	long := StringT{Length: uint32(len(payload))}
	copy(long.Prefix[:], payload)
	*(**byte)(unsafe.Pointer(&long.Ptr)) = &payload[0]
	assert.False(t, long.Inlined())
	assert.Equal(t, "thirteen byte", string(long.Bytes()))
	runtime.KeepAlive(payload)

	inline := &StringT{Length: 12}
	copy(unsafe.Slice(&inline.Prefix[0], 12), "twelve bytes")
	copied := *inline
	assert.Equal(t, "twelve bytes", string(copied.Bytes()), "inline payloads survive value copies")

	assert.Nil(t, (&StringT{}).Bytes())
}

func TestTypeID(t *testing.T) {
	tests := []struct {
		id   TypeID
		name string
		size int
	}{
		{TypeBoolean, "BOOLEAN", 1},
		{TypeSmallInt, "SMALLINT", 2},
		{TypeDate, "DATE", 4},
		{TypeTimestampNS, "TIMESTAMP_NS", 8},
		{TypeUUID, "UUID", 16},
		{TypeVarchar, "VARCHAR", 16},
		{TypeList, "LIST", 16},
		{TypeStruct, "STRUCT", 0},
		{TypeArray, "ARRAY", 0},
		{TypeID(99), "UNKNOWN", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.id.String())
		assert.Equal(t, tt.size, tt.id.PhysicalSize(), tt.name)
	}
}

func TestGoString(t *testing.T) {
	assert.Empty(t, GoString(nil))
	buf := []byte("duckdb\x00tail")
	assert.Equal(t, "duckdb", GoString(unsafe.Pointer(&buf[0])))
	empty := []byte{0}
	assert.Empty(t, GoString(unsafe.Pointer(&empty[0])))
}
