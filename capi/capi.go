// Package capi describes the capability surface the vector layer consumes from the
// DuckDB engine. Every method of API mirrors one function of the DuckDB C API; handle
// types are opaque pointers owned by the engine.
//
// Two implementations exist: Library binds a real libduckdb shared library at
// runtime through purego, and package memapi provides a pure Go engine.
package capi

import "unsafe"

// Opaque engine handles. The zero value is the null handle.
type (
	Vector          uintptr
	Value           uintptr
	LogicalType     uintptr
	SelectionVector uintptr
	DataChunk       uintptr
)

// State is the duckdb_state return code.
type State int32

const (
	Success State = 0
	Failure State = 1
)

// TypeID is the duckdb_type enumeration.
type TypeID int32

const (
	TypeInvalid     TypeID = 0
	TypeBoolean     TypeID = 1
	TypeTinyInt     TypeID = 2
	TypeSmallInt    TypeID = 3
	TypeInteger     TypeID = 4
	TypeBigInt      TypeID = 5
	TypeUTinyInt    TypeID = 6
	TypeUSmallInt   TypeID = 7
	TypeUInteger    TypeID = 8
	TypeUBigInt     TypeID = 9
	TypeFloat       TypeID = 10
	TypeDouble      TypeID = 11
	TypeTimestamp   TypeID = 12
	TypeDate        TypeID = 13
	TypeTime        TypeID = 14
	TypeInterval    TypeID = 15
	TypeHugeInt     TypeID = 16
	TypeVarchar     TypeID = 17
	TypeBlob        TypeID = 18
	TypeDecimal     TypeID = 19
	TypeTimestampS  TypeID = 20
	TypeTimestampMS TypeID = 21
	TypeTimestampNS TypeID = 22
	TypeEnum        TypeID = 23
	TypeList        TypeID = 24
	TypeStruct      TypeID = 25
	TypeMap         TypeID = 26
	TypeUUID        TypeID = 27
	TypeUnion       TypeID = 28
	TypeBit         TypeID = 29
	TypeTimeTZ      TypeID = 30
	TypeTimestampTZ TypeID = 31
	TypeUHugeInt    TypeID = 32
	TypeArray       TypeID = 33
)

var typeNames = map[TypeID]string{
	TypeInvalid:     "INVALID",
	TypeBoolean:     "BOOLEAN",
	TypeTinyInt:     "TINYINT",
	TypeSmallInt:    "SMALLINT",
	TypeInteger:     "INTEGER",
	TypeBigInt:      "BIGINT",
	TypeUTinyInt:    "UTINYINT",
	TypeUSmallInt:   "USMALLINT",
	TypeUInteger:    "UINTEGER",
	TypeUBigInt:     "UBIGINT",
	TypeFloat:       "FLOAT",
	TypeDouble:      "DOUBLE",
	TypeTimestamp:   "TIMESTAMP",
	TypeDate:        "DATE",
	TypeTime:        "TIME",
	TypeInterval:    "INTERVAL",
	TypeHugeInt:     "HUGEINT",
	TypeVarchar:     "VARCHAR",
	TypeBlob:        "BLOB",
	TypeDecimal:     "DECIMAL",
	TypeTimestampS:  "TIMESTAMP_S",
	TypeTimestampMS: "TIMESTAMP_MS",
	TypeTimestampNS: "TIMESTAMP_NS",
	TypeEnum:        "ENUM",
	TypeList:        "LIST",
	TypeStruct:      "STRUCT",
	TypeMap:         "MAP",
	TypeUUID:        "UUID",
	TypeUnion:       "UNION",
	TypeBit:         "BIT",
	TypeTimeTZ:      "TIME WITH TIME ZONE",
	TypeTimestampTZ: "TIMESTAMP WITH TIME ZONE",
	TypeUHugeInt:    "UHUGEINT",
	TypeArray:       "ARRAY",
}

// String returns the SQL name of the type.
func (t TypeID) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// PhysicalSize returns the width in bytes of one row of the type in a flat vector's
// data buffer. Nested types without a data buffer (STRUCT, ARRAY) and unknown types
// report 0.
func (t TypeID) PhysicalSize() int {
	switch t {
	case TypeBoolean, TypeTinyInt, TypeUTinyInt:
		return 1
	case TypeSmallInt, TypeUSmallInt:
		return 2
	case TypeInteger, TypeUInteger, TypeFloat, TypeDate:
		return 4
	case TypeBigInt, TypeUBigInt, TypeDouble, TypeTime, TypeTimestamp,
		TypeTimestampS, TypeTimestampMS, TypeTimestampNS, TypeTimestampTZ, TypeTimeTZ:
		return 8
	case TypeHugeInt, TypeUHugeInt, TypeUUID, TypeInterval:
		return 16
	case TypeVarchar, TypeBlob, TypeBit:
		return int(unsafe.Sizeof(StringT{}))
	case TypeList, TypeMap:
		return int(unsafe.Sizeof(ListEntry{}))
	}
	return 0
}

// ListEntry is duckdb_list_entry: one row of a LIST vector.
type ListEntry struct {
	Offset uint64
	Length uint64
}

// StringInlineLength is the longest payload stored inside a StringT.
const StringInlineLength = 12

// StringT is the 16 byte duckdb_string_t record. Payloads of up to 12 bytes live in
// the record; longer payloads keep a 4 byte prefix and a pointer.
type StringT struct {
	Length uint32
	Prefix [4]byte
	// Ptr holds the payload address of a long string and the payload tail of an
	// inline one, so it is not typed as a pointer.
	Ptr [8]byte
}

// Inlined reports whether the payload is stored inside the record.
func (s *StringT) Inlined() bool {
	return s.Length <= StringInlineLength
}

// Bytes returns a view of the payload. The view aliases engine memory.
func (s *StringT) Bytes() []byte {
	if s.Length == 0 {
		return nil
	}
	if s.Inlined() {
		return unsafe.Slice(&s.Prefix[0], s.Length)
	}
	return unsafe.Slice(*(**byte)(unsafe.Pointer(&s.Ptr)), s.Length)
}

// API is the engine capability surface. All operations are synchronous and valid for
// the lifetime of the batch the engine is processing.
type API interface {
	VectorSize() uint64
	LibraryVersion() string
	Free(ptr unsafe.Pointer)

	CreateLogicalType(id TypeID) LogicalType
	CreateListType(child LogicalType) LogicalType
	CreateArrayType(child LogicalType, size uint64) LogicalType
	CreateStructType(children []LogicalType, names []string) LogicalType
	DestroyLogicalType(lt *LogicalType)
	GetTypeID(lt LogicalType) TypeID
	ArrayTypeArraySize(lt LogicalType) uint64
	ArrayTypeChildType(lt LogicalType) LogicalType
	ListTypeChildType(lt LogicalType) LogicalType
	StructTypeChildCount(lt LogicalType) uint64
	// StructTypeChildName returns a NUL terminated string the caller releases with Free.
	StructTypeChildName(lt LogicalType, idx uint64) unsafe.Pointer
	StructTypeChildType(lt LogicalType, idx uint64) LogicalType

	CreateVector(lt LogicalType, capacity uint64) Vector
	DestroyVector(vec *Vector)
	VectorGetColumnType(vec Vector) LogicalType
	VectorGetData(vec Vector) unsafe.Pointer
	VectorGetValidity(vec Vector) *uint64
	VectorEnsureValidityWritable(vec Vector)
	VectorAssignStringElementLen(vec Vector, idx uint64, data []byte)
	VectorReferenceValue(vec Vector, val Value)
	VectorReferenceVector(to, from Vector)
	SliceVector(vec Vector, dictSize uint64, sel SelectionVector, length uint64)
	SetDictionaryID(vec Vector, id []byte)

	ListVectorGetChild(vec Vector) Vector
	ListVectorGetSize(vec Vector) uint64
	ListVectorSetSize(vec Vector, size uint64) State
	ListVectorReserve(vec Vector, capacity uint64) State
	ArrayVectorGetChild(vec Vector) Vector
	StructVectorGetChild(vec Vector, idx uint64) Vector

	CreateSelectionVector(size uint64) SelectionVector
	DestroySelectionVector(sel SelectionVector)
	SelectionVectorGetDataPtr(sel SelectionVector) *uint32

	CreateNullValue() Value
	CreateBool(v bool) Value
	CreateInt8(v int8) Value
	CreateInt16(v int16) Value
	CreateInt32(v int32) Value
	CreateInt64(v int64) Value
	CreateUInt8(v uint8) Value
	CreateUInt16(v uint16) Value
	CreateUInt32(v uint32) Value
	CreateUInt64(v uint64) Value
	CreateFloat(v float32) Value
	CreateDouble(v float64) Value
	CreateDate(days int32) Value
	CreateTime(micros int64) Value
	CreateTimestamp(micros int64) Value
	CreateTimestampS(seconds int64) Value
	CreateTimestampMS(millis int64) Value
	CreateTimestampNS(nanos int64) Value
	CreateVarchar(data []byte) Value
	CreateBlob(data []byte) Value
	DestroyValue(val *Value)
	IsNullValue(val Value) bool
	GetInt64(val Value) int64
	// GetVarchar returns a NUL terminated string the caller releases with Free.
	GetVarchar(val Value) unsafe.Pointer

	CreateDataChunk(types []LogicalType) DataChunk
	DestroyDataChunk(chunk *DataChunk)
	DataChunkGetColumnCount(chunk DataChunk) uint64
	DataChunkGetVector(chunk DataChunk, idx uint64) Vector
	DataChunkGetSize(chunk DataChunk) uint64
	DataChunkSetSize(chunk DataChunk, size uint64)
}

// GoString copies a NUL terminated engine string into Go memory.
func GoString(p unsafe.Pointer) string {
	return bytePtrToString((*byte)(p))
}
