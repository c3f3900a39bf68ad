package capi

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"
	"go.uber.org/zap"
)

// LibraryPathEnv overrides library discovery when set.
const LibraryPathEnv = "DUCKDB_LIBRARY_PATH"

// ErrLibraryNotFound is returned by Open when no DuckDB shared library can be loaded.
var ErrLibraryNotFound = errors.New("duckdb shared library not found")

// Option configures Open.
type Option func(*options)

type options struct {
	path   string
	logger *zap.Logger
}

// WithLibraryPath loads the shared library from an explicit path.
func WithLibraryPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithLogger sets the logger used while loading and binding symbols.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Library is an API backed by a dynamically loaded libduckdb. It is safe to share
// between goroutines; the vector handles it produces are not.
type Library struct {
	handle  uintptr
	path    string
	log     *zap.Logger
	missing map[string]struct{}

	// Dictionary ids must outlive the vectors they are attached to. One buffer is
	// kept per distinct id.
	pinMu  sync.Mutex
	pinned map[string]unsafe.Pointer

	vectorSize     func() uint64
	libraryVersion func() unsafe.Pointer
	malloc         func(size uintptr) unsafe.Pointer
	free           func(ptr unsafe.Pointer)

	createLogicalType    func(id TypeID) LogicalType
	createListType       func(child LogicalType) LogicalType
	createArrayType      func(child LogicalType, size uint64) LogicalType
	createStructType     func(types *LogicalType, names *unsafe.Pointer, n uint64) LogicalType
	destroyLogicalType   func(lt *LogicalType)
	getTypeID            func(lt LogicalType) TypeID
	arrayTypeArraySize   func(lt LogicalType) uint64
	arrayTypeChildType   func(lt LogicalType) LogicalType
	listTypeChildType    func(lt LogicalType) LogicalType
	structTypeChildCount func(lt LogicalType) uint64
	structTypeChildName  func(lt LogicalType, idx uint64) unsafe.Pointer
	structTypeChildType  func(lt LogicalType, idx uint64) LogicalType

	createVector                 func(lt LogicalType, capacity uint64) Vector
	destroyVector                func(vec *Vector)
	vectorGetColumnType          func(vec Vector) LogicalType
	vectorGetData                func(vec Vector) unsafe.Pointer
	vectorGetValidity            func(vec Vector) *uint64
	vectorEnsureValidityWritable func(vec Vector)
	vectorAssignStringElementLen func(vec Vector, idx uint64, data *byte, n uint64)
	vectorReferenceValue         func(vec Vector, val Value)
	vectorReferenceVector        func(to, from Vector)
	sliceVector                  func(vec Vector, dictSize uint64, sel SelectionVector, n uint64)
	setDictionaryID              func(vec Vector, id *byte, n uint64)

	listVectorGetChild   func(vec Vector) Vector
	listVectorGetSize    func(vec Vector) uint64
	listVectorSetSize    func(vec Vector, size uint64) State
	listVectorReserve    func(vec Vector, capacity uint64) State
	arrayVectorGetChild  func(vec Vector) Vector
	structVectorGetChild func(vec Vector, idx uint64) Vector

	createSelectionVector     func(size uint64) SelectionVector
	destroySelectionVector    func(sel SelectionVector)
	selectionVectorGetDataPtr func(sel SelectionVector) *uint32

	createNullValue   func() Value
	createBool        func(v bool) Value
	createInt8        func(v int8) Value
	createInt16       func(v int16) Value
	createInt32       func(v int32) Value
	createInt64       func(v int64) Value
	createUInt8       func(v uint8) Value
	createUInt16      func(v uint16) Value
	createUInt32      func(v uint32) Value
	createUInt64      func(v uint64) Value
	createFloat       func(v float32) Value
	createDouble      func(v float64) Value
	createDate        func(days int32) Value
	createTime        func(micros int64) Value
	createTimestamp   func(micros int64) Value
	createTimestampS  func(seconds int64) Value
	createTimestampMS func(millis int64) Value
	createTimestampNS func(nanos int64) Value
	createVarcharLen  func(data *byte, n uint64) Value
	createBlob        func(data *byte, n uint64) Value
	destroyValue      func(val *Value)
	isNullValue       func(val Value) bool
	getInt64          func(val Value) int64
	getVarchar        func(val Value) unsafe.Pointer

	createDataChunk         func(types *LogicalType, n uint64) DataChunk
	destroyDataChunk        func(chunk *DataChunk)
	dataChunkGetColumnCount func(chunk DataChunk) uint64
	dataChunkGetVector      func(chunk DataChunk, idx uint64) Vector
	dataChunkGetSize        func(chunk DataChunk) uint64
	dataChunkSetSize        func(chunk DataChunk, size uint64)
}

var _ API = (*Library)(nil)

type symbol struct {
	name     string
	fptr     any
	optional bool
}

func (l *Library) symbols() []symbol {
	return []symbol{
		{"duckdb_vector_size", &l.vectorSize, false},
		{"duckdb_library_version", &l.libraryVersion, false},
		{"duckdb_malloc", &l.malloc, false},
		{"duckdb_free", &l.free, false},

		{"duckdb_create_logical_type", &l.createLogicalType, false},
		{"duckdb_create_list_type", &l.createListType, false},
		{"duckdb_create_array_type", &l.createArrayType, true},
		{"duckdb_create_struct_type", &l.createStructType, false},
		{"duckdb_destroy_logical_type", &l.destroyLogicalType, false},
		{"duckdb_get_type_id", &l.getTypeID, false},
		{"duckdb_array_type_array_size", &l.arrayTypeArraySize, true},
		{"duckdb_array_type_child_type", &l.arrayTypeChildType, true},
		{"duckdb_list_type_child_type", &l.listTypeChildType, false},
		{"duckdb_struct_type_child_count", &l.structTypeChildCount, false},
		{"duckdb_struct_type_child_name", &l.structTypeChildName, false},
		{"duckdb_struct_type_child_type", &l.structTypeChildType, false},

		{"duckdb_create_vector", &l.createVector, true},
		{"duckdb_destroy_vector", &l.destroyVector, true},
		{"duckdb_vector_get_column_type", &l.vectorGetColumnType, false},
		{"duckdb_vector_get_data", &l.vectorGetData, false},
		{"duckdb_vector_get_validity", &l.vectorGetValidity, false},
		{"duckdb_vector_ensure_validity_writable", &l.vectorEnsureValidityWritable, false},
		{"duckdb_vector_assign_string_element_len", &l.vectorAssignStringElementLen, false},
		{"duckdb_vector_reference_value", &l.vectorReferenceValue, true},
		{"duckdb_vector_reference_vector", &l.vectorReferenceVector, true},
		{"duckdb_slice_vector", &l.sliceVector, true},
		{"duckdb_set_dictionary_vector_id", &l.setDictionaryID, true},

		{"duckdb_list_vector_get_child", &l.listVectorGetChild, false},
		{"duckdb_list_vector_get_size", &l.listVectorGetSize, false},
		{"duckdb_list_vector_set_size", &l.listVectorSetSize, false},
		{"duckdb_list_vector_reserve", &l.listVectorReserve, false},
		{"duckdb_array_vector_get_child", &l.arrayVectorGetChild, true},
		{"duckdb_struct_vector_get_child", &l.structVectorGetChild, false},

		{"duckdb_create_selection_vector", &l.createSelectionVector, true},
		{"duckdb_destroy_selection_vector", &l.destroySelectionVector, true},
		{"duckdb_selection_vector_get_data_ptr", &l.selectionVectorGetDataPtr, true},

		{"duckdb_create_null_value", &l.createNullValue, true},
		{"duckdb_create_bool", &l.createBool, false},
		{"duckdb_create_int8", &l.createInt8, false},
		{"duckdb_create_int16", &l.createInt16, false},
		{"duckdb_create_int32", &l.createInt32, false},
		{"duckdb_create_int64", &l.createInt64, false},
		{"duckdb_create_uint8", &l.createUInt8, false},
		{"duckdb_create_uint16", &l.createUInt16, false},
		{"duckdb_create_uint32", &l.createUInt32, false},
		{"duckdb_create_uint64", &l.createUInt64, false},
		{"duckdb_create_float", &l.createFloat, false},
		{"duckdb_create_double", &l.createDouble, false},
		{"duckdb_create_date", &l.createDate, false},
		{"duckdb_create_time", &l.createTime, false},
		{"duckdb_create_timestamp", &l.createTimestamp, false},
		{"duckdb_create_timestamp_s", &l.createTimestampS, true},
		{"duckdb_create_timestamp_ms", &l.createTimestampMS, true},
		{"duckdb_create_timestamp_ns", &l.createTimestampNS, true},
		{"duckdb_create_varchar_length", &l.createVarcharLen, false},
		{"duckdb_create_blob", &l.createBlob, false},
		{"duckdb_destroy_value", &l.destroyValue, false},
		{"duckdb_is_null_value", &l.isNullValue, true},
		{"duckdb_get_int64", &l.getInt64, false},
		{"duckdb_get_varchar", &l.getVarchar, false},

		{"duckdb_create_data_chunk", &l.createDataChunk, false},
		{"duckdb_destroy_data_chunk", &l.destroyDataChunk, false},
		{"duckdb_data_chunk_get_column_count", &l.dataChunkGetColumnCount, false},
		{"duckdb_data_chunk_get_vector", &l.dataChunkGetVector, false},
		{"duckdb_data_chunk_get_size", &l.dataChunkGetSize, false},
		{"duckdb_data_chunk_set_size", &l.dataChunkSetSize, false},
	}
}

// Open loads libduckdb and binds the capability surface.
func Open(opts ...Option) (*Library, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	candidates := []string{o.path}
	if o.path == "" {
		candidates = findLibraryPaths()
	}

	var loadErr error
	for _, path := range candidates {
		handle, err := openLibrary(path)
		if err != nil {
			loadErr = errors.CombineErrors(loadErr, errors.Wrapf(err, "load %s", path))
			continue
		}
		lib := &Library{handle: handle, path: path, log: o.logger, missing: make(map[string]struct{})}
		if err := lib.bind(); err != nil {
			closeLibrary(handle)
			return nil, err
		}
		lib.log.Debug("loaded duckdb library",
			zap.String("path", path),
			zap.String("version", lib.LibraryVersion()),
			zap.Int("missing_optional_symbols", len(lib.missing)))
		return lib, nil
	}
	if loadErr == nil {
		return nil, ErrLibraryNotFound
	}
	return nil, errors.Mark(loadErr, ErrLibraryNotFound)
}

func (l *Library) bind() error {
	for _, s := range l.symbols() {
		sym, err := lookupSymbol(l.handle, s.name)
		if err != nil || sym == 0 {
			if s.optional {
				l.missing[s.name] = struct{}{}
				l.log.Debug("optional duckdb symbol not available", zap.String("symbol", s.name))
				continue
			}
			return errors.Newf("duckdb library %s: required symbol %s not found", l.path, s.name)
		}
		purego.RegisterFunc(s.fptr, sym)
	}
	return nil
}

// libraryName returns the platform file name of the shared library.
func libraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "duckdb.dll"
	case "darwin":
		return "libduckdb.dylib"
	default:
		return "libduckdb.so"
	}
}

// findLibraryPaths lists load candidates in priority order. The bare library name is
// always last so the OS loader search path gets a chance.
func findLibraryPaths() []string {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return []string{p}
	}

	name := libraryName()
	var dirs []string
	dirs = append(dirs, ".")
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, filepath.Join("lib", runtime.GOOS, runtime.GOARCH))

	var paths []string
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	return append(paths, name)
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// Supports reports whether an optional C API symbol was bound.
func (l *Library) Supports(symbol string) bool {
	_, missing := l.missing[symbol]
	return !missing
}

// Version parses the library version string.
func (l *Library) Version() Version {
	return ParseVersion(l.LibraryVersion())
}

// Close releases pinned buffers and unloads the library. Handles obtained from the
// library must not be used afterwards.
func (l *Library) Close() error {
	l.pinMu.Lock()
	for _, p := range l.pinned {
		l.free(p)
	}
	l.pinned = nil
	l.pinMu.Unlock()

	if l.handle != 0 {
		closeLibrary(l.handle)
		l.handle = 0
	}
	return nil
}

func (l *Library) require(name string, bound bool) {
	if !bound {
		panic(errors.Newf("duckdb library %s does not export %s", l.path, name))
	}
}

// cbytes copies b into engine memory. The caller frees the result.
func (l *Library) cbytes(b []byte, nul bool) unsafe.Pointer {
	n := len(b)
	if nul {
		n++
	}
	if n == 0 {
		return nil
	}
	p := l.malloc(uintptr(n))
	if p == nil {
		return nil
	}
	dst := unsafe.Slice((*byte)(p), n)
	copy(dst, b)
	if nul {
		dst[len(b)] = 0
	}
	return p
}

func bytesPtr(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}

func (l *Library) VectorSize() uint64 { return l.vectorSize() }

func (l *Library) LibraryVersion() string { return GoString(l.libraryVersion()) }

func (l *Library) Free(ptr unsafe.Pointer) {
	if ptr != nil {
		l.free(ptr)
	}
}

func (l *Library) CreateLogicalType(id TypeID) LogicalType { return l.createLogicalType(id) }

func (l *Library) CreateListType(child LogicalType) LogicalType { return l.createListType(child) }

func (l *Library) CreateArrayType(child LogicalType, size uint64) LogicalType {
	l.require("duckdb_create_array_type", l.createArrayType != nil)
	return l.createArrayType(child, size)
}

func (l *Library) CreateStructType(children []LogicalType, names []string) LogicalType {
	if len(children) != len(names) || len(children) == 0 {
		return 0
	}
	cnames := make([]unsafe.Pointer, len(names))
	defer func() {
		for _, p := range cnames {
			l.Free(p)
		}
	}()
	for i, name := range names {
		cnames[i] = l.cbytes([]byte(name), true)
		if cnames[i] == nil {
			return 0
		}
	}
	// The name array itself lives in engine memory so no Go pointer is handed over.
	arr := l.malloc(uintptr(len(names)) * unsafe.Sizeof(uintptr(0)))
	if arr == nil {
		return 0
	}
	defer l.free(arr)
	copy(unsafe.Slice((*unsafe.Pointer)(arr), len(names)), cnames)
	types := append([]LogicalType(nil), children...)
	return l.createStructType(&types[0], (*unsafe.Pointer)(arr), uint64(len(names)))
}

func (l *Library) DestroyLogicalType(lt *LogicalType) { l.destroyLogicalType(lt) }

func (l *Library) GetTypeID(lt LogicalType) TypeID { return l.getTypeID(lt) }

func (l *Library) ArrayTypeArraySize(lt LogicalType) uint64 {
	l.require("duckdb_array_type_array_size", l.arrayTypeArraySize != nil)
	return l.arrayTypeArraySize(lt)
}

func (l *Library) ArrayTypeChildType(lt LogicalType) LogicalType {
	l.require("duckdb_array_type_child_type", l.arrayTypeChildType != nil)
	return l.arrayTypeChildType(lt)
}

func (l *Library) ListTypeChildType(lt LogicalType) LogicalType { return l.listTypeChildType(lt) }

func (l *Library) StructTypeChildCount(lt LogicalType) uint64 { return l.structTypeChildCount(lt) }

func (l *Library) StructTypeChildName(lt LogicalType, idx uint64) unsafe.Pointer {
	return l.structTypeChildName(lt, idx)
}

func (l *Library) StructTypeChildType(lt LogicalType, idx uint64) LogicalType {
	return l.structTypeChildType(lt, idx)
}

func (l *Library) CreateVector(lt LogicalType, capacity uint64) Vector {
	l.require("duckdb_create_vector", l.createVector != nil)
	return l.createVector(lt, capacity)
}

func (l *Library) DestroyVector(vec *Vector) {
	l.require("duckdb_destroy_vector", l.destroyVector != nil)
	l.destroyVector(vec)
}

func (l *Library) VectorGetColumnType(vec Vector) LogicalType { return l.vectorGetColumnType(vec) }

func (l *Library) VectorGetData(vec Vector) unsafe.Pointer { return l.vectorGetData(vec) }

func (l *Library) VectorGetValidity(vec Vector) *uint64 { return l.vectorGetValidity(vec) }

func (l *Library) VectorEnsureValidityWritable(vec Vector) { l.vectorEnsureValidityWritable(vec) }

func (l *Library) VectorAssignStringElementLen(vec Vector, idx uint64, data []byte) {
	l.vectorAssignStringElementLen(vec, idx, bytesPtr(data), uint64(len(data)))
}

func (l *Library) VectorReferenceValue(vec Vector, val Value) {
	l.require("duckdb_vector_reference_value", l.vectorReferenceValue != nil)
	l.vectorReferenceValue(vec, val)
}

func (l *Library) VectorReferenceVector(to, from Vector) {
	l.require("duckdb_vector_reference_vector", l.vectorReferenceVector != nil)
	l.vectorReferenceVector(to, from)
}

func (l *Library) SliceVector(vec Vector, dictSize uint64, sel SelectionVector, length uint64) {
	l.require("duckdb_slice_vector", l.sliceVector != nil)
	l.sliceVector(vec, dictSize, sel, length)
}

func (l *Library) SetDictionaryID(vec Vector, id []byte) {
	l.require("duckdb_set_dictionary_vector_id", l.setDictionaryID != nil)
	l.setDictionaryID(vec, (*byte)(l.pinID(id)), uint64(len(id)))
}

// pinID returns the engine copy of id, allocating it on first use.
func (l *Library) pinID(id []byte) unsafe.Pointer {
	l.pinMu.Lock()
	defer l.pinMu.Unlock()
	if p, ok := l.pinned[string(id)]; ok {
		return p
	}
	p := l.cbytes(id, true)
	if p == nil {
		panic(errors.Newf("duckdb_malloc(%d) failed", len(id)+1))
	}
	if l.pinned == nil {
		l.pinned = make(map[string]unsafe.Pointer)
	}
	l.pinned[string(id)] = p
	return p
}

func (l *Library) ListVectorGetChild(vec Vector) Vector { return l.listVectorGetChild(vec) }

func (l *Library) ListVectorGetSize(vec Vector) uint64 { return l.listVectorGetSize(vec) }

func (l *Library) ListVectorSetSize(vec Vector, size uint64) State {
	return l.listVectorSetSize(vec, size)
}

func (l *Library) ListVectorReserve(vec Vector, capacity uint64) State {
	return l.listVectorReserve(vec, capacity)
}

func (l *Library) ArrayVectorGetChild(vec Vector) Vector {
	l.require("duckdb_array_vector_get_child", l.arrayVectorGetChild != nil)
	return l.arrayVectorGetChild(vec)
}

func (l *Library) StructVectorGetChild(vec Vector, idx uint64) Vector {
	return l.structVectorGetChild(vec, idx)
}

func (l *Library) CreateSelectionVector(size uint64) SelectionVector {
	l.require("duckdb_create_selection_vector", l.createSelectionVector != nil)
	return l.createSelectionVector(size)
}

func (l *Library) DestroySelectionVector(sel SelectionVector) {
	l.require("duckdb_destroy_selection_vector", l.destroySelectionVector != nil)
	l.destroySelectionVector(sel)
}

func (l *Library) SelectionVectorGetDataPtr(sel SelectionVector) *uint32 {
	l.require("duckdb_selection_vector_get_data_ptr", l.selectionVectorGetDataPtr != nil)
	return l.selectionVectorGetDataPtr(sel)
}

func (l *Library) CreateNullValue() Value {
	l.require("duckdb_create_null_value", l.createNullValue != nil)
	return l.createNullValue()
}

func (l *Library) CreateBool(v bool) Value       { return l.createBool(v) }
func (l *Library) CreateInt8(v int8) Value       { return l.createInt8(v) }
func (l *Library) CreateInt16(v int16) Value     { return l.createInt16(v) }
func (l *Library) CreateInt32(v int32) Value     { return l.createInt32(v) }
func (l *Library) CreateInt64(v int64) Value     { return l.createInt64(v) }
func (l *Library) CreateUInt8(v uint8) Value     { return l.createUInt8(v) }
func (l *Library) CreateUInt16(v uint16) Value   { return l.createUInt16(v) }
func (l *Library) CreateUInt32(v uint32) Value   { return l.createUInt32(v) }
func (l *Library) CreateUInt64(v uint64) Value   { return l.createUInt64(v) }
func (l *Library) CreateFloat(v float32) Value   { return l.createFloat(v) }
func (l *Library) CreateDouble(v float64) Value  { return l.createDouble(v) }
func (l *Library) CreateDate(days int32) Value   { return l.createDate(days) }
func (l *Library) CreateTime(micros int64) Value { return l.createTime(micros) }

func (l *Library) CreateTimestamp(micros int64) Value { return l.createTimestamp(micros) }

func (l *Library) CreateTimestampS(seconds int64) Value {
	l.require("duckdb_create_timestamp_s", l.createTimestampS != nil)
	return l.createTimestampS(seconds)
}

func (l *Library) CreateTimestampMS(millis int64) Value {
	l.require("duckdb_create_timestamp_ms", l.createTimestampMS != nil)
	return l.createTimestampMS(millis)
}

func (l *Library) CreateTimestampNS(nanos int64) Value {
	l.require("duckdb_create_timestamp_ns", l.createTimestampNS != nil)
	return l.createTimestampNS(nanos)
}

func (l *Library) CreateVarchar(data []byte) Value {
	return l.createVarcharLen(bytesPtr(data), uint64(len(data)))
}

func (l *Library) CreateBlob(data []byte) Value {
	return l.createBlob(bytesPtr(data), uint64(len(data)))
}

func (l *Library) DestroyValue(val *Value) { l.destroyValue(val) }

func (l *Library) IsNullValue(val Value) bool {
	l.require("duckdb_is_null_value", l.isNullValue != nil)
	return l.isNullValue(val)
}

func (l *Library) GetInt64(val Value) int64 { return l.getInt64(val) }

func (l *Library) GetVarchar(val Value) unsafe.Pointer { return l.getVarchar(val) }

func (l *Library) CreateDataChunk(types []LogicalType) DataChunk {
	if len(types) == 0 {
		return 0
	}
	cp := append([]LogicalType(nil), types...)
	return l.createDataChunk(&cp[0], uint64(len(cp)))
}

func (l *Library) DestroyDataChunk(chunk *DataChunk) { l.destroyDataChunk(chunk) }

func (l *Library) DataChunkGetColumnCount(chunk DataChunk) uint64 {
	return l.dataChunkGetColumnCount(chunk)
}

func (l *Library) DataChunkGetVector(chunk DataChunk, idx uint64) Vector {
	return l.dataChunkGetVector(chunk, idx)
}

func (l *Library) DataChunkGetSize(chunk DataChunk) uint64 { return l.dataChunkGetSize(chunk) }

func (l *Library) DataChunkSetSize(chunk DataChunk, size uint64) {
	l.dataChunkSetSize(chunk, size)
}
