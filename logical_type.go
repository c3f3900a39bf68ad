package duckdb

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// LogicalType is the declared type of a vector or column.
type LogicalType struct {
	host    *Host
	handle  capi.LogicalType
	cleanup runtime.Cleanup
}

func (h *Host) newLogicalType(handle capi.LogicalType, what string) (*LogicalType, error) {
	if handle == 0 {
		return nil, newErrorf(ErrNativeAllocation, "create %s logical type", what)
	}
	lt := &LogicalType{host: h, handle: handle}
	api := h.api
	lt.cleanup = track(h, lt, "logical type", func() { api.DestroyLogicalType(&handle) })
	return lt, nil
}

// NewLogicalType creates a primitive type. Nested types need NewListType, NewArrayType
// or NewStructType.
func (h *Host) NewLogicalType(id capi.TypeID) (*LogicalType, error) {
	switch id {
	case capi.TypeList, capi.TypeArray, capi.TypeStruct, capi.TypeMap, capi.TypeUnion, capi.TypeInvalid:
		return nil, newErrorf(ErrInvalidArgument, "%s is not a primitive type", id)
	}
	return h.newLogicalType(h.api.CreateLogicalType(id), id.String())
}

// NewListType creates LIST(child).
func (h *Host) NewListType(child *LogicalType) (*LogicalType, error) {
	if err := child.live(); err != nil {
		return nil, err
	}
	return h.newLogicalType(h.api.CreateListType(child.handle), "list")
}

// NewArrayType creates child[size].
func (h *Host) NewArrayType(child *LogicalType, size int) (*LogicalType, error) {
	if err := child.live(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, newErrorf(ErrInvalidArgument, "array size must be positive, got %d", size)
	}
	return h.newLogicalType(h.api.CreateArrayType(child.handle, uint64(size)), "array")
}

// StructField is one named member of a STRUCT type.
type StructField struct {
	Name string
	Type *LogicalType
}

// NewStructType creates STRUCT(fields...).
func (h *Host) NewStructType(fields ...StructField) (*LogicalType, error) {
	if len(fields) == 0 {
		return nil, newErrorf(ErrInvalidArgument, "struct type needs at least one field")
	}
	types := make([]capi.LogicalType, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		if err := f.Type.live(); err != nil {
			return nil, err
		}
		types[i] = f.Type.handle
		names[i] = f.Name
	}
	return h.newLogicalType(h.api.CreateStructType(types, names), "struct")
}

func (lt *LogicalType) live() error {
	if lt == nil || lt.handle == 0 {
		return newErrorf(ErrUseAfterRelease, "use of released logical type")
	}
	return nil
}

func (lt *LogicalType) mustLive() {
	if err := lt.live(); err != nil {
		panic(err)
	}
}

// Handle returns the engine handle.
func (lt *LogicalType) Handle() capi.LogicalType { return lt.handle }

// TypeID returns the type id.
func (lt *LogicalType) TypeID() capi.TypeID {
	lt.mustLive()
	return lt.host.api.GetTypeID(lt.handle)
}

// ArraySize returns the element count of an ARRAY type, or 0 for other types.
func (lt *LogicalType) ArraySize() int {
	lt.mustLive()
	return int(lt.host.api.ArrayTypeArraySize(lt.handle))
}

// ChildCount returns the number of STRUCT members.
func (lt *LogicalType) ChildCount() int {
	lt.mustLive()
	return int(lt.host.api.StructTypeChildCount(lt.handle))
}

// ChildName returns the name of the idx-th STRUCT member.
func (lt *LogicalType) ChildName(idx int) string {
	lt.mustLive()
	return lt.host.takeString(lt.host.api.StructTypeChildName(lt.handle, uint64(idx)))
}

// ChildType returns the type of the idx-th STRUCT member. The caller closes it.
func (lt *LogicalType) ChildType(idx int) (*LogicalType, error) {
	lt.mustLive()
	return lt.host.newLogicalType(lt.host.api.StructTypeChildType(lt.handle, uint64(idx)), "struct child")
}

// ListChildType returns the element type of a LIST, or of an ARRAY. The caller closes it.
func (lt *LogicalType) ListChildType() (*LogicalType, error) {
	lt.mustLive()
	api := lt.host.api
	if api.GetTypeID(lt.handle) == capi.TypeArray {
		return lt.host.newLogicalType(api.ArrayTypeChildType(lt.handle), "array child")
	}
	return lt.host.newLogicalType(api.ListTypeChildType(lt.handle), "list child")
}

// String returns the SQL spelling of the type, for example INTEGER[] or
// STRUCT(a INTEGER, b VARCHAR).
func (lt *LogicalType) String() string {
	if lt.live() != nil {
		return "<released>"
	}
	id := lt.TypeID()
	switch id {
	case capi.TypeList:
		child, err := lt.ListChildType()
		if err != nil {
			return id.String()
		}
		defer child.Close()
		return child.String() + "[]"
	case capi.TypeArray:
		child, err := lt.ListChildType()
		if err != nil {
			return id.String()
		}
		defer child.Close()
		return fmt.Sprintf("%s[%d]", child, lt.ArraySize())
	case capi.TypeStruct:
		var sb strings.Builder
		sb.WriteString("STRUCT(")
		for i := range lt.ChildCount() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(lt.ChildName(i))
			sb.WriteByte(' ')
			if child, err := lt.ChildType(i); err == nil {
				sb.WriteString(child.String())
				_ = child.Close()
			}
		}
		sb.WriteByte(')')
		return sb.String()
	}
	return id.String()
}

// Close releases the type. Closing twice is a no-op.
func (lt *LogicalType) Close() error {
	if lt.handle == 0 {
		return nil
	}
	lt.cleanup.Stop()
	handle := lt.handle
	lt.handle = 0
	lt.host.destroy("logical type", func() { lt.host.api.DestroyLogicalType(&handle) })
	return nil
}

// withVectorType runs fn with the type of vec and releases it afterwards.
func (h *Host) withVectorType(vec capi.Vector, fn func(lt capi.LogicalType)) {
	lt := h.api.VectorGetColumnType(vec)
	defer h.api.DestroyLogicalType(&lt)
	fn(lt)
}
