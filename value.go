package duckdb

import (
	"reflect"
	"runtime"
	"time"

	"golang.org/x/exp/constraints"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// Scalar is the set of Go types with a direct DuckDB scalar representation.
type Scalar interface {
	constraints.Integer | constraints.Float | ~bool
}

// Value is an owned DuckDB scalar. It is never shared; Close releases it exactly once.
type Value struct {
	host    *Host
	handle  capi.Value
	cleanup runtime.Cleanup
}

func (h *Host) newValue(handle capi.Value, what string) (*Value, error) {
	if handle == 0 {
		return nil, newErrorf(ErrNativeAllocation, "create %s value", what)
	}
	v := &Value{host: h, handle: handle}
	api := h.api
	v.cleanup = track(h, v, "value", func() { api.DestroyValue(&handle) })
	return v, nil
}

// NullValue creates a SQL NULL.
func (h *Host) NullValue() (*Value, error) {
	return h.newValue(h.api.CreateNullValue(), "null")
}

// BoolValue creates a BOOLEAN.
func (h *Host) BoolValue(b bool) (*Value, error) {
	return h.newValue(h.api.CreateBool(b), "boolean")
}

// DateFromDayCount creates a DATE from days since the Unix epoch. The day count is not
// range checked.
func (h *Host) DateFromDayCount(days int32) (*Value, error) {
	return h.newValue(h.api.CreateDate(days), "date")
}

// TimeFromMicros creates a TIME from microseconds since midnight.
func (h *Host) TimeFromMicros(micros int64) (*Value, error) {
	return h.newValue(h.api.CreateTime(micros), "time")
}

// TimestampS creates a TIMESTAMP_S from seconds since the Unix epoch.
func (h *Host) TimestampS(seconds int64) (*Value, error) {
	return h.newValue(h.api.CreateTimestampS(seconds), "timestamp_s")
}

// TimestampMS creates a TIMESTAMP_MS from milliseconds since the Unix epoch.
func (h *Host) TimestampMS(millis int64) (*Value, error) {
	return h.newValue(h.api.CreateTimestampMS(millis), "timestamp_ms")
}

// TimestampUS creates a TIMESTAMP from microseconds since the Unix epoch.
func (h *Host) TimestampUS(micros int64) (*Value, error) {
	return h.newValue(h.api.CreateTimestamp(micros), "timestamp")
}

// TimestampNS creates a TIMESTAMP_NS from nanoseconds since the Unix epoch.
func (h *Host) TimestampNS(nanos int64) (*Value, error) {
	return h.newValue(h.api.CreateTimestampNS(nanos), "timestamp_ns")
}

// BlobValue creates a BLOB holding a copy of b.
func (h *Host) BlobValue(b []byte) (*Value, error) {
	return h.newValue(h.api.CreateBlob(b), "blob")
}

// StringValue creates a BLOB holding the bytes of s.
func (h *Host) StringValue(s string) (*Value, error) {
	return h.BlobValue([]byte(s))
}

// VarcharValue creates a VARCHAR.
func (h *Host) VarcharValue(s string) (*Value, error) {
	return h.newValue(h.api.CreateVarchar([]byte(s)), "varchar")
}

// ValueOf creates a value of the DuckDB type matching T.
func ValueOf[T Scalar](h *Host, v T) (*Value, error) {
	return h.Value(v)
}

// OptionalValue creates a value from *v, or NULL when v is nil.
func OptionalValue[T Scalar](h *Host, v *T) (*Value, error) {
	if v == nil {
		return h.NullValue()
	}
	return h.Value(*v)
}

// Value converts a Go value to a DuckDB scalar. nil becomes NULL, string becomes
// VARCHAR, []byte becomes BLOB, time.Time becomes a microsecond TIMESTAMP, and the
// Date, Time and Timestamp types map to their DuckDB counterparts. Named types are
// converted by their underlying kind.
func (h *Host) Value(x any) (*Value, error) {
	api := h.api
	switch v := x.(type) {
	case nil:
		return h.NullValue()
	case string:
		return h.VarcharValue(v)
	case []byte:
		return h.BlobValue(v)
	case time.Time:
		return h.TimestampUS(v.UnixMicro())
	case Date:
		return h.DateFromDayCount(int32(v))
	case Time:
		return h.TimeFromMicros(int64(v))
	case TimestampS:
		return h.TimestampS(int64(v))
	case TimestampMS:
		return h.TimestampMS(int64(v))
	case TimestampUS:
		return h.TimestampUS(int64(v))
	case TimestampNS:
		return h.TimestampNS(int64(v))
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Bool:
		return h.BoolValue(rv.Bool())
	case reflect.Int8:
		return h.newValue(api.CreateInt8(int8(rv.Int())), "tinyint")
	case reflect.Int16:
		return h.newValue(api.CreateInt16(int16(rv.Int())), "smallint")
	case reflect.Int32:
		return h.newValue(api.CreateInt32(int32(rv.Int())), "integer")
	case reflect.Int, reflect.Int64:
		return h.newValue(api.CreateInt64(rv.Int()), "bigint")
	case reflect.Uint8:
		return h.newValue(api.CreateUInt8(uint8(rv.Uint())), "utinyint")
	case reflect.Uint16:
		return h.newValue(api.CreateUInt16(uint16(rv.Uint())), "usmallint")
	case reflect.Uint32:
		return h.newValue(api.CreateUInt32(uint32(rv.Uint())), "uinteger")
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return h.newValue(api.CreateUInt64(rv.Uint()), "ubigint")
	case reflect.Float32:
		return h.newValue(api.CreateFloat(float32(rv.Float())), "float")
	case reflect.Float64:
		return h.newValue(api.CreateDouble(rv.Float()), "double")
	}
	return nil, newErrorf(ErrInvalidArgument, "unsupported value type %T", x)
}

func (v *Value) live() {
	if v.handle == 0 {
		panic(newErrorf(ErrUseAfterRelease, "use of released value"))
	}
}

// Handle returns the engine handle.
func (v *Value) Handle() capi.Value { return v.handle }

// ToInt64 returns the value as a 64 bit integer. It is only meaningful for integer
// compatible values; other types convert as the engine defines.
func (v *Value) ToInt64() int64 {
	v.live()
	return v.host.api.GetInt64(v.handle)
}

// IsNull reports whether the value is SQL NULL.
func (v *Value) IsNull() bool {
	v.live()
	return v.host.api.IsNullValue(v.handle)
}

// String renders the value as DuckDB text.
func (v *Value) String() string {
	v.live()
	return v.host.takeString(v.host.api.GetVarchar(v.handle))
}

// Close releases the value. Closing twice is a no-op.
func (v *Value) Close() error {
	if v.handle == 0 {
		return nil
	}
	v.cleanup.Stop()
	handle := v.handle
	v.handle = 0
	v.host.destroy("value", func() { v.host.api.DestroyValue(&handle) })
	return nil
}
