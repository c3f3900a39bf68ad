package memapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/semihalev/go-duckdb-ext/capi"
)

type value struct {
	typ  capi.TypeID
	null bool
	i    int64
	u    uint64
	f    float64
	b    []byte
}

func (e *Engine) newValue(x *value) capi.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := capi.Value(e.handle())
	e.values[h] = x
	return h
}

func (e *Engine) lookupValue(val capi.Value) *value {
	x, ok := e.values[val]
	if !ok {
		panic(fmt.Sprintf("memapi: unknown value handle %#x", uintptr(val)))
	}
	return x
}

func (e *Engine) CreateNullValue() capi.Value {
	return e.newValue(&value{typ: capi.TypeInvalid, null: true})
}

func (e *Engine) CreateBool(v bool) capi.Value {
	x := &value{typ: capi.TypeBoolean}
	if v {
		x.i = 1
	}
	return e.newValue(x)
}

func (e *Engine) CreateInt8(v int8) capi.Value {
	return e.newValue(&value{typ: capi.TypeTinyInt, i: int64(v)})
}

func (e *Engine) CreateInt16(v int16) capi.Value {
	return e.newValue(&value{typ: capi.TypeSmallInt, i: int64(v)})
}

func (e *Engine) CreateInt32(v int32) capi.Value {
	return e.newValue(&value{typ: capi.TypeInteger, i: int64(v)})
}

func (e *Engine) CreateInt64(v int64) capi.Value {
	return e.newValue(&value{typ: capi.TypeBigInt, i: v})
}

func (e *Engine) CreateUInt8(v uint8) capi.Value {
	return e.newValue(&value{typ: capi.TypeUTinyInt, u: uint64(v)})
}

func (e *Engine) CreateUInt16(v uint16) capi.Value {
	return e.newValue(&value{typ: capi.TypeUSmallInt, u: uint64(v)})
}

func (e *Engine) CreateUInt32(v uint32) capi.Value {
	return e.newValue(&value{typ: capi.TypeUInteger, u: uint64(v)})
}

func (e *Engine) CreateUInt64(v uint64) capi.Value {
	return e.newValue(&value{typ: capi.TypeUBigInt, u: v})
}

func (e *Engine) CreateFloat(v float32) capi.Value {
	return e.newValue(&value{typ: capi.TypeFloat, f: float64(v)})
}

func (e *Engine) CreateDouble(v float64) capi.Value {
	return e.newValue(&value{typ: capi.TypeDouble, f: v})
}

func (e *Engine) CreateDate(days int32) capi.Value {
	return e.newValue(&value{typ: capi.TypeDate, i: int64(days)})
}

func (e *Engine) CreateTime(micros int64) capi.Value {
	return e.newValue(&value{typ: capi.TypeTime, i: micros})
}

func (e *Engine) CreateTimestamp(micros int64) capi.Value {
	return e.newValue(&value{typ: capi.TypeTimestamp, i: micros})
}

func (e *Engine) CreateTimestampS(seconds int64) capi.Value {
	return e.newValue(&value{typ: capi.TypeTimestampS, i: seconds})
}

func (e *Engine) CreateTimestampMS(millis int64) capi.Value {
	return e.newValue(&value{typ: capi.TypeTimestampMS, i: millis})
}

func (e *Engine) CreateTimestampNS(nanos int64) capi.Value {
	return e.newValue(&value{typ: capi.TypeTimestampNS, i: nanos})
}

func (e *Engine) CreateVarchar(data []byte) capi.Value {
	return e.newValue(&value{typ: capi.TypeVarchar, b: append([]byte(nil), data...)})
}

func (e *Engine) CreateBlob(data []byte) capi.Value {
	return e.newValue(&value{typ: capi.TypeBlob, b: append([]byte(nil), data...)})
}

func (e *Engine) DestroyValue(val *capi.Value) {
	if val == nil || *val == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.values[*val]; !ok {
		panic(fmt.Sprintf("memapi: double destroy of value %#x", uintptr(*val)))
	}
	delete(e.values, *val)
	*val = 0
}

func (e *Engine) IsNullValue(val capi.Value) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupValue(val).null
}

func (e *Engine) GetInt64(val capi.Value) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookupValue(val).int64()
}

func (e *Engine) GetVarchar(val capi.Value) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cstring(e.lookupValue(val).render())
}

// int64 casts the value the way duckdb_get_int64 does: failed casts yield 0.
func (x *value) int64() int64 {
	if x.null {
		return 0
	}
	switch x.typ {
	case capi.TypeUTinyInt, capi.TypeUSmallInt, capi.TypeUInteger, capi.TypeUBigInt:
		if x.u > math.MaxInt64 {
			return 0
		}
		return int64(x.u)
	case capi.TypeFloat, capi.TypeDouble:
		if math.IsNaN(x.f) || x.f >= math.MaxInt64 || x.f < math.MinInt64 {
			return 0
		}
		return int64(math.RoundToEven(x.f))
	case capi.TypeVarchar:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x.b)), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case capi.TypeBlob:
		return 0
	}
	return x.i
}

func (x *value) uint64() uint64 {
	switch x.typ {
	case capi.TypeUTinyInt, capi.TypeUSmallInt, capi.TypeUInteger, capi.TypeUBigInt:
		return x.u
	case capi.TypeFloat, capi.TypeDouble:
		return uint64(x.f)
	}
	return uint64(x.i)
}

func (x *value) float64() float64 {
	switch x.typ {
	case capi.TypeFloat, capi.TypeDouble:
		return x.f
	case capi.TypeUTinyInt, capi.TypeUSmallInt, capi.TypeUInteger, capi.TypeUBigInt:
		return float64(x.u)
	}
	return float64(x.i)
}

// render formats the value as DuckDB's Value::ToString does.
func (x *value) render() string {
	if x.null {
		return "NULL"
	}
	switch x.typ {
	case capi.TypeBoolean:
		return strconv.FormatBool(x.i != 0)
	case capi.TypeUTinyInt, capi.TypeUSmallInt, capi.TypeUInteger, capi.TypeUBigInt:
		return strconv.FormatUint(x.u, 10)
	case capi.TypeFloat:
		return formatFloat(x.f, 32)
	case capi.TypeDouble:
		return formatFloat(x.f, 64)
	case capi.TypeDate:
		return time.Unix(x.i*86400, 0).UTC().Format("2006-01-02")
	case capi.TypeTime:
		return time.UnixMicro(x.i).UTC().Format("15:04:05.999999")
	case capi.TypeTimestamp:
		return time.UnixMicro(x.i).UTC().Format("2006-01-02 15:04:05.999999")
	case capi.TypeTimestampS:
		return time.Unix(x.i, 0).UTC().Format("2006-01-02 15:04:05")
	case capi.TypeTimestampMS:
		return time.UnixMilli(x.i).UTC().Format("2006-01-02 15:04:05.999")
	case capi.TypeTimestampNS:
		return time.Unix(0, x.i).UTC().Format("2006-01-02 15:04:05.999999999")
	case capi.TypeVarchar:
		return string(x.b)
	case capi.TypeBlob:
		return renderBlob(x.b)
	}
	return strconv.FormatInt(x.i, 10)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func renderBlob(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 32 && c <= 126 && c != '\\' && c != '\'' && c != '"' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "\\x%02X", c)
	}
	return sb.String()
}

// writeScalar stores x, cast to t, into row 0 of st.
func writeScalar(t *logicalType, st *storage, x *value) {
	if len(st.data) == 0 {
		return
	}
	p := unsafe.Pointer(&st.data[0])
	switch t.id {
	case capi.TypeBoolean:
		*(*bool)(p) = x.int64() != 0
	case capi.TypeTinyInt:
		*(*int8)(p) = int8(x.int64())
	case capi.TypeSmallInt:
		*(*int16)(p) = int16(x.int64())
	case capi.TypeInteger, capi.TypeDate:
		*(*int32)(p) = int32(x.int64())
	case capi.TypeBigInt, capi.TypeTime, capi.TypeTimestamp, capi.TypeTimestampS,
		capi.TypeTimestampMS, capi.TypeTimestampNS, capi.TypeTimestampTZ:
		*(*int64)(p) = x.int64()
	case capi.TypeUTinyInt:
		*(*uint8)(p) = uint8(x.uint64())
	case capi.TypeUSmallInt:
		*(*uint16)(p) = uint16(x.uint64())
	case capi.TypeUInteger:
		*(*uint32)(p) = uint32(x.uint64())
	case capi.TypeUBigInt:
		*(*uint64)(p) = x.uint64()
	case capi.TypeFloat:
		*(*float32)(p) = float32(x.float64())
	case capi.TypeDouble:
		*(*float64)(p) = x.float64()
	case capi.TypeVarchar, capi.TypeBit:
		writeString(st, 0, []byte(x.render()))
	case capi.TypeBlob:
		if x.typ == capi.TypeBlob || x.typ == capi.TypeVarchar {
			writeString(st, 0, x.b)
		} else {
			writeString(st, 0, []byte(x.render()))
		}
	}
}
