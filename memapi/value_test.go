package memapi

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/go-duckdb-ext/capi"
)

func TestValueRendering(t *testing.T) {
	e := New()
	tests := []struct {
		name string
		val  capi.Value
		want string
	}{
		{"null", e.CreateNullValue(), "NULL"},
		{"bool", e.CreateBool(true), "true"},
		{"int8", e.CreateInt8(-8), "-8"},
		{"uint64", e.CreateUInt64(math.MaxUint64), "18446744073709551615"},
		{"float", e.CreateFloat(0.1), "0.1"},
		{"whole double", e.CreateDouble(2), "2.0"},
		{"nan", e.CreateDouble(math.NaN()), "nan"},
		{"negative inf", e.CreateDouble(math.Inf(-1)), "-inf"},
		{"date", e.CreateDate(19000), "2022-01-08"},
		{"date before epoch", e.CreateDate(-1), "1969-12-31"},
		{"time", e.CreateTime(3_723_000_500), "01:02:03.0005"},
		{"whole time", e.CreateTime(3_600_000_000), "01:00:00"},
		{"timestamp", e.CreateTimestamp(1_500_000_000_250_000), "2017-07-14 02:40:00.25"},
		{"timestamp s", e.CreateTimestampS(0), "1970-01-01 00:00:00"},
		{"timestamp ms", e.CreateTimestampMS(1_001), "1970-01-01 00:00:01.001"},
		{"timestamp ns", e.CreateTimestampNS(5), "1970-01-01 00:00:00.000000005"},
		{"varchar", e.CreateVarchar([]byte("héllo")), "héllo"},
		{"blob", e.CreateBlob([]byte{'a', 0, '\'', 0xff}), `a\x00\x27\xFF`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := e.GetVarchar(tt.val)
			assert.Equal(t, tt.want, capi.GoString(s))
			e.Free(s)
			e.DestroyValue(&tt.val)
		})
	}
	assert.Equal(t, Stats{}, e.Stats())
}

func TestValueInt64Casts(t *testing.T) {
	e := New()
	tests := []struct {
		val  capi.Value
		want int64
	}{
		{e.CreateBool(true), 1},
		{e.CreateUInt32(7), 7},
		{e.CreateUInt64(math.MaxUint64), 0},
		{e.CreateDouble(2.5), 2},
		{e.CreateDouble(3.5), 4},
		{e.CreateDouble(math.NaN()), 0},
		{e.CreateFloat(1e30), 0},
		{e.CreateVarchar([]byte(" 42 ")), 42},
		{e.CreateVarchar([]byte("forty-two")), 0},
		{e.CreateBlob([]byte("1")), 0},
		{e.CreateNullValue(), 0},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.want, e.GetInt64(tt.val), "case %d", i)
	}
	assert.True(t, e.IsNullValue(tests[len(tests)-1].val))
	assert.False(t, e.IsNullValue(tests[0].val))
}

func TestReferenceValueCasts(t *testing.T) {
	e := New()

	dbl := e.CreateVector(e.CreateLogicalType(capi.TypeDouble), 4)
	e.VectorReferenceValue(dbl, e.CreateInt16(3))
	assert.Equal(t, 3.0, *(*float64)(e.VectorGetData(dbl)))

	str := e.CreateVector(e.CreateLogicalType(capi.TypeVarchar), 4)
	e.VectorReferenceValue(str, e.CreateBool(false))
	rec := (*capi.StringT)(e.VectorGetData(str))
	assert.Equal(t, "false", string(rec.Bytes()))

	null := e.CreateVector(e.CreateLogicalType(capi.TypeInteger), 4)
	e.VectorReferenceValue(null, e.CreateNullValue())
	validity := e.VectorGetValidity(null)
	require.NotNil(t, validity)
	assert.Zero(t, *validity&1)
	assert.True(t, e.IsConstant(null))
}

func TestTransientStringsAreTracked(t *testing.T) {
	e := New()
	val := e.CreateVarchar([]byte("abc"))
	p := e.GetVarchar(val)
	assert.Equal(t, 1, e.Stats().Allocations)
	assert.Equal(t, byte(0), *(*byte)(unsafe.Add(p, 3)), "NUL terminated")

	e.Free(p)
	assert.Zero(t, e.Stats().Allocations)
	assert.Panics(t, func() { e.Free(p) })
	e.Free(nil)
}
