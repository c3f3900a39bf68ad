package duckdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type celsius int16

func TestValueString(t *testing.T) {
	h, eng := newTestHost(t)

	tests := []struct {
		name string
		make func() (*Value, error)
		want string
	}{
		{"null", h.NullValue, "NULL"},
		{"bool", func() (*Value, error) { return h.BoolValue(true) }, "true"},
		{"int8", func() (*Value, error) { return ValueOf(h, int8(-5)) }, "-5"},
		{"uint64", func() (*Value, error) { return ValueOf(h, uint64(18446744073709551615)) }, "18446744073709551615"},
		{"named int16", func() (*Value, error) { return ValueOf(h, celsius(21)) }, "21"},
		{"double", func() (*Value, error) { return ValueOf(h, 3.5) }, "3.5"},
		{"whole double", func() (*Value, error) { return ValueOf(h, float64(2)) }, "2.0"},
		{"float", func() (*Value, error) { return ValueOf(h, float32(0.25)) }, "0.25"},
		{"epoch date", func() (*Value, error) { return h.DateFromDayCount(0) }, "1970-01-01"},
		{"date", func() (*Value, error) { return h.DateFromDayCount(19000) }, "2022-01-08"},
		{"pre epoch date", func() (*Value, error) { return h.DateFromDayCount(-1) }, "1969-12-31"},
		{"time", func() (*Value, error) { return h.TimeFromMicros(3723000001) }, "01:02:03.000001"},
		{"whole time", func() (*Value, error) { return h.TimeFromMicros(3600 * 1000000) }, "01:00:00"},
		{"timestamp_s", func() (*Value, error) { return h.TimestampS(0) }, "1970-01-01 00:00:00"},
		{"timestamp_ms", func() (*Value, error) { return h.TimestampMS(1500) }, "1970-01-01 00:00:01.5"},
		{"timestamp", func() (*Value, error) { return h.TimestampUS(1700000000123456) }, "2023-11-14 22:13:20.123456"},
		{"timestamp_ns", func() (*Value, error) { return h.TimestampNS(1) }, "1970-01-01 00:00:00.000000001"},
		{"varchar", func() (*Value, error) { return h.VarcharValue("hi there") }, "hi there"},
		{"blob", func() (*Value, error) { return h.BlobValue([]byte{0x00, 'a', 0xff}) }, `\x00a\xFF`},
		{"string as blob", func() (*Value, error) { return h.StringValue(`a'b`) }, `a\x27b`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.make()
			require.NoError(t, err)
			defer v.Close()

			assert.Equal(t, tt.want, v.String())
			assert.Zero(t, eng.Stats().Allocations, "the rendered string buffer is released")
		})
	}
	assert.Zero(t, eng.Stats().Values)
}

func TestValueDynamic(t *testing.T) {
	h, eng := newTestHost(t)
	when := time.Date(2024, 2, 29, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{false, "false"},
		{42, "42"},
		{uint(7), "7"},
		{int16(-300), "-300"},
		{uint32(4000000000), "4000000000"},
		{"text", "text"},
		{[]byte("raw"), "raw"},
		{when, "2024-02-29 12:30:00"},
		{DateFromTime(when), "2024-02-29"},
		{TimeFromTime(when), "12:30:00"},
		{TimestampS(60), "1970-01-01 00:01:00"},
		{TimestampMS(1), "1970-01-01 00:00:00.001"},
		{TimestampUS(2), "1970-01-01 00:00:00.000002"},
		{TimestampNS(999), "1970-01-01 00:00:00.000000999"},
	}
	for _, tt := range tests {
		v, err := h.Value(tt.in)
		require.NoErrorf(t, err, "%T", tt.in)
		assert.Equalf(t, tt.want, v.String(), "%T", tt.in)
		require.NoError(t, v.Close())
	}

	_, err := h.Value(struct{}{})
	requireErrorType(t, err, ErrInvalidArgument)
	_, err = h.Value(complex(1, 2))
	requireErrorType(t, err, ErrInvalidArgument)

	assert.Zero(t, eng.Stats().Values)
}

func TestValueToInt64(t *testing.T) {
	h, _ := newTestHost(t)

	tests := []struct {
		in   any
		want int64
	}{
		{int32(42), 42},
		{int64(-9000000000), -9000000000},
		{uint8(200), 200},
		{true, 1},
		{Date(19782), 19782},
		{Time(1500), 1500},
		{TimestampNS(123), 123},
	}
	for _, tt := range tests {
		v, err := h.Value(tt.in)
		require.NoError(t, err)
		assert.Equalf(t, tt.want, v.ToInt64(), "%T", tt.in)
		require.NoError(t, v.Close())
	}
}

func TestValueOptional(t *testing.T) {
	h, _ := newTestHost(t)

	missing, err := OptionalValue[int32](h, nil)
	require.NoError(t, err)
	defer missing.Close()
	assert.True(t, missing.IsNull())

	n := int32(5)
	present, err := OptionalValue(h, &n)
	require.NoError(t, err)
	defer present.Close()
	assert.False(t, present.IsNull())
	assert.Equal(t, int64(5), present.ToInt64())
}

func TestValueClose(t *testing.T) {
	h, eng := newTestHost(t)

	v, err := h.BoolValue(false)
	require.NoError(t, err)
	assert.NotZero(t, v.Handle())
	assert.Equal(t, 1, eng.Stats().Values)

	require.NoError(t, v.Close())
	assert.Zero(t, v.Handle())
	require.NoError(t, v.Close(), "closing a released value is a no-op")
	assert.Zero(t, eng.Stats().Values)

	requirePanicsWith(t, ErrUseAfterRelease, func() { _ = v.String() })
	requirePanicsWith(t, ErrUseAfterRelease, func() { v.ToInt64() })
}
