package duckdb

import (
	"time"
)

// Date is a DuckDB DATE: days since the Unix epoch.
type Date int32

// Time is a DuckDB TIME: microseconds since midnight.
type Time int64

// TimestampS is a TIMESTAMP_S: seconds since the Unix epoch.
type TimestampS int64

// TimestampMS is a TIMESTAMP_MS: milliseconds since the Unix epoch.
type TimestampMS int64

// TimestampUS is a TIMESTAMP: microseconds since the Unix epoch.
type TimestampUS int64

// TimestampNS is a TIMESTAMP_NS: nanoseconds since the Unix epoch.
type TimestampNS int64

const secondsPerDay = 60 * 60 * 24

// DateFromTime converts a Go time.Time to a DuckDB date.
func DateFromTime(t time.Time) Date {
	t = t.UTC()
	days := t.Unix() / secondsPerDay
	// Unix division truncates toward zero; dates before the epoch round down.
	if t.Unix()%secondsPerDay < 0 {
		days--
	}
	return Date(days)
}

// Time converts the date to midnight UTC.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// TimeFromTime converts the clock part of a Go time.Time to a DuckDB time.
func TimeFromTime(t time.Time) Time {
	hour, min, sec := t.Clock()
	micros := int64(hour)*3600*1000000 + int64(min)*60*1000000 + int64(sec)*1000000 + int64(t.Nanosecond())/1000
	return Time(micros)
}

// Duration returns the time of day as an offset from midnight.
func (t Time) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

// TimestampFromTime converts a Go time.Time to a microsecond DuckDB timestamp.
func TimestampFromTime(t time.Time) TimestampUS {
	return TimestampUS(t.UnixMicro())
}

// Time converts the timestamp to a UTC time.Time.
func (ts TimestampS) Time() time.Time { return time.Unix(int64(ts), 0).UTC() }

// Time converts the timestamp to a UTC time.Time.
func (ts TimestampMS) Time() time.Time { return time.UnixMilli(int64(ts)).UTC() }

// Time converts the timestamp to a UTC time.Time.
func (ts TimestampUS) Time() time.Time { return time.UnixMicro(int64(ts)).UTC() }

// Time converts the timestamp to a UTC time.Time.
func (ts TimestampNS) Time() time.Time { return time.Unix(0, int64(ts)).UTC() }
