/*
Package duckdb gives DuckDB extension code zero-copy, ownership-correct access to the
columnar vectors the engine hands it.

# Overview

DuckDB processes data in batches of column vectors. A scalar or table function
receives raw vector handles owned by the engine; this package wraps them in typed
views so extension code can read and write values, validity bitmaps and nested
children without copying and without ever releasing memory it does not own.

The vector family:

  - FlatVector: a contiguous, nullable column buffer. The base of every other kind.
  - ListVector: per row (offset, length) pairs into one child vector.
  - ArrayVector: a fixed number of child elements per row.
  - StructVector: named children described by the logical type.
  - DictionaryVector: a FlatVector reinterpreted through a SelectionVector.

Value wraps one engine scalar, and LogicalType and DataChunk wrap types and batches.

# Engines

Everything goes through a Host bound to a capi.API. The capi package binds a real
libduckdb at runtime without cgo; package memapi implements the same surface in Go
memory for tests:

	lib, err := capi.Open()
	if err != nil {
		log.Fatalf("failed to load duckdb: %v", err)
	}
	defer lib.Close()

	h := duckdb.NewHost(lib)

	lt, _ := h.NewLogicalType(capi.TypeBigInt)
	defer lt.Close()

	vec, err := h.AllocateVector(lt, 4)
	if err != nil {
		log.Fatal(err)
	}
	defer vec.Close()

	_ = duckdb.Copy(vec, []int64{1, 2, 3, 4})
	vec.SetNull(2)

# Ownership

A handle allocated by this package (AllocateVector, NewSelectionVector, value
constructors, NewLogicalType, NewDataChunk) is owned and released exactly once by
Close. Handles that come from the engine, and every alias (Clone, children, WrapVector),
are borrowed; their Close only invalidates the view. Owned wrappers that are garbage
collected without Close are released by a cleanup that logs the leak. An alias keeps
its owner reachable, so the cleanup never runs while a view is still in use.

An absent validity bitmap means every row is valid. Validity reports the absence
instead of inventing a bitmap; SetNull and EnsureValidity materialize one.

The package is not safe for concurrent use of the same vector.
*/
package duckdb
