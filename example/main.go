package main

import (
	"fmt"
	"log"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	duckdb "github.com/semihalev/go-duckdb-ext"
	"github.com/semihalev/go-duckdb-ext/capi"
	"github.com/semihalev/go-duckdb-ext/memapi"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	var api capi.API
	lib, err := capi.Open(capi.WithLogger(logger))
	if err != nil {
		logger.Info("native library unavailable, using in-memory engine", zap.Error(err))
		api = memapi.New()
	} else {
		defer lib.Close()
		v := lib.Version()
		logger.Info("loaded duckdb", zap.String("path", lib.Path()), zap.Stringer("version", v))
		if !v.AtLeast(1, 2, 0) {
			log.Fatalf("duckdb %s is too old, need 1.2.0 or newer", v)
		}
		api = lib
	}

	h := duckdb.NewHost(api, duckdb.WithLogger(logger))

	bigint, err := h.NewLogicalType(capi.TypeBigInt)
	if err != nil {
		log.Fatalf("failed to create type: %v", err)
	}
	defer bigint.Close()

	// Flat vector with a NULL.
	vec, err := h.AllocateVector(bigint, 8)
	if err != nil {
		log.Fatalf("failed to allocate vector: %v", err)
	}
	if err := duckdb.Copy(vec, []int64{10, 20, 30, 40, 50, 60, 70, 80}); err != nil {
		log.Fatalf("failed to copy: %v", err)
	}
	vec.SetNull(3)

	data := duckdb.AsSlice[int64](vec)
	for row := range vec.Capacity() {
		if vec.RowIsNull(row) {
			fmt.Printf("row %d: NULL\n", row)
			continue
		}
		fmt.Printf("row %d: %d\n", row, data[row])
	}

	// Slice the even rows into a dictionary vector.
	even := roaring.BitmapOf(0, 2, 4, 6)
	sel, err := h.SelectionVectorFromBitmap(even)
	if err != nil {
		log.Fatalf("failed to build selection: %v", err)
	}
	dict, err := vec.Slice(vec.Capacity(), sel)
	if err != nil {
		log.Fatalf("failed to slice: %v", err)
	}
	lt, err := dict.LogicalType()
	if err != nil {
		log.Fatalf("failed to read type: %v", err)
	}
	fmt.Printf("dictionary of %s: %d rows over %d\n", lt, dict.Len(), dict.DictionarySize())
	lt.Close()
	dict.Close()

	// A LIST(BIGINT) column inside a chunk.
	listType, err := h.NewListType(bigint)
	if err != nil {
		log.Fatalf("failed to create list type: %v", err)
	}
	defer listType.Close()

	chunk, err := h.NewDataChunk(listType)
	if err != nil {
		log.Fatalf("failed to create chunk: %v", err)
	}
	defer chunk.Close()

	list := chunk.ListVector(0)
	if err := duckdb.SetChild(list, []int64{1, 2, 3, 4, 5}); err != nil {
		log.Fatalf("failed to fill list: %v", err)
	}
	_ = list.SetEntry(0, 0, 2)
	_ = list.SetEntry(1, 2, 3)
	_ = chunk.SetLen(2)
	fmt.Printf("list column: %d rows, %d elements, entries %v\n", chunk.Len(), list.Len(), list.Entries()[:2])

	// Scalars.
	for _, x := range []any{int32(42), 3.5, "hello", duckdb.Date(19000), nil} {
		val, err := h.Value(x)
		if err != nil {
			log.Fatalf("failed to create value: %v", err)
		}
		fmt.Printf("value %v -> %s\n", x, val)
		val.Close()
	}
}
