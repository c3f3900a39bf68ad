package duckdb

import (
	"runtime"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// DictionaryVector is a vector whose rows are read through a selection vector into a
// dictionary stored in another vector's buffer. It is created by FlatVector.Slice and
// has no mutation API.
type DictionaryVector struct {
	host     *Host
	handle   capi.Vector
	dictSize int
	sel      *SelectionVector
	own      ownership
	cleanup  runtime.Cleanup
	pin      any
}

func (*DictionaryVector) vector() {}

// Kind returns KindDictionary.
func (*DictionaryVector) Kind() VectorKind { return KindDictionary }

// Handle returns the engine handle.
func (dv *DictionaryVector) Handle() capi.Vector { return dv.handle }

// Len returns the number of logical rows, the selection length.
func (dv *DictionaryVector) Len() int { return int(dv.sel.Len()) }

// DictionarySize returns the number of rows in the dictionary.
func (dv *DictionaryVector) DictionarySize() int { return dv.dictSize }

// Selection returns the row indices into the dictionary.
func (dv *DictionaryVector) Selection() []uint32 { return dv.sel.Indices() }

// LogicalType returns the type of the sliced vector. The caller closes it.
func (dv *DictionaryVector) LogicalType() (*LogicalType, error) {
	if dv.handle == 0 {
		return nil, newErrorf(ErrUseAfterRelease, "use of released dictionary vector")
	}
	return dv.host.newLogicalType(dv.host.api.VectorGetColumnType(dv.handle), "dictionary")
}

// Close releases the selection vector, and the vector itself when it was sliced from
// an owned vector. Closing twice is a no-op.
func (dv *DictionaryVector) Close() error {
	if dv.handle == 0 {
		return nil
	}
	handle := dv.handle
	dv.handle = 0
	if dv.own == owned {
		dv.cleanup.Stop()
		dv.host.destroy("vector", func() { dv.host.api.DestroyVector(&handle) })
	}
	return dv.sel.Close()
}
