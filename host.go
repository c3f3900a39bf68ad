package duckdb

import (
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/semihalev/go-duckdb-ext/capi"
)

// Option configures a Host.
type Option func(*config)

type config struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for handle release and leak reports.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Host binds the vector layer to one engine capability surface. Every wrapper keeps
// the Host it was created from.
type Host struct {
	api capi.API
	log *zap.Logger
}

// NewHost creates a Host over api, which is usually a *capi.Library or a *memapi.Engine.
func NewHost(api capi.API, opts ...Option) *Host {
	c := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	return &Host{api: api, log: c.logger}
}

// API returns the capability surface.
func (h *Host) API() capi.API { return h.api }

// Logger returns the host logger.
func (h *Host) Logger() *zap.Logger { return h.log }

// VectorSize returns the engine's standard vector row count.
func (h *Host) VectorSize() int { return int(h.api.VectorSize()) }

type ownership uint8

const (
	borrowed ownership = iota
	owned
)

func (o ownership) String() string {
	if o == owned {
		return "owned"
	}
	return "borrowed"
}

// leak is the state a cleanup needs to release a handle whose owner was collected
// without Close. It must not reference the owner.
type leak struct {
	host    *Host
	kind    string
	release func()
}

// track registers a release backstop for an owned wrapper. Close stops it.
func track[T any](h *Host, owner *T, kind string, release func()) runtime.Cleanup {
	return runtime.AddCleanup(owner, func(l leak) {
		l.host.log.Error("native handle leaked, releasing from cleanup", zap.String("kind", l.kind))
		l.host.destroy(l.kind, l.release)
	}, leak{host: h, kind: kind, release: release})
}

// destroy runs a native release. A fault during release means ownership is corrupt,
// so it is logged and re-raised.
func (h *Host) destroy(kind string, release func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("native handle release failed", zap.String("kind", kind), zap.Any("fault", r))
			panic(r)
		}
	}()
	release()
	if ce := h.log.Check(zap.DebugLevel, "released native handle"); ce != nil {
		ce.Write(zap.String("kind", kind))
	}
}

// takeString copies a transient engine string and releases it on every path.
func (h *Host) takeString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	defer h.api.Free(p)
	return capi.GoString(p)
}

func (h *Host) vectorType(vec capi.Vector) capi.TypeID {
	lt := h.api.VectorGetColumnType(vec)
	defer h.api.DestroyLogicalType(&lt)
	return h.api.GetTypeID(lt)
}
