package types

import (
	"log/slog"

	"github.com/cottand/vellum/internal/log"
)

var logger = log.DefaultLogger.With("section", "types")

// TypeCtx is one querying session over a shared VarTable. Its caches are not
// concurrency safe: parallel queries each get a TypeCtx of their own over the
// same table.
type TypeCtx struct {
	vars *VarTable

	logger *slog.Logger

	*TypeState
}

// TypeState is part of TypeCtx and is shared across all copies of it during a
// single session. It is not concurrency safe.
type TypeState struct {
	// simplified caches Simplify results per (term hash, principal mode)
	simplified map[simplifyKey]Ty

	cacheHits   uint64
	cacheMisses uint64
}

type simplifyKey struct {
	ty        uint64
	principal bool
}

// NewTypeCtx starts a session over vars.
func NewTypeCtx(vars *VarTable) *TypeCtx {
	return &TypeCtx{
		vars:   vars,
		logger: logger,
		TypeState: &TypeState{
			simplified: make(map[simplifyKey]Ty, 1),
		},
	}
}

// NewEmptyTypeCtx is a session over a fresh table of its own, mostly useful
// in tests. Share one VarTable via NewTypeCtx otherwise.
func NewEmptyTypeCtx() *TypeCtx {
	return NewTypeCtx(NewVarTable())
}

// Vars is the table this session reads bounds from.
func (ctx *TypeCtx) Vars() *VarTable { return ctx.vars }

// CacheStats reports Simplify cache hits and misses for this session.
func (ctx *TypeCtx) CacheStats() (hits, misses uint64) {
	return ctx.cacheHits, ctx.cacheMisses
}
