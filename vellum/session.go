// Package vellum is the public face of the type query engine: a Session owns
// the variable table queries resolve against and the caches they fill.
package vellum

import (
	"log/slog"

	"github.com/cottand/vellum/frontend/types"
	"github.com/cottand/vellum/internal/log"
)

var sessionLogger = log.DefaultLogger.With("section", "session")

// Session is one consumer's handle on the engine. The variable table behind
// it may be shared with sibling sessions (see Fork), the query caches are the
// session's own.
//
// A Session is not safe for concurrent use; give each goroutine a Fork.
type Session struct {
	vars   *types.VarTable
	ctx    *types.TypeCtx
	logger *slog.Logger
}

// NewSession starts a session over a fresh variable table.
func NewSession() *Session {
	vars := types.NewVarTable()
	return &Session{
		vars:   vars,
		ctx:    types.NewTypeCtx(vars),
		logger: sessionLogger,
	}
}

// Fork starts a sibling session over the same variable table with caches of
// its own. Forks are how parallel queries share one set of bounds.
func (s *Session) Fork() *Session {
	s.logger.Debug("forking session")
	return &Session{
		vars:   s.vars,
		ctx:    types.NewTypeCtx(s.vars),
		logger: s.logger,
	}
}

// NewTypeVariable registers a fresh variable with the given initial bounds.
// Register variables before handing the session's forks to other goroutines.
func (s *Session) NewTypeVariable(nameHint string, lbs, ubs []types.Ty) types.Ty {
	return s.vars.NewTypeVariable(nameHint, lbs, ubs)
}

// AddLowerBound records that v is a supertype of bound.
func (s *Session) AddLowerBound(v, bound types.Ty) {
	s.vars.AddLowerBound(v, bound)
}

// AddUpperBound records that v is a subtype of bound.
func (s *Session) AddUpperBound(v, bound types.Ty) {
	s.vars.AddUpperBound(v, bound)
}

// Weaken marks v's bounds as tentative. It reports whether v was a variable
// this session's table knows.
func (s *Session) Weaken(v types.Ty) bool {
	entry, ok := s.vars.Entry(v)
	if !ok {
		return false
	}
	entry.Weaken()
	return true
}

// Simplify folds recorded bounds into t. See types.TypeCtx.Simplify.
func (s *Session) Simplify(t types.Ty, principal bool) types.Ty {
	return s.ctx.Simplify(t, principal)
}

// SignatureOf is the primary call signature of a value of type t, resolving
// runtime values through typer. typer may be nil when t cannot contain any.
func (s *Session) SignatureOf(t types.Ty, typer types.FuncTyper) (*types.SigTy, bool) {
	sig, ok := s.ctx.SigRepr(t, true, typer)
	if !ok {
		s.logger.Debug("no call signature", "type", t)
	}
	return sig, ok
}

// Surfaces hands checker every way a value of type t serves as the given
// call surface. See types.TypeCtx.SigSurface.
func (s *Session) Surfaces(t types.Ty, kind types.SigSurfaceKind, checker types.SigChecker) {
	s.ctx.SigSurface(t, true, kind, checker)
}
