package types

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
)

var sigLogger = logger.With("section", "types.sig")

// SigSurfaceKind says which kind of call surface a query is after.
type SigSurfaceKind uint8

const (
	// SigSurfaceCall is a plain call, f(..).
	SigSurfaceCall SigSurfaceKind = iota
	// SigSurfaceArray is array-style construction or indexing.
	SigSurfaceArray
	// SigSurfaceDict is dictionary-style construction.
	SigSurfaceDict
	// SigSurfaceArrayOrDict is bracket syntax before it is known which of the
	// two it builds.
	SigSurfaceArrayOrDict
)

// Sig is one way a type presents a callable or indexable surface. A variant
// describes where the surface came from; Shape turns one into a plain
// signature.
type Sig interface {
	// Ty is the type this signature stands for, when it has one.
	Ty() (Ty, bool)
	// Shape normalizes the signature into a SigTy plus any argument packs
	// already applied to it. typer resolves runtime values to signatures and
	// may be nil.
	Shape(typer FuncTyper) (SigShape, bool)
	isSig()
}

// FuncTyper resolves a runtime value to the signature of calling it.
type FuncTyper interface {
	TypeOfFunc(val Value) (*SigTy, bool)
}

// SigShape is a normalized surface: the underlying callable plus the argument
// packs applied to it, outermost pack first.
type SigShape struct {
	Sig   *SigTy
	Withs []*ArgsTy
}

var (
	_ Sig = TypeSig{}
	_ Sig = TypeConsSig{}
	_ Sig = ValueSig{}
	_ Sig = ArrayConsSig{}
	_ Sig = TupleConsSig{}
	_ Sig = DictConsSig{}
	_ Sig = PartializeSig{}
	_ Sig = WithSig{}
	_ Sig = TupleMapSig{}
	_ Sig = TupleAtSig{}
)

// TypeSig is a function type's own signature.
type TypeSig struct {
	Sig *SigTy
}

func (s TypeSig) isSig()         {}
func (s TypeSig) Ty() (Ty, bool) { return FuncOf(s.Sig), true }
func (s TypeSig) Shape(FuncTyper) (SigShape, bool) {
	return SigShape{Sig: s.Sig}, true
}

// TypeConsSig calls a runtime type as a constructor, like str(..).
type TypeConsSig struct {
	Val TypeValue
	At  Ty
}

func (s TypeConsSig) isSig()         {}
func (s TypeConsSig) Ty() (Ty, bool) { return TypeTag(s.Val), true }
func (s TypeConsSig) Shape(typer FuncTyper) (SigShape, bool) {
	return shapeOfValue(s.Val, typer)
}

// ValueSig calls a plain function value.
type ValueSig struct {
	Val Value
	At  Ty
}

func (s ValueSig) isSig()         {}
func (s ValueSig) Ty() (Ty, bool) { return s.At, true }
func (s ValueSig) Shape(typer FuncTyper) (SigShape, bool) {
	return shapeOfValue(s.Val, typer)
}

func shapeOfValue(val Value, typer FuncTyper) (SigShape, bool) {
	if typer == nil {
		return SigShape{}, false
	}
	sig, ok := typer.TypeOfFunc(val)
	if !ok {
		return SigShape{}, false
	}
	return SigShape{Sig: sig}, true
}

// ArrayConsSig builds an array out of any number of Elem.
type ArrayConsSig struct {
	Elem Ty
}

func (s ArrayConsSig) isSig()         {}
func (s ArrayConsSig) Ty() (Ty, bool) { return ArrayOf(s.Elem), true }
func (s ArrayConsSig) Shape(FuncTyper) (SigShape, bool) {
	return SigShape{Sig: arrayCons(s.Elem, false)}, true
}

// TupleConsSig builds a fixed-length array, one argument per element.
type TupleConsSig struct {
	Elems []Ty
}

func (s TupleConsSig) isSig()         {}
func (s TupleConsSig) Ty() (Ty, bool) { return TupleOf(s.Elems...), true }
func (s TupleConsSig) Shape(FuncTyper) (SigShape, bool) {
	return SigShape{Sig: tupleCons(s.Elems, false)}, true
}

// DictConsSig builds a dictionary with Record's fields as named arguments.
type DictConsSig struct {
	Record *RecordTy
}

func (s DictConsSig) isSig()         {}
func (s DictConsSig) Ty() (Ty, bool) { return DictOf(s.Record), true }
func (s DictConsSig) Shape(FuncTyper) (SigShape, bool) {
	return SigShape{Sig: dictCons(s.Record, false)}, true
}

// PartializeSig is Inner reached through a binder method like with(): calling
// it returns the callee itself, partially applied. It deliberately has no
// type or shape of its own.
type PartializeSig struct {
	Inner Sig
}

func (s PartializeSig) isSig()                           {}
func (s PartializeSig) Ty() (Ty, bool)                   { return nil, false }
func (s PartializeSig) Shape(FuncTyper) (SigShape, bool) { return SigShape{}, false }

// WithSig is Inner with argument packs already applied, outermost pack first.
type WithSig struct {
	Inner Sig
	Withs []*ArgsTy
}

func (s WithSig) isSig()         {}
func (s WithSig) Ty() (Ty, bool) { return s.Inner.Ty() }
func (s WithSig) Shape(typer FuncTyper) (SigShape, bool) {
	// one layer of packs per shape, a nested With never normalizes
	if _, nested := s.Inner.(WithSig); nested {
		return SigShape{}, false
	}
	shape, ok := s.Inner.Shape(typer)
	if !ok {
		return SigShape{}, false
	}
	shape.Withs = s.Withs
	return shape, true
}

// TupleMapSig marks the map method of an array or tuple: the callback it
// takes receives Elem. Checkers read Elem directly, it has no plain shape.
type TupleMapSig struct {
	Elem Ty
}

func (s TupleMapSig) isSig()                           {}
func (s TupleMapSig) Ty() (Ty, bool)                   { return nil, false }
func (s TupleMapSig) Shape(FuncTyper) (SigShape, bool) { return SigShape{}, false }

// TupleAtSig marks the at method of an array or tuple over Elem.
type TupleAtSig struct {
	Elem Ty
}

func (s TupleAtSig) isSig()                           {}
func (s TupleAtSig) Ty() (Ty, bool)                   { return nil, false }
func (s TupleAtSig) Shape(FuncTyper) (SigShape, bool) { return SigShape{}, false }

// SigCheckContext rides along a surface walk: the surface kind wanted, plus
// the argument packs applied by enclosing with() terms, outermost first.
type SigCheckContext struct {
	Kind SigSurfaceKind
	Args []*ArgsTy
}

// Apply wraps sig in the context's pending argument packs, if any.
func (c *SigCheckContext) Apply(sig Sig) Sig {
	if len(c.Args) == 0 {
		return sig
	}
	return WithSig{Inner: sig, Withs: slices.Clone(c.Args)}
}

// SigChecker receives every signature a surface walk finds. Returning false
// aborts the rest of the walk.
type SigChecker interface {
	CheckSig(sig Sig, ctx *SigCheckContext, pol bool) bool
}

// SigCheckerFunc adapts a plain function to SigChecker.
type SigCheckerFunc func(sig Sig, ctx *SigCheckContext, pol bool) bool

func (f SigCheckerFunc) CheckSig(sig Sig, ctx *SigCheckContext, pol bool) bool {
	return f(sig, ctx, pol)
}

// VarChecker lets a SigChecker take over variable resolution during the
// walk. Checkers that do not implement it get variables resolved through the
// session's table.
type VarChecker interface {
	CheckVar(v Ty, pol bool) (TypeBounds, bool)
}

// SigSurface walks t and hands checker every way it can serve as the given
// surface kind. Argument packs applied through with() accumulate on the
// context the checker receives.
func (ctx *TypeCtx) SigSurface(t Ty, pol bool, kind SigSurfaceKind, checker SigChecker) {
	driver := &sigCheckDriver{
		ctx:     ctx,
		checker: checker,
		sctx:    SigCheckContext{Kind: kind},
		seen:    set.New[polarVariableKey](4),
	}
	driver.ty(t, pol)
}

// SigRepr is the primary call signature of t: the first call surface the walk
// finds that normalizes through typer. Argument packs the surface carries are
// reported by SigSurface; the representative signature is the bare callee.
func (ctx *TypeCtx) SigRepr(t Ty, pol bool, typer FuncTyper) (*SigTy, bool) {
	var primary *SigTy
	ctx.SigSurface(t, pol, SigSurfaceCall, SigCheckerFunc(func(sig Sig, sctx *SigCheckContext, _ bool) bool {
		shape, ok := sctx.Apply(sig).Shape(typer)
		if !ok {
			return true
		}
		primary = shape.Sig
		return false
	}))
	return primary, primary != nil
}

// sigCheckDriver performs one SigSurface walk. It doubles as the bound
// checker used to expand unions, bounds terms and variables along the way,
// and carries the seen set that keeps cyclic bounds from looping the walk.
type sigCheckDriver struct {
	ctx     *TypeCtx
	checker SigChecker
	sctx    SigCheckContext
	seen    *set.Set[polarVariableKey]
}

func (d *sigCheckDriver) funcAsSig() bool {
	return d.sctx.Kind == SigSurfaceCall
}

func (d *sigCheckDriver) arrayAsSig() bool {
	return d.sctx.Kind == SigSurfaceArray || d.sctx.Kind == SigSurfaceArrayOrDict
}

func (d *sigCheckDriver) dictAsSig() bool {
	return d.sctx.Kind == SigSurfaceDict || d.sctx.Kind == SigSurfaceArrayOrDict
}

func (d *sigCheckDriver) emit(sig Sig, pol bool) bool {
	return d.checker.CheckSig(sig, &d.sctx, pol)
}

func (d *sigCheckDriver) ty(t Ty, pol bool) bool {
	switch ty := t.(type) {
	case builtinType:
		return d.builtin(ty, pol)
	case valueType:
		if !d.funcAsSig() {
			return true
		}
		switch val := ty.val.(type) {
		case FuncValue:
			return d.emit(ValueSig{Val: val, At: ty}, pol)
		case TypeValue:
			return d.emit(TypeConsSig{Val: val, At: ty}, pol)
		}
	case funcType:
		if d.funcAsSig() {
			return d.emit(TypeSig{Sig: ty.sig}, pol)
		}
	case arrayType:
		if d.arrayAsSig() {
			return d.emit(ArrayConsSig{Elem: ty.elem}, pol)
		}
	case tupleType:
		if d.arrayAsSig() {
			return d.emit(TupleConsSig{Elems: ty.elems}, pol)
		}
	case dictType:
		if d.dictAsSig() {
			return d.emit(DictConsSig{Record: ty.record}, pol)
		}
	case withType:
		if d.funcAsSig() {
			d.sctx.Args = append(d.sctx.Args, ty.with)
			ok := d.ty(ty.sig, pol)
			d.sctx.Args = d.sctx.Args[:len(d.sctx.Args)-1]
			return ok
		}
	case selectType:
		sigLogger.Debug("surface: select", "base", ty.ty, "field", ty.field)
		method := &methodDriver{driver: d, name: ty.field}
		return checkBounds(ty.ty, pol, method)
	case paramType:
		return d.ty(ty.ty, pol)
	case unionType, letType, *typeVariable:
		return checkBounds(t, pol, d)
	}
	// unary, binary and if terms are computed values, they never surface a
	// signature themselves
	return true
}

func (d *sigCheckDriver) builtin(ty builtinType, pol bool) bool {
	switch {
	case ty.kind == strokeKind && d.dictAsSig():
		return d.emit(DictConsSig{Record: StrokeDict()}, pol)
	case ty.kind == marginKind && d.dictAsSig():
		return d.emit(DictConsSig{Record: MarginDict()}, pol)
	case ty.kind == insetKind && d.dictAsSig():
		return d.emit(DictConsSig{Record: InsetDict()}, pol)
	case ty.kind == outsetKind && d.dictAsSig():
		return d.emit(DictConsSig{Record: OutsetDict()}, pol)
	case ty.kind == radiusKind && d.dictAsSig():
		return d.emit(DictConsSig{Record: RadiusDict()}, pol)
	case ty.kind == textFontKind && d.dictAsSig():
		return d.emit(DictConsSig{Record: TextFontDict()}, pol)
	case ty.kind == typeKind && d.funcAsSig():
		return d.emit(TypeConsSig{Val: ty.val.(TypeValue), At: ty}, pol)
	case ty.kind == elementKind && d.funcAsSig():
		return d.emit(ValueSig{Val: ty.val.(ElementValue).constructor(), At: ty}, pol)
	}
	return true
}

func (d *sigCheckDriver) collect(t Ty, pol bool) bool {
	return d.ty(t, pol)
}

func (d *sigCheckDriver) boundsOf(v *typeVariable, pol bool) (TypeBounds, bool) {
	if !d.seen.Insert(polarVariableKey{tv: v.id, pol: pol}) {
		return TypeBounds{}, false
	}
	if vc, ok := d.checker.(VarChecker); ok {
		return vc.CheckVar(v, pol)
	}
	return d.ctx.vars.mustEntryOf(v).Bounds(), true
}

// methodDriver resolves surfaces reached through a field selection: binder
// methods partialize their callee, and the map/at accessors of arrays and
// tuples surface their element type.
type methodDriver struct {
	driver *sigCheckDriver
	name   string
}

func (m *methodDriver) isBinder() bool {
	return m.name == "with" || m.name == "where"
}

func (m *methodDriver) collect(t Ty, pol bool) bool {
	sigLogger.Debug("surface: method", "base", t, "method", m.name)
	switch ty := t.(type) {
	case valueType:
		if val, ok := ty.val.(FuncValue); ok && m.isBinder() {
			return m.driver.emit(PartializeSig{Inner: ValueSig{Val: val, At: ty}}, pol)
		}
	case builtinType:
		if ty.kind == elementKind && m.isBinder() {
			return m.driver.emit(PartializeSig{Inner: ValueSig{Val: ty.val.(ElementValue).constructor(), At: ty}}, pol)
		}
	case funcType:
		if m.isBinder() {
			return m.driver.emit(PartializeSig{Inner: TypeSig{Sig: ty.sig}}, pol)
		}
	case arrayType:
		switch m.name {
		case "map":
			return m.driver.emit(TupleMapSig{Elem: ty.elem}, pol)
		case "at":
			return m.driver.emit(TupleAtSig{Elem: ty.elem}, pol)
		}
	case tupleType:
		elem := UnionOf(ty.elems...)
		switch m.name {
		case "map":
			return m.driver.emit(TupleMapSig{Elem: elem}, pol)
		case "at":
			return m.driver.emit(TupleAtSig{Elem: elem}, pol)
		}
	}
	return true
}

func (m *methodDriver) boundsOf(v *typeVariable, pol bool) (TypeBounds, bool) {
	return m.driver.boundsOf(v, pol)
}
