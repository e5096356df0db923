// Package types implements the type terms of the scripting engine and the two
// analyses the tooling runs over them: bound simplification (see Simplify) and
// call/index signature resolution (see SigSurface and SigRepr).
//
// Type terms are immutable trees. Mutable state lives in exactly two places:
// the bounds table shared by every session (VarTable) and the per-session
// caches on TypeCtx.
package types

import (
	"cmp"
	"fmt"
	"hash/fnv"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"
	xset "github.com/xtgo/set"
)

// Ty is one node of a type term.
//
// The set of implementations is closed: rank doubles as the marker method that
// keeps it that way, and fixes the canonical variant order used for sorting.
type Ty interface {
	fmt.Stringer
	// Hash is a structural hash. Two terms with equal hashes are treated as
	// the same type everywhere in this package, see Equal.
	Hash() uint64
	rank() uint8
}

// Equal can be used to compare types (or any two hashable values) for
// equivalence. Terms are compared by structure rather than by pointer, so
// equality is hash equality.
func Equal[H, HH set.Hasher[uint64]](this H, other HH) bool {
	return this.Hash() == other.Hash()
}

// Canonical variant order. Sorting a union or a bound list first groups by
// variant, then falls back to the rendered form.
const (
	rankAny uint8 = iota
	rankBool
	rankBuiltin
	rankValue
	rankParam
	rankFunc
	rankWith
	rankArgs
	rankDict
	rankArray
	rankTuple
	rankSelect
	rankUnary
	rankBinary
	rankIf
	rankUnion
	rankLet
	rankVar
)

var (
	_ Ty = anyType{}
	_ Ty = booleanType{}
	_ Ty = builtinType{}
	_ Ty = valueType{}
	_ Ty = paramType{}
	_ Ty = funcType{}
	_ Ty = withType{}
	_ Ty = argsType{}
	_ Ty = dictType{}
	_ Ty = arrayType{}
	_ Ty = tupleType{}
	_ Ty = selectType{}
	_ Ty = unaryType{}
	_ Ty = binaryType{}
	_ Ty = ifType{}
	_ Ty = unionType{}
	_ Ty = letType{}
	_ Ty = (*typeVariable)(nil)
)

// Any is both the unknown type and the top of the gradual lattice; every type
// erases to it. It is also what simplification leaves behind when nothing of a
// variable survives.
var Any Ty = anyType{}

type anyType struct{}

func (anyType) String() string { return "any" }
func (anyType) Hash() uint64   { return 104729 }
func (anyType) rank() uint8    { return rankAny }

// Bool is the boolean type with no particular value attached.
var Bool Ty = booleanType{}

// BoolOf is the singleton type of one boolean literal.
func BoolOf(val bool) Ty {
	return booleanType{val: &val}
}

type booleanType struct {
	// nil when the value is statically unknown
	val *bool
}

func (t booleanType) String() string {
	switch {
	case t.val == nil:
		return "bool"
	case *t.val:
		return "true"
	default:
		return "false"
	}
}

func (t booleanType) Hash() uint64 {
	const prime uint64 = 7907
	switch {
	case t.val == nil:
		return prime
	case *t.val:
		return prime * 31
	default:
		return prime * 37
	}
}

func (t booleanType) rank() uint8 { return rankBool }

// ValueOf is the singleton type of a concrete value.
func ValueOf(val Value) Ty {
	return valueType{val: val}
}

type valueType struct {
	val Value
}

func (t valueType) String() string { return t.val.String() }
func (t valueType) Hash() uint64 {
	var hash uint64 = 6700417
	return hash*16777619 ^ t.val.Hash()
}
func (t valueType) rank() uint8 { return rankValue }

// ParamAttrs describe how a declared parameter binds at call sites.
type ParamAttrs struct {
	Positional bool
	Named      bool
	Variadic   bool
	Settable   bool
}

func (a ParamAttrs) bits() uint64 {
	var bits uint64
	if a.Positional {
		bits |= 1
	}
	if a.Named {
		bits |= 2
	}
	if a.Variadic {
		bits |= 4
	}
	if a.Settable {
		bits |= 8
	}
	return bits
}

// ParamOf annotates ty as a declared parameter. The annotation is transparent
// to simplification and signature resolution, both look through it.
func ParamOf(name string, ty Ty, attrs ParamAttrs) Ty {
	return paramType{name: name, ty: ty, attrs: attrs}
}

type paramType struct {
	name  string
	ty    Ty
	attrs ParamAttrs
}

func (t paramType) String() string {
	repr := t.name + ": " + t.ty.String()
	if t.attrs.Variadic {
		return ".." + repr
	}
	return repr
}

func (t paramType) Hash() uint64 {
	var hash uint64 = 12582917
	hash = hash*16777619 ^ hashString(t.name)
	hash = hash*16777619 ^ t.ty.Hash()
	hash = hash*16777619 ^ t.attrs.bits()
	return hash
}

func (t paramType) rank() uint8 { return rankParam }

// FuncOf is the type of a function with the given signature.
func FuncOf(sig *SigTy) Ty {
	return funcType{sig: sig}
}

type funcType struct {
	sig *SigTy
}

func (t funcType) String() string { return t.sig.String() }
func (t funcType) Hash() uint64 {
	var hash uint64 = 2166136261
	return hash*16777619 ^ t.sig.Hash()
}
func (t funcType) rank() uint8 { return rankFunc }

// WithOf is the type of sig with the arguments in with already applied.
// Chained applications nest: the outermost WithOf holds the latest arguments.
func WithOf(sig Ty, with *ArgsTy) Ty {
	return withType{sig: sig, with: with}
}

type withType struct {
	sig  Ty
	with *ArgsTy
}

func (t withType) String() string {
	return t.sig.String() + ".with" + t.with.paramsString()
}

func (t withType) Hash() uint64 {
	var hash uint64 = 6151
	hash = hash*16777619 ^ t.sig.Hash()
	hash = hash*16777619 ^ t.with.Hash()
	return hash
}

func (t withType) rank() uint8 { return rankWith }

// ArgsOf is the type of an argument pack, as captured by a partial
// application before the callee is known.
func ArgsOf(args *ArgsTy) Ty {
	return argsType{args: args}
}

type argsType struct {
	args *ArgsTy
}

func (t argsType) String() string { return "args" + t.args.paramsString() }
func (t argsType) Hash() uint64 {
	var hash uint64 = 12289
	return hash*16777619 ^ t.args.Hash()
}
func (t argsType) rank() uint8 { return rankArgs }

// DictOf is the type of dictionaries with the given fields.
func DictOf(record *RecordTy) Ty {
	return dictType{record: record}
}

type dictType struct {
	record *RecordTy
}

func (t dictType) String() string { return t.record.String() }
func (t dictType) Hash() uint64 {
	var hash uint64 = 24593
	return hash*16777619 ^ t.record.Hash()
}
func (t dictType) rank() uint8 { return rankDict }

// ArrayOf is the type of arrays whose elements all have type elem.
func ArrayOf(elem Ty) Ty {
	return arrayType{elem: elem}
}

type arrayType struct {
	elem Ty
}

func (t arrayType) String() string { return "[" + t.elem.String() + "]" }
func (t arrayType) Hash() uint64 {
	return 16769023*16777619 ^ t.elem.Hash()
}
func (t arrayType) rank() uint8 { return rankArray }

// TupleOf is the type of fixed-length arrays whose element types are known
// position by position.
func TupleOf(elems ...Ty) Ty {
	return tupleType{elems: slices.Clone(elems)}
}

type tupleType struct {
	elems []Ty
}

func (t tupleType) String() string { return "(" + joinTys(t.elems, ", ") + ")" }
func (t tupleType) Hash() uint64 {
	const prime1 uint64 = 433
	const prime2 uint64 = 9973

	hash := prime2
	for _, elem := range t.elems {
		hash = hash*prime1 ^ elem.Hash()
	}
	return hash
}
func (t tupleType) rank() uint8 { return rankTuple }

// SelectOf is the type of reading field off ty before ty is known precisely.
func SelectOf(ty Ty, field string) Ty {
	return selectType{ty: ty, field: field}
}

type selectType struct {
	ty    Ty
	field string
}

func (t selectType) String() string { return t.ty.String() + "." + t.field }
func (t selectType) Hash() uint64 {
	var hash uint64 = 98317
	hash = hash*16777619 ^ t.ty.Hash()
	hash = hash*16777619 ^ hashString(t.field)
	return hash
}
func (t selectType) rank() uint8 { return rankSelect }

type UnaryOp uint8

const (
	UnaryPos UnaryOp = iota
	UnaryNeg
	UnaryNot
	UnaryTypeOf
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryPos:
		return "+"
	case UnaryNeg:
		return "-"
	case UnaryNot:
		return "!"
	case UnaryTypeOf:
		return "typeof "
	default:
		return "?"
	}
}

func UnaryOf(op UnaryOp, operand Ty) Ty {
	return unaryType{op: op, operand: operand}
}

type unaryType struct {
	op      UnaryOp
	operand Ty
}

func (t unaryType) String() string { return t.op.String() + t.operand.String() }
func (t unaryType) Hash() uint64 {
	var hash uint64 = 196613
	hash = hash*16777619 ^ uint64(t.op)
	hash = hash*16777619 ^ t.operand.Hash()
	return hash
}
func (t unaryType) rank() uint8 { return rankUnary }

type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryEq
	BinaryLt
	BinaryAnd
	BinaryOr
)

func (op BinaryOp) String() string {
	switch op {
	case BinaryAdd:
		return "+"
	case BinarySub:
		return "-"
	case BinaryMul:
		return "*"
	case BinaryDiv:
		return "/"
	case BinaryEq:
		return "=="
	case BinaryLt:
		return "<"
	case BinaryAnd:
		return "and"
	case BinaryOr:
		return "or"
	default:
		return "?"
	}
}

func BinaryOf(op BinaryOp, lhs, rhs Ty) Ty {
	return binaryType{op: op, lhs: lhs, rhs: rhs}
}

type binaryType struct {
	op       BinaryOp
	lhs, rhs Ty
}

func (t binaryType) String() string {
	return "(" + t.lhs.String() + " " + t.op.String() + " " + t.rhs.String() + ")"
}

func (t binaryType) Hash() uint64 {
	var hash uint64 = 393241
	hash = hash*16777619 ^ uint64(t.op)
	hash = hash*16777619 ^ t.lhs.Hash()
	hash = hash*16777619 ^ t.rhs.Hash()
	return hash
}

func (t binaryType) rank() uint8 { return rankBinary }

// IfOf is the type of a conditional whose branches may disagree.
func IfOf(cond, then, els Ty) Ty {
	return ifType{cond: cond, then: then, els: els}
}

type ifType struct {
	cond, then, els Ty
}

func (t ifType) String() string {
	return "(" + t.cond.String() + " ? " + t.then.String() + " : " + t.els.String() + ")"
}

func (t ifType) Hash() uint64 {
	var hash uint64 = 786433
	hash = hash*16777619 ^ t.cond.Hash()
	hash = hash*16777619 ^ t.then.Hash()
	hash = hash*16777619 ^ t.els.Hash()
	return hash
}

func (t ifType) rank() uint8 { return rankIf }

// UnionOf normalizes members into a union: duplicates collapse, a single
// member stands alone, and no members at all mean Any.
func UnionOf(tys ...Ty) Ty {
	return fromTypes(tys)
}

type unionType struct {
	// sorted canonically, no duplicates
	types []Ty
}

func (t unionType) String() string { return "(" + joinTys(t.types, " | ") + ")" }
func (t unionType) Hash() uint64 {
	var hash uint64 = 1572869
	for _, member := range t.types {
		hash = hash*16777619 ^ member.Hash()
	}
	return hash
}
func (t unionType) rank() uint8 { return rankUnion }

// LetOf pairs lower and upper bounds detached from any particular variable.
// Simplification produces these when a variable's bounds survive in place.
func LetOf(lbs, ubs []Ty) Ty {
	return letType{TypeBounds{
		Lbs: sortDedupTys(slices.Clone(lbs)),
		Ubs: sortDedupTys(slices.Clone(ubs)),
	}}
}

type letType struct {
	TypeBounds
}

func (t letType) String() string {
	return "(" + joinTys(t.Lbs, " | ") + " <: " + joinTys(t.Ubs, " | ") + ")"
}

func (t letType) Hash() uint64 {
	var hash uint64 = 3145739
	for _, lb := range t.Lbs {
		hash = hash*16777619 ^ lb.Hash()
	}
	hash = hash*16777619 ^ 6700417
	for _, ub := range t.Ubs {
		hash = hash*16777619 ^ ub.Hash()
	}
	return hash
}

func (t letType) rank() uint8 { return rankLet }

// compareTy is the canonical order on type terms: variant rank first, then
// the rendered form. It exists so sorting and deduplication come out the same
// across runs and sessions.
func compareTy(a, b Ty) int {
	if c := cmp.Compare(a.rank(), b.rank()); c != 0 {
		return c
	}
	return cmp.Compare(a.String(), b.String())
}

type tySlice []Ty

func (s tySlice) Len() int           { return len(s) }
func (s tySlice) Less(i, j int) bool { return compareTy(s[i], s[j]) < 0 }
func (s tySlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// sortDedupTys sorts tys canonically and drops duplicates, in place.
func sortDedupTys(tys []Ty) []Ty {
	if len(tys) < 2 {
		return tys
	}
	s := tySlice(tys)
	sort.Sort(s)
	return tys[:xset.Uniq(s)]
}

// fromTypes builds the type denoted by a list of union members.
func fromTypes(tys []Ty) Ty {
	switch len(tys) {
	case 0:
		return Any
	case 1:
		return tys[0]
	}
	members := sortDedupTys(slices.Clone(tys))
	if len(members) == 1 {
		return members[0]
	}
	return unionType{types: members}
}

func joinTys(tys []Ty, sep string) string {
	parts := make([]string, len(tys))
	for i, t := range tys {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}

// Value is a concrete runtime value a singleton type can pin down. Like types,
// values compare by hash.
type Value interface {
	fmt.Stringer
	Hash() uint64
}

var (
	_ Value = FuncValue{}
	_ Value = TypeValue{}
	_ Value = ElementValue{}
	_ Value = StrValue("")
)

// FuncValue is a function the engine knows by name.
type FuncValue struct {
	Name string
}

func (t FuncValue) String() string { return t.Name }
func (t FuncValue) Hash() uint64   { return 31 * hashString(t.Name) }

// TypeValue names a runtime type, like int or str. Calling one converts its
// argument, so it surfaces a constructor signature.
type TypeValue struct {
	Name string
}

func (t TypeValue) String() string { return t.Name }
func (t TypeValue) Hash() uint64   { return 37 * hashString(t.Name) }

// ElementValue names a content element. Calling one runs its constructor.
type ElementValue struct {
	Name string
}

func (t ElementValue) String() string { return t.Name }
func (t ElementValue) Hash() uint64   { return 41 * hashString(t.Name) }

// constructor is the function an element stands for when it is called.
func (t ElementValue) constructor() FuncValue {
	return FuncValue{Name: t.Name}
}

// StrValue is a string literal.
type StrValue string

func (t StrValue) String() string { return strconv.Quote(string(t)) }
func (t StrValue) Hash() uint64   { return 43 * hashString(string(t)) }

func hashString(s string) uint64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(s))
	return hasher.Sum64()
}
