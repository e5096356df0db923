package types

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/cottand/vellum/util"
)

// nameBone is the sorted set of field names a record or signature carries. It
// lives apart from the field types so name lookup is a binary search and name
// intersection is a merge join.
type nameBone struct {
	names []string
}

var emptyNameBone = &nameBone{}

func (b *nameBone) find(name string) (int, bool) {
	return slices.BinarySearch(b.names, name)
}

// intersect yields index pairs for the names present in both bones, in name
// order.
func (b *nameBone) intersect(other *nameBone) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		i, j := 0, 0
		for i < len(b.names) && j < len(other.names) {
			switch {
			case b.names[i] < other.names[j]:
				i++
			case b.names[i] > other.names[j]:
				j++
			default:
				if !yield(i, j) {
					return
				}
				i++
				j++
			}
		}
	}
}

func (b *nameBone) Hash() uint64 {
	var hash uint64 = 15485863
	for _, name := range b.names {
		hash = hash*16777619 ^ hashString(name)
	}
	return hash
}

// RecordTy is a set of named field types, sorted by field name.
type RecordTy struct {
	types []Ty
	names *nameBone
}

// NewRecord builds a record from (name, type) fields given in any order.
func NewRecord(fields ...util.Pair[string, Ty]) *RecordTy {
	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, func(a, b util.Pair[string, Ty]) int {
		return cmp.Compare(a.Fst, b.Fst)
	})
	names := make([]string, len(sorted))
	types := make([]Ty, len(sorted))
	for i, field := range sorted {
		names[i] = field.Fst
		types[i] = field.Snd
	}
	return &RecordTy{types: types, names: &nameBone{names: names}}
}

func (t *RecordTy) Len() int { return len(t.types) }

// Field looks one field up by name.
func (t *RecordTy) Field(name string) (Ty, bool) {
	idx, ok := t.names.find(name)
	if !ok {
		return nil, false
	}
	return t.types[idx], true
}

// Fields yields every field in name order.
func (t *RecordTy) Fields() iter.Seq2[string, Ty] {
	return func(yield func(string, Ty) bool) {
		for i, ty := range t.types {
			if !yield(t.names.names[i], ty) {
				return
			}
		}
	}
}

// IntersectKeys yields, for each field name the two records share, the field
// types on either side.
func (t *RecordTy) IntersectKeys(other *RecordTy) iter.Seq2[string, util.Pair[Ty, Ty]] {
	return func(yield func(string, util.Pair[Ty, Ty]) bool) {
		for i, j := range t.names.intersect(other.names) {
			if !yield(t.names.names[i], util.NewPair(t.types[i], other.types[j])) {
				return
			}
		}
	}
}

func (t *RecordTy) Hash() uint64 {
	var hash uint64 = 32452843
	for _, ty := range t.types {
		hash = hash*16777619 ^ ty.Hash()
	}
	return hash*16777619 ^ t.names.Hash()
}

func (t *RecordTy) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, ty := range t.types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.names.names[i])
		sb.WriteString(": ")
		sb.WriteString(ty.String())
	}
	sb.WriteString("}")
	return sb.String()
}

// SigTy is the signature of a callable: positional parameter types, then
// named ones, then an optional rest parameter, plus an optional return type.
//
// A single backing slice stores the positionals first (nameStarted of them),
// then the named types in name order, then the rest type when spreadRight is
// set.
type SigTy struct {
	types       []Ty
	ret         Ty // nil when unknown
	names       *nameBone
	nameStarted int
	spreadRight bool
}

// ArgsTy is a signature reused as a pack of concrete arguments: positional
// arguments stand where positional parameter types would, named arguments
// where named ones would.
type ArgsTy = SigTy

// NewSigTy builds a signature. named may come in any order; rest and ret may
// be nil when absent.
func NewSigTy(pos []Ty, named []util.Pair[string, Ty], rest, ret Ty) *SigTy {
	sorted := slices.Clone(named)
	slices.SortFunc(sorted, func(a, b util.Pair[string, Ty]) int {
		return cmp.Compare(a.Fst, b.Fst)
	})
	types := slices.Clone(pos)
	names := make([]string, 0, len(sorted))
	for _, field := range sorted {
		names = append(names, field.Fst)
		types = append(types, field.Snd)
	}
	t := &SigTy{
		types:       types,
		ret:         ret,
		names:       &nameBone{names: names},
		nameStarted: len(pos),
	}
	if rest != nil {
		t.types = append(t.types, rest)
		t.spreadRight = true
	}
	return t
}

// arrayCons is the signature of an array constructor: any number of elem.
func arrayCons(elem Ty, anyify bool) *SigTy {
	ret := ArrayOf(elem)
	if anyify {
		ret = Any
	}
	return &SigTy{
		types:       []Ty{elem},
		ret:         ret,
		names:       emptyNameBone,
		spreadRight: true,
	}
}

// tupleCons is the signature of a fixed-arity tuple constructor.
func tupleCons(elems []Ty, anyify bool) *SigTy {
	ret := TupleOf(elems...)
	if anyify {
		ret = Any
	}
	return &SigTy{
		types:       slices.Clone(elems),
		ret:         ret,
		names:       emptyNameBone,
		nameStarted: len(elems),
	}
}

// dictCons is the signature of a dictionary constructor: every field becomes
// a named parameter.
func dictCons(record *RecordTy, anyify bool) *SigTy {
	ret := DictOf(record)
	if anyify {
		ret = Any
	}
	return &SigTy{
		types: slices.Clone(record.types),
		ret:   ret,
		names: record.names,
	}
}

// PositionalParams are the parameter types bound by position.
func (t *SigTy) PositionalParams() []Ty {
	return t.types[:t.nameStarted]
}

// NamedParams yields the named parameters in name order.
func (t *SigTy) NamedParams() iter.Seq2[string, Ty] {
	return func(yield func(string, Ty) bool) {
		for i, name := range t.names.names {
			if !yield(name, t.types[t.nameStarted+i]) {
				return
			}
		}
	}
}

// RestParam is the rest parameter type, when the signature has one.
func (t *SigTy) RestParam() (Ty, bool) {
	if !t.spreadRight {
		return nil, false
	}
	return t.types[len(t.types)-1], true
}

// Ret is the return type, when known.
func (t *SigTy) Ret() (Ty, bool) {
	if t.ret == nil {
		return nil, false
	}
	return t.ret, true
}

// Pos is the type of the idx-th positional parameter.
func (t *SigTy) Pos(idx int) (Ty, bool) {
	if idx < 0 || idx >= t.nameStarted {
		return nil, false
	}
	return t.types[idx], true
}

// Named is the type of the named parameter called name.
func (t *SigTy) Named(name string) (Ty, bool) {
	idx, ok := t.names.find(name)
	if !ok {
		return nil, false
	}
	return t.types[t.nameStarted+idx], true
}

// Matches pairs each parameter of the signature with the argument that binds
// to it in a call carrying args, after the packs in withs were applied first.
// withs is ordered outermost first, so it is walked in reverse. Positional
// surplus on either side binds against the other side's rest parameter, and
// named arguments bind by name.
func (t *SigTy) Matches(args *ArgsTy, withs []*ArgsTy) iter.Seq2[Ty, Ty] {
	sigPos := t.PositionalParams()
	sigRest, hasSigRest := t.RestParam()
	argRest, hasArgRest := args.RestParam()

	argLen := len(args.PositionalParams())
	for _, w := range withs {
		argLen += len(w.PositionalParams())
	}

	maxLen := max(len(sigPos), argLen)
	if hasSigRest && hasArgRest {
		maxLen++
	}
	count := maxLen
	if !hasSigRest {
		count = min(count, len(sigPos))
	}
	if !hasArgRest {
		count = min(count, argLen)
	}

	posStreams := make([]iter.Seq[Ty], 0, len(withs)+1)
	for w := range util.Reverse(withs) {
		posStreams = append(posStreams, slices.Values(w.PositionalParams()))
	}
	posStreams = append(posStreams, slices.Values(args.PositionalParams()))
	argPos := util.ConcatIter(posStreams...)

	namedStreams := make([]iter.Seq2[Ty, Ty], 0, len(withs)+1)
	for w := range util.Reverse(withs) {
		namedStreams = append(namedStreams, t.commonNamed(w))
	}
	namedStreams = append(namedStreams, t.commonNamed(args))
	named := util.ConcatIter2(namedStreams...)

	return func(yield func(Ty, Ty) bool) {
		idx := 0
		param := func() Ty {
			if idx < len(sigPos) {
				return sigPos[idx]
			}
			return sigRest
		}
		for arg := range argPos {
			if idx >= count {
				break
			}
			if !yield(param(), arg) {
				return
			}
			idx++
		}
		// surplus parameters past the concrete arguments bind the rest
		// argument, which count guarantees exists here
		for ; idx < count; idx++ {
			if !yield(param(), argRest) {
				return
			}
		}
		for l, r := range named {
			if !yield(l, r) {
				return
			}
		}
	}
}

// commonNamed pairs the signature's named parameters with the same-named
// arguments of args.
func (t *SigTy) commonNamed(args *ArgsTy) iter.Seq2[Ty, Ty] {
	return func(yield func(Ty, Ty) bool) {
		for i, j := range t.names.intersect(args.names) {
			if !yield(t.types[t.nameStarted+i], args.types[args.nameStarted+j]) {
				return
			}
		}
	}
}

func (t *SigTy) paramsString() string {
	var sb strings.Builder
	sb.WriteString("(")
	written := false
	next := func() {
		if written {
			sb.WriteString(", ")
		}
		written = true
	}
	for _, ty := range t.PositionalParams() {
		next()
		sb.WriteString(ty.String())
	}
	for name, ty := range t.NamedParams() {
		next()
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(ty.String())
	}
	if rest, ok := t.RestParam(); ok {
		next()
		sb.WriteString("..")
		sb.WriteString(rest.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// String renders the signature like "(pos, name: ty, ..rest) => ret".
func (t *SigTy) String() string {
	ret := "any"
	if t.ret != nil {
		ret = t.ret.String()
	}
	return t.paramsString() + " => " + ret
}

func (t *SigTy) Hash() uint64 {
	var hash uint64 = 49157
	for _, ty := range t.types {
		hash = hash*16777619 ^ ty.Hash()
	}
	if t.ret != nil {
		hash = hash*16777619 ^ t.ret.Hash()
	}
	hash = hash*16777619 ^ t.names.Hash()
	hash = hash*16777619 ^ uint64(t.nameStarted)
	if t.spreadRight {
		hash = hash*16777619 ^ 1
	}
	return hash
}
