package types

import (
	"slices"
	"testing"

	"github.com/cottand/vellum/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedSig is one checker callback: the signature plus a snapshot of the
// pending argument packs and the polarity it arrived at.
type recordedSig struct {
	sig  Sig
	args []*ArgsTy
	pol  bool
}

func surfaceOf(ctx *TypeCtx, ty Ty, kind SigSurfaceKind) []recordedSig {
	var got []recordedSig
	ctx.SigSurface(ty, true, kind, SigCheckerFunc(func(sig Sig, sctx *SigCheckContext, pol bool) bool {
		got = append(got, recordedSig{sig: sig, args: slices.Clone(sctx.Args), pol: pol})
		return true
	}))
	return got
}

// stubTyper resolves function values by their rendered name.
type stubTyper map[string]*SigTy

func (s stubTyper) TypeOfFunc(val Value) (*SigTy, bool) {
	sig, ok := s[val.String()]
	return sig, ok
}

func TestSigSurfaceDispatch(t *testing.T) {
	ctx := NewEmptyTypeCtx()
	fn := NewSigTy([]Ty{Str}, nil, nil, Float)
	record := NewRecord(util.NewPair("a", Str))

	testCases := []struct {
		name  string
		ty    Ty
		kind  SigSurfaceKind
		want  int
		check func(t *testing.T, got []recordedSig)
	}{
		{
			name: "function type on a call surface",
			ty:   FuncOf(fn),
			kind: SigSurfaceCall,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(TypeSig)
				require.True(t, ok)
				assert.Same(t, fn, sig.Sig)
			},
		},
		{
			name: "function type on an array surface",
			ty:   FuncOf(fn),
			kind: SigSurfaceArray,
			want: 0,
		},
		{
			name: "function value on a call surface",
			ty:   ValueOf(FuncValue{Name: "calc"}),
			kind: SigSurfaceCall,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(ValueSig)
				require.True(t, ok)
				assert.Equal(t, FuncValue{Name: "calc"}, sig.Val)
			},
		},
		{
			name: "runtime type value converts on call",
			ty:   ValueOf(TypeValue{Name: "str"}),
			kind: SigSurfaceCall,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(TypeConsSig)
				require.True(t, ok)
				assert.Equal(t, "str", sig.Val.Name)
			},
		},
		{
			name: "string value is not callable",
			ty:   ValueOf(StrValue("x")),
			kind: SigSurfaceCall,
			want: 0,
		},
		{
			name: "array type on an array surface",
			ty:   ArrayOf(Str),
			kind: SigSurfaceArray,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(ArrayConsSig)
				require.True(t, ok)
				assert.True(t, Equal(Str, sig.Elem))
			},
		},
		{
			name: "array type on a dict surface",
			ty:   ArrayOf(Str),
			kind: SigSurfaceDict,
			want: 0,
		},
		{
			name: "tuple type on a bracket surface",
			ty:   TupleOf(Str, Float),
			kind: SigSurfaceArrayOrDict,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(TupleConsSig)
				require.True(t, ok)
				assert.Len(t, sig.Elems, 2)
			},
		},
		{
			name: "dict type on a dict surface",
			ty:   DictOf(record),
			kind: SigSurfaceDict,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(DictConsSig)
				require.True(t, ok)
				assert.Same(t, record, sig.Record)
			},
		},
		{
			name: "dict type on a call surface",
			ty:   DictOf(record),
			kind: SigSurfaceCall,
			want: 0,
		},
		{
			name: "type tag surfaces its constructor",
			ty:   TypeTag(TypeValue{Name: "int"}),
			kind: SigSurfaceCall,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(TypeConsSig)
				require.True(t, ok)
				assert.Equal(t, "int", sig.Val.Name)
			},
		},
		{
			name: "element tag surfaces its constructor",
			ty:   ElementTag(ElementValue{Name: "text"}),
			kind: SigSurfaceCall,
			want: 1,
			check: func(t *testing.T, got []recordedSig) {
				sig, ok := got[0].sig.(ValueSig)
				require.True(t, ok)
				assert.Equal(t, FuncValue{Name: "text"}, sig.Val)
			},
		},
		{
			name: "parameter annotation unwraps",
			ty:   ParamOf("f", FuncOf(fn), ParamAttrs{Positional: true}),
			kind: SigSurfaceCall,
			want: 1,
		},
		{
			name: "computed terms stay opaque",
			ty:   BinaryOf(BinaryAdd, FuncOf(fn), FuncOf(fn)),
			kind: SigSurfaceCall,
			want: 0,
		},
		{
			name: "conditionals stay opaque",
			ty:   IfOf(Bool, FuncOf(fn), FuncOf(fn)),
			kind: SigSurfaceCall,
			want: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := surfaceOf(ctx, tc.ty, tc.kind)
			require.Len(t, got, tc.want)
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
}

func TestSigSurfaceBuiltinDictTags(t *testing.T) {
	ctx := NewEmptyTypeCtx()

	testCases := []struct {
		tag    Ty
		record *RecordTy
	}{
		{tag: Stroke, record: StrokeDict()},
		{tag: Margin, record: MarginDict()},
		{tag: Inset, record: InsetDict()},
		{tag: Outset, record: OutsetDict()},
		{tag: Radius, record: RadiusDict()},
		{tag: TextFont, record: TextFontDict()},
	}

	for _, tc := range testCases {
		t.Run(tc.tag.String(), func(t *testing.T) {
			got := surfaceOf(ctx, tc.tag, SigSurfaceDict)
			require.Len(t, got, 1)
			sig, ok := got[0].sig.(DictConsSig)
			require.True(t, ok)
			assert.Same(t, tc.record, sig.Record)

			assert.Empty(t, surfaceOf(ctx, tc.tag, SigSurfaceCall))
			assert.Len(t, surfaceOf(ctx, tc.tag, SigSurfaceArrayOrDict), 1)
		})
	}
}

func TestSigSurfaceArgumentPacks(t *testing.T) {
	ctx := NewEmptyTypeCtx()
	fn := NewSigTy([]Ty{Str, Str}, nil, nil, nil)
	w1 := NewSigTy([]Ty{strLit("a")}, nil, nil, nil)
	w2 := NewSigTy([]Ty{strLit("b")}, nil, nil, nil)

	t.Run("packs accumulate outermost first", func(t *testing.T) {
		ty := WithOf(WithOf(FuncOf(fn), w1), w2)
		got := surfaceOf(ctx, ty, SigSurfaceCall)
		require.Len(t, got, 1)
		_, ok := got[0].sig.(TypeSig)
		require.True(t, ok)
		require.Len(t, got[0].args, 2)
		assert.Same(t, w2, got[0].args[0])
		assert.Same(t, w1, got[0].args[1])
	})

	t.Run("packs restore once the with term is left", func(t *testing.T) {
		u := UnionOf(FuncOf(fn), WithOf(FuncOf(fn), w1))
		got := surfaceOf(ctx, u, SigSurfaceCall)
		require.Len(t, got, 2)
		assert.Empty(t, got[0].args)
		assert.Len(t, got[1].args, 1)
	})

	t.Run("pending packs wrap the shape", func(t *testing.T) {
		ty := WithOf(WithOf(FuncOf(fn), w1), w2)
		var shape SigShape
		var ok bool
		ctx.SigSurface(ty, true, SigSurfaceCall, SigCheckerFunc(func(sig Sig, sctx *SigCheckContext, _ bool) bool {
			shape, ok = sctx.Apply(sig).Shape(nil)
			return false
		}))
		require.True(t, ok)
		assert.Same(t, fn, shape.Sig)
		require.Len(t, shape.Withs, 2)
		assert.Same(t, w2, shape.Withs[0])
		assert.Same(t, w1, shape.Withs[1])
	})

	t.Run("with terms stay opaque off call surfaces", func(t *testing.T) {
		assert.Empty(t, surfaceOf(ctx, WithOf(ArrayOf(Str), w1), SigSurfaceArray))
	})
}

func TestSigSurfaceVariables(t *testing.T) {
	fn := NewSigTy(nil, nil, nil, Float)

	t.Run("upper bounds surface at the same polarity", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		v := ctx.Vars().NewTypeVariable("a", nil, []Ty{FuncOf(fn)})
		got := surfaceOf(ctx, v, SigSurfaceCall)
		require.Len(t, got, 1)
		assert.True(t, got[0].pol)
	})

	t.Run("lower bounds surface at the flipped polarity", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		v := ctx.Vars().NewTypeVariable("a", []Ty{FuncOf(fn)}, nil)
		got := surfaceOf(ctx, v, SigSurfaceCall)
		require.Len(t, got, 1)
		assert.False(t, got[0].pol)
	})

	t.Run("detached bounds expand both sides", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		lb := NewSigTy(nil, nil, nil, Str)
		ub := NewSigTy(nil, nil, nil, Float)
		got := surfaceOf(ctx, LetOf([]Ty{FuncOf(lb)}, []Ty{FuncOf(ub)}), SigSurfaceCall)
		require.Len(t, got, 2)
		assert.True(t, got[0].pol)
		assert.False(t, got[1].pol)
	})

	t.Run("union members fan out", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		u := UnionOf(FuncOf(NewSigTy(nil, nil, nil, Float)), FuncOf(NewSigTy(nil, nil, nil, Str)))
		assert.Len(t, surfaceOf(ctx, u, SigSurfaceCall), 2)
	})

	t.Run("a refusal stops the walk", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		u := UnionOf(FuncOf(NewSigTy(nil, nil, nil, Float)), FuncOf(NewSigTy(nil, nil, nil, Str)))
		calls := 0
		ctx.SigSurface(u, true, SigSurfaceCall, SigCheckerFunc(func(Sig, *SigCheckContext, bool) bool {
			calls++
			return false
		}))
		assert.Equal(t, 1, calls)
	})

	t.Run("cyclic bounds terminate the walk", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		v := ctx.Vars().NewTypeVariable("a", nil, nil)
		w := ctx.Vars().NewTypeVariable("b", nil, nil)
		ctx.Vars().AddUpperBound(v, w)
		ctx.Vars().AddUpperBound(w, v)
		assert.Empty(t, surfaceOf(ctx, v, SigSurfaceCall))
	})

	t.Run("a self loop still surfaces its siblings", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		v := ctx.Vars().NewTypeVariable("a", nil, nil)
		ctx.Vars().AddUpperBound(v, v)
		ctx.Vars().AddUpperBound(v, FuncOf(fn))
		assert.Len(t, surfaceOf(ctx, v, SigSurfaceCall), 1)
	})
}

// varOverride resolves every variable to a fixed set of bounds instead of
// going through the session's table.
type varOverride struct {
	bounds TypeBounds
	got    []Sig
}

func (c *varOverride) CheckSig(sig Sig, _ *SigCheckContext, _ bool) bool {
	c.got = append(c.got, sig)
	return true
}

func (c *varOverride) CheckVar(Ty, bool) (TypeBounds, bool) {
	return c.bounds, true
}

func TestSigSurfaceVarChecker(t *testing.T) {
	tableSig := NewSigTy(nil, nil, nil, Str)
	hookSig := NewSigTy(nil, nil, nil, Float)

	t.Run("checker bounds win over the table", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		v := ctx.Vars().NewTypeVariable("a", nil, []Ty{FuncOf(tableSig)})
		checker := &varOverride{bounds: TypeBounds{Ubs: []Ty{FuncOf(hookSig)}}}
		ctx.SigSurface(v, true, SigSurfaceCall, checker)
		require.Len(t, checker.got, 1)
		sig, ok := checker.got[0].(TypeSig)
		require.True(t, ok)
		assert.Same(t, hookSig, sig.Sig)
	})

	t.Run("the table is never consulted with a checker in place", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		foreign := NewVarTable().NewTypeVariable("w", nil, nil)
		checker := &varOverride{bounds: TypeBounds{Ubs: []Ty{FuncOf(hookSig)}}}
		assert.NotPanics(t, func() {
			ctx.SigSurface(foreign, true, SigSurfaceCall, checker)
		})
		assert.Len(t, checker.got, 1)
	})
}

func TestSigSurfaceMethods(t *testing.T) {
	ctx := NewEmptyTypeCtx()
	fn := NewSigTy([]Ty{Str}, nil, nil, Float)

	t.Run("with on a function value partializes it", func(t *testing.T) {
		got := surfaceOf(ctx, SelectOf(ValueOf(FuncValue{Name: "text"}), "with"), SigSurfaceCall)
		require.Len(t, got, 1)
		part, ok := got[0].sig.(PartializeSig)
		require.True(t, ok)
		inner, ok := part.Inner.(ValueSig)
		require.True(t, ok)
		assert.Equal(t, FuncValue{Name: "text"}, inner.Val)
	})

	t.Run("where on a function type partializes it", func(t *testing.T) {
		got := surfaceOf(ctx, SelectOf(FuncOf(fn), "where"), SigSurfaceCall)
		require.Len(t, got, 1)
		part, ok := got[0].sig.(PartializeSig)
		require.True(t, ok)
		inner, ok := part.Inner.(TypeSig)
		require.True(t, ok)
		assert.Same(t, fn, inner.Sig)
	})

	t.Run("with on an element tag partializes its constructor", func(t *testing.T) {
		got := surfaceOf(ctx, SelectOf(ElementTag(ElementValue{Name: "text"}), "with"), SigSurfaceCall)
		require.Len(t, got, 1)
		part, ok := got[0].sig.(PartializeSig)
		require.True(t, ok)
		inner, ok := part.Inner.(ValueSig)
		require.True(t, ok)
		assert.Equal(t, FuncValue{Name: "text"}, inner.Val)
	})

	t.Run("map and at on arrays carry the element", func(t *testing.T) {
		got := surfaceOf(ctx, SelectOf(ArrayOf(Str), "map"), SigSurfaceCall)
		require.Len(t, got, 1)
		mapSig, ok := got[0].sig.(TupleMapSig)
		require.True(t, ok)
		assert.True(t, Equal(Str, mapSig.Elem))

		got = surfaceOf(ctx, SelectOf(ArrayOf(Str), "at"), SigSurfaceCall)
		require.Len(t, got, 1)
		atSig, ok := got[0].sig.(TupleAtSig)
		require.True(t, ok)
		assert.True(t, Equal(Str, atSig.Elem))
	})

	t.Run("map on tuples carries the union of elements", func(t *testing.T) {
		got := surfaceOf(ctx, SelectOf(TupleOf(Str, Float), "map"), SigSurfaceCall)
		require.Len(t, got, 1)
		mapSig, ok := got[0].sig.(TupleMapSig)
		require.True(t, ok)
		assert.Equal(t, "(float | str)", mapSig.Elem.String())
	})

	t.Run("other fields surface nothing", func(t *testing.T) {
		assert.Empty(t, surfaceOf(ctx, SelectOf(FuncOf(fn), "len"), SigSurfaceCall))
	})

	t.Run("methods resolve through variable bounds", func(t *testing.T) {
		local := NewEmptyTypeCtx()
		v := local.Vars().NewTypeVariable("a", nil, []Ty{ValueOf(FuncValue{Name: "text"})})
		got := surfaceOf(local, SelectOf(v, "with"), SigSurfaceCall)
		require.Len(t, got, 1)
		_, ok := got[0].sig.(PartializeSig)
		assert.True(t, ok)
	})
}

func TestSigShape(t *testing.T) {
	fn := NewSigTy([]Ty{Str}, nil, nil, Float)
	record := NewRecord(util.NewPair("a", Str))
	w1 := NewSigTy([]Ty{strLit("a")}, nil, nil, nil)

	t.Run("type signatures are already shaped", func(t *testing.T) {
		shape, ok := TypeSig{Sig: fn}.Shape(nil)
		require.True(t, ok)
		assert.Same(t, fn, shape.Sig)
		assert.Empty(t, shape.Withs)
	})

	t.Run("value signatures resolve through the typer", func(t *testing.T) {
		typer := stubTyper{"calc": fn}
		shape, ok := ValueSig{Val: FuncValue{Name: "calc"}}.Shape(typer)
		require.True(t, ok)
		assert.Same(t, fn, shape.Sig)

		_, ok = ValueSig{Val: FuncValue{Name: "calc"}}.Shape(nil)
		assert.False(t, ok)
		_, ok = ValueSig{Val: FuncValue{Name: "other"}}.Shape(typer)
		assert.False(t, ok)
	})

	t.Run("type constructors resolve through the typer", func(t *testing.T) {
		typer := stubTyper{"str": fn}
		shape, ok := TypeConsSig{Val: TypeValue{Name: "str"}}.Shape(typer)
		require.True(t, ok)
		assert.Same(t, fn, shape.Sig)
	})

	t.Run("constructor signatures spell themselves out", func(t *testing.T) {
		shape, ok := ArrayConsSig{Elem: Str}.Shape(nil)
		require.True(t, ok)
		assert.Equal(t, "(..str) => [str]", shape.Sig.String())

		shape, ok = TupleConsSig{Elems: []Ty{Str, Float}}.Shape(nil)
		require.True(t, ok)
		assert.Equal(t, "(str, float) => (str, float)", shape.Sig.String())

		shape, ok = DictConsSig{Record: record}.Shape(nil)
		require.True(t, ok)
		assert.Equal(t, "(a: str) => {a: str}", shape.Sig.String())
	})

	t.Run("applied packs ride on the shape", func(t *testing.T) {
		shape, ok := WithSig{Inner: TypeSig{Sig: fn}, Withs: []*ArgsTy{w1}}.Shape(nil)
		require.True(t, ok)
		assert.Same(t, fn, shape.Sig)
		require.Len(t, shape.Withs, 1)
		assert.Same(t, w1, shape.Withs[0])
	})

	t.Run("nested packs never normalize", func(t *testing.T) {
		nested := WithSig{Inner: WithSig{Inner: TypeSig{Sig: fn}, Withs: []*ArgsTy{w1}}}
		_, ok := nested.Shape(nil)
		assert.False(t, ok)
	})

	t.Run("markers have no shape", func(t *testing.T) {
		for _, sig := range []Sig{
			PartializeSig{Inner: TypeSig{Sig: fn}},
			TupleMapSig{Elem: Str},
			TupleAtSig{Elem: Str},
		} {
			_, ok := sig.Shape(nil)
			assert.False(t, ok)
			_, ok = sig.Ty()
			assert.False(t, ok)
		}
	})

	t.Run("signatures know their own type", func(t *testing.T) {
		ty, ok := TypeSig{Sig: fn}.Ty()
		require.True(t, ok)
		assert.True(t, Equal(ty, FuncOf(fn)))

		ty, ok = TypeConsSig{Val: TypeValue{Name: "str"}}.Ty()
		require.True(t, ok)
		assert.Equal(t, "type(str)", ty.String())

		ty, ok = ValueSig{Val: FuncValue{Name: "calc"}, At: Any}.Ty()
		require.True(t, ok)
		assert.True(t, Equal(ty, Any))

		ty, ok = ArrayConsSig{Elem: Str}.Ty()
		require.True(t, ok)
		assert.True(t, Equal(ty, ArrayOf(Str)))

		ty, ok = WithSig{Inner: TypeSig{Sig: fn}}.Ty()
		require.True(t, ok)
		assert.True(t, Equal(ty, FuncOf(fn)))
	})
}

func TestSigRepr(t *testing.T) {
	fn := NewSigTy([]Ty{Str}, nil, nil, Float)

	t.Run("a plain function is its own representative", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		sig, ok := ctx.SigRepr(FuncOf(fn), true, nil)
		require.True(t, ok)
		assert.Same(t, fn, sig)
	})

	t.Run("the first surface wins", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		fa := NewSigTy(nil, nil, nil, Float)
		fb := NewSigTy(nil, nil, nil, Str)
		sig, ok := ctx.SigRepr(UnionOf(FuncOf(fa), FuncOf(fb)), true, nil)
		require.True(t, ok)
		assert.Same(t, fa, sig)
	})

	t.Run("applied packs report the bare callee", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		pack := NewSigTy([]Ty{strLit("a")}, nil, nil, nil)
		sig, ok := ctx.SigRepr(WithOf(FuncOf(fn), pack), true, nil)
		require.True(t, ok)
		assert.Same(t, fn, sig)
	})

	t.Run("value functions need the typer", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		callee := ValueOf(FuncValue{Name: "calc"})
		sig, ok := ctx.SigRepr(callee, true, stubTyper{"calc": fn})
		require.True(t, ok)
		assert.Same(t, fn, sig)

		_, ok = ctx.SigRepr(callee, true, nil)
		assert.False(t, ok)
	})

	t.Run("surfaces that do not normalize are skipped", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		u := UnionOf(ValueOf(FuncValue{Name: "mystery"}), FuncOf(fn))
		sig, ok := ctx.SigRepr(u, true, stubTyper{})
		require.True(t, ok)
		assert.Same(t, fn, sig)
	})

	t.Run("non callables have no representative", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		_, ok := ctx.SigRepr(Str, true, nil)
		assert.False(t, ok)
	})

	t.Run("repeat queries agree", func(t *testing.T) {
		ctx := NewEmptyTypeCtx()
		u := UnionOf(FuncOf(fn), FuncOf(NewSigTy(nil, nil, nil, Str)))
		first, ok := ctx.SigRepr(u, true, nil)
		require.True(t, ok)
		second, ok := ctx.SigRepr(u, true, nil)
		require.True(t, ok)
		assert.Same(t, first, second)
	})
}

func TestSigSurfaceOpaqueTerms(t *testing.T) {
	ctx := NewEmptyTypeCtx()
	callee := FuncOf(NewSigTy(nil, nil, nil, Float))
	terms := []Ty{
		UnaryOf(UnaryNeg, callee),
		BinaryOf(BinaryAdd, callee, callee),
		IfOf(Bool, callee, callee),
	}
	kinds := []SigSurfaceKind{SigSurfaceCall, SigSurfaceArray, SigSurfaceDict, SigSurfaceArrayOrDict}

	for _, term := range terms {
		for _, kind := range kinds {
			assert.Empty(t, surfaceOf(ctx, term, kind), "%s", term)
		}
	}
}
