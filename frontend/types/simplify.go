package types

import (
	"github.com/hashicorp/go-set/v3"
)

// polarVariableKey identifies one polar occurrence of a variable.
type polarVariableKey struct {
	tv  TypeVarID
	pol bool
}

var simplifyLogger = logger.With("section", "types.simplify")

// Simplify rewrites t with variable bounds folded in. Variables never appear
// in the result: each occurrence becomes the part of its recorded bounds that
// matters at that position, or Any when nothing of it survives.
//
// With principal set, a side of a variable's bounds is dropped when the
// occurrence polarity already implies it; without it both sides are kept.
// Results are cached on the session per (term, principal).
func (ctx *TypeCtx) Simplify(t Ty, principal bool) Ty {
	key := simplifyKey{ty: t.Hash(), principal: principal}
	if cached, ok := ctx.simplified[key]; ok {
		ctx.cacheHits++
		ctx.logger.Debug("simplify: cache hit", "type", t, "principal", principal)
		return cached
	}
	ctx.cacheMisses++

	analyzer := &analyzerState{
		ctx:       ctx,
		principal: principal,
		positives: set.New[TypeVarID](8),
		negatives: set.New[TypeVarID](8),
	}
	analyzer.analyze(t, true)

	transformer := &transformerState{
		ctx:       ctx,
		principal: principal,
		positives: analyzer.positives,
		negatives: analyzer.negatives,
		local:     make(map[TypeVarID]Ty),
	}
	result := transformer.transform(t, true)

	simplifyLogger.Debug("simplified type", "type", t, "principal", principal, "result", result)
	ctx.simplified[key] = result
	return result
}

// analyzerState is the occurrence pass: it records the polarities at which
// each variable is reachable from the root.
type analyzerState struct {
	ctx       *TypeCtx
	principal bool
	positives *set.Set[TypeVarID]
	negatives *set.Set[TypeVarID]
}

func (a *analyzerState) analyze(t Ty, pol bool) {
	switch ty := t.(type) {
	case *typeVariable:
		simplifyLogger.Debug("analyze: variable", "var", ty, "positive", pol)
		// marking before reading the cell keeps the traversal from ever
		// re-entering a lock it already holds
		seen := a.negatives
		if pol {
			seen = a.positives
		}
		if !seen.Insert(ty.id) {
			return
		}
		cell := a.ctx.vars.mustCellOf(ty)
		cell.read(func(bounds TypeBounds) {
			if pol {
				for _, lb := range bounds.Lbs {
					a.analyze(lb, pol)
				}
			} else {
				for _, ub := range bounds.Ubs {
					a.analyze(ub, pol)
				}
			}
		})
	case funcType:
		for _, input := range ty.sig.types {
			a.analyze(input, !pol)
		}
		if ret, ok := ty.sig.Ret(); ok {
			a.analyze(ret, pol)
		}
	case withType:
		a.analyze(ty.sig, pol)
		for _, input := range ty.with.types {
			a.analyze(input, pol)
		}
	case argsType:
		for _, input := range ty.args.types {
			a.analyze(input, pol)
		}
	case letType:
		for _, lb := range ty.Lbs {
			a.analyze(lb, !pol)
		}
		for _, ub := range ty.Ubs {
			a.analyze(ub, pol)
		}
	case dictType:
		for _, field := range ty.record.types {
			a.analyze(field, pol)
		}
	case tupleType:
		for _, elem := range ty.elems {
			a.analyze(elem, pol)
		}
	case arrayType:
		a.analyze(ty.elem, pol)
	case unionType:
		for _, member := range ty.types {
			a.analyze(member, pol)
		}
	case selectType:
		a.analyze(ty.ty, pol)
	case unaryType:
		a.analyze(ty.operand, pol)
	case binaryType:
		a.analyze(ty.lhs, pol)
		a.analyze(ty.rhs, pol)
	case ifType:
		a.analyze(ty.cond, pol)
		a.analyze(ty.then, pol)
		a.analyze(ty.els, pol)
	case paramType:
		a.analyze(ty.ty, pol)
	}
	// anyType, booleanType, builtinType and valueType carry no variables
}

// transformerState is the rewriting pass. It shares the polarity sets the
// analyzer collected and keeps a per-call cache of variables already
// rewritten. The cache is seeded with Any before descending into a variable's
// bounds, so self references flatten instead of recursing forever.
type transformerState struct {
	ctx       *TypeCtx
	principal bool
	positives *set.Set[TypeVarID]
	negatives *set.Set[TypeVarID]
	local     map[TypeVarID]Ty
}

func (ts *transformerState) transform(t Ty, pol bool) Ty {
	switch ty := t.(type) {
	case *typeVariable:
		if cached, ok := ts.local[ty.id]; ok {
			return cached
		}
		ts.local[ty.id] = Any
		cell := ts.ctx.vars.mustCellOf(ty)
		var result Ty
		cell.read(func(bounds TypeBounds) {
			result = ts.transformLet(bounds, ty, pol)
		})
		simplifyLogger.Debug("transform: variable", "var", ty, "positive", pol, "result", result)
		ts.local[ty.id] = result
		return result
	case letType:
		return ts.transformLet(ty.TypeBounds, nil, pol)
	case funcType:
		return funcType{sig: ts.transformSig(ty.sig, pol)}
	case withType:
		return withType{
			sig:  ts.transform(ty.sig, pol),
			with: ts.transformSig(ty.with, !pol),
		}
	case argsType:
		return argsType{args: ts.transformSig(ty.args, !pol)}
	case unionType:
		members := make([]Ty, 0, len(ty.types))
		for _, member := range ty.types {
			member = ts.transform(member, pol)
			if Equal(member, Any) {
				continue
			}
			members = append(members, member)
		}
		return fromTypes(members)
	case dictType:
		fields := make([]Ty, len(ty.record.types))
		for i, field := range ty.record.types {
			fields[i] = ts.transform(field, pol)
		}
		return dictType{record: &RecordTy{types: fields, names: ty.record.names}}
	case tupleType:
		elems := make([]Ty, len(ty.elems))
		for i, elem := range ty.elems {
			elems[i] = ts.transform(elem, pol)
		}
		return tupleType{elems: elems}
	case arrayType:
		return arrayType{elem: ts.transform(ty.elem, pol)}
	case selectType:
		return selectType{ty: ts.transform(ty.ty, pol), field: ty.field}
	case unaryType:
		return unaryType{op: ty.op, operand: ts.transform(ty.operand, pol)}
	case binaryType:
		return binaryType{
			op:  ty.op,
			lhs: ts.transform(ty.lhs, pol),
			rhs: ts.transform(ty.rhs, pol),
		}
	case ifType:
		return ifType{
			cond: ts.transform(ty.cond, pol),
			then: ts.transform(ty.then, pol),
			els:  ts.transform(ty.els, pol),
		}
	case paramType:
		return paramType{name: ty.name, ty: ts.transform(ty.ty, pol), attrs: ty.attrs}
	default:
		// anyType, booleanType, builtinType and valueType are leaves
		return t
	}
}

// transformSig rebuilds a signature: inputs flip polarity, the return type
// keeps it.
func (ts *transformerState) transformSig(sig *SigTy, pol bool) *SigTy {
	types := make([]Ty, len(sig.types))
	for i, input := range sig.types {
		types[i] = ts.transform(input, !pol)
	}
	out := *sig
	out.types = types
	if sig.ret != nil {
		out.ret = ts.transform(sig.ret, pol)
	}
	return &out
}

// transformLet rewrites the bounds of owner (nil for a detached bounds term)
// seen at pol. In principal mode a side is dropped when keeping it would
// restate what the occurrence polarities already determine: lower bounds of a
// variable that also occurs negatively, upper bounds of one that also occurs
// positively.
func (ts *transformerState) transformLet(bounds TypeBounds, owner *typeVariable, pol bool) Ty {
	var lbs, ubs []Ty

	keepLbs := !ts.principal || (pol && (owner == nil || !ts.negatives.Contains(owner.id)))
	keepUbs := !ts.principal || (!pol && (owner == nil || !ts.positives.Contains(owner.id)))

	if keepLbs {
		for _, lb := range bounds.Lbs {
			lbs = append(lbs, ts.transform(lb, pol))
		}
	}
	if keepUbs {
		for _, ub := range bounds.Ubs {
			ubs = append(ubs, ts.transform(ub, !pol))
		}
	}

	lbs = sortDedupTys(lbs)
	ubs = sortDedupTys(ubs)

	switch {
	case len(ubs) == 0 && len(lbs) == 1:
		return lbs[0]
	case len(ubs) == 0 && len(lbs) == 0:
		return Any
	case len(lbs) == 0 && len(ubs) == 1:
		return ubs[0]
	}
	return letType{TypeBounds{Lbs: lbs, Ubs: ubs}}
}
