package types

import (
	"sync"

	"github.com/cottand/vellum/util"
)

// builtinKind enumerates the engine types this package knows specially,
// either because they admit dictionary construction or because calling them
// means something.
type builtinKind uint8

const (
	colorKind builtinKind = iota
	lengthKind
	floatKind
	strKind
	regexKind
	strokeKind
	marginKind
	insetKind
	outsetKind
	radiusKind
	textFontKind
	typeKind
	elementKind
)

// builtinType tags a term with one of the engine's special types. typeKind
// and elementKind carry the named value they refer to.
type builtinType struct {
	kind builtinKind
	val  Value
}

func (t builtinType) String() string {
	switch t.kind {
	case colorKind:
		return "color"
	case lengthKind:
		return "length"
	case floatKind:
		return "float"
	case strKind:
		return "str"
	case regexKind:
		return "regex"
	case strokeKind:
		return "stroke"
	case marginKind:
		return "margin"
	case insetKind:
		return "inset"
	case outsetKind:
		return "outset"
	case radiusKind:
		return "radius"
	case textFontKind:
		return "text-font"
	case typeKind:
		return "type(" + t.val.String() + ")"
	case elementKind:
		return "element(" + t.val.String() + ")"
	default:
		return "builtin"
	}
}

func (t builtinType) Hash() uint64 {
	var hash uint64 = 3355
	hash = hash*16777619 ^ uint64(t.kind)
	if t.val != nil {
		hash = hash*16777619 ^ t.val.Hash()
	}
	return hash
}

func (t builtinType) rank() uint8 { return rankBuiltin }

// Tags for the value-less builtin types.
var (
	Color    Ty = builtinType{kind: colorKind}
	Length   Ty = builtinType{kind: lengthKind}
	Float    Ty = builtinType{kind: floatKind}
	Str      Ty = builtinType{kind: strKind}
	Regex    Ty = builtinType{kind: regexKind}
	Stroke   Ty = builtinType{kind: strokeKind}
	Margin   Ty = builtinType{kind: marginKind}
	Inset    Ty = builtinType{kind: insetKind}
	Outset   Ty = builtinType{kind: outsetKind}
	Radius   Ty = builtinType{kind: radiusKind}
	TextFont Ty = builtinType{kind: textFontKind}
)

// TypeTag is the type of the runtime type val itself, like type(int).
func TypeTag(val TypeValue) Ty {
	return builtinType{kind: typeKind, val: val}
}

// ElementTag is the type of the content element val.
func ElementTag(val ElementValue) Ty {
	return builtinType{kind: elementKind, val: val}
}

func strLit(s string) Ty {
	return ValueOf(StrValue(s))
}

// strokeDash is the type of a stroke's dash field: a named preset, a pattern
// array, or a pattern dictionary with a phase.
var strokeDash = sync.OnceValue(func() Ty {
	pattern := ArrayOf(UnionOf(strLit("dot"), Float))
	return UnionOf(
		strLit("solid"),
		strLit("dotted"),
		strLit("densely-dotted"),
		strLit("loosely-dotted"),
		strLit("dashed"),
		strLit("densely-dashed"),
		strLit("loosely-dashed"),
		strLit("dash-dotted"),
		strLit("densely-dash-dotted"),
		strLit("loosely-dash-dotted"),
		pattern,
		DictOf(NewRecord(
			util.NewPair("array", pattern),
			util.NewPair("phase", Length),
		)),
	)
})

var strokeDict = sync.OnceValue(func() *RecordTy {
	return NewRecord(
		util.NewPair("paint", Color),
		util.NewPair("thickness", Length),
		util.NewPair("cap", UnionOf(strLit("butt"), strLit("round"), strLit("square"))),
		util.NewPair("join", UnionOf(strLit("miter"), strLit("round"), strLit("bevel"))),
		util.NewPair("dash", strokeDash()),
		util.NewPair("miter-limit", Float),
	)
})

// StrokeDict is the record a stroke accepts when constructed from a
// dictionary.
func StrokeDict() *RecordTy { return strokeDict() }

func lengthRecord(names ...string) *RecordTy {
	fields := make([]util.Pair[string, Ty], len(names))
	for i, name := range names {
		fields[i] = util.NewPair(name, Length)
	}
	return NewRecord(fields...)
}

var marginDict = sync.OnceValue(func() *RecordTy {
	return lengthRecord("top", "right", "bottom", "left", "inside", "outside", "x", "y", "rest")
})

// MarginDict is the record page margins accept when constructed from a
// dictionary.
func MarginDict() *RecordTy { return marginDict() }

var insetDict = sync.OnceValue(func() *RecordTy {
	return lengthRecord("top", "right", "bottom", "left", "x", "y", "rest")
})

func InsetDict() *RecordTy { return insetDict() }

var outsetDict = sync.OnceValue(func() *RecordTy {
	return lengthRecord("top", "right", "bottom", "left", "x", "y", "rest")
})

func OutsetDict() *RecordTy { return outsetDict() }

var radiusDict = sync.OnceValue(func() *RecordTy {
	return lengthRecord("top", "right", "bottom", "left",
		"top-left", "top-right", "bottom-left", "bottom-right", "rest")
})

func RadiusDict() *RecordTy { return radiusDict() }

var textFontDict = sync.OnceValue(func() *RecordTy {
	return NewRecord(
		util.NewPair("name", Str),
		util.NewPair("covers", UnionOf(strLit("latin-in-cjk"), Regex)),
	)
})

// TextFontDict is the record a font selection accepts when given with
// coverage.
func TextFontDict() *RecordTy { return textFontDict() }

// DictTag maps a catalogue name to its builtin tag type.
func DictTag(name string) (Ty, bool) {
	switch name {
	case "stroke":
		return Stroke, true
	case "margin":
		return Margin, true
	case "inset":
		return Inset, true
	case "outset":
		return Outset, true
	case "radius":
		return Radius, true
	case "text-font":
		return TextFont, true
	}
	return nil, false
}

// BuiltinDicts lists every dictionary-constructible builtin with its record,
// sorted by name.
func BuiltinDicts() []util.Pair[string, *RecordTy] {
	return []util.Pair[string, *RecordTy]{
		util.NewPair("inset", InsetDict()),
		util.NewPair("margin", MarginDict()),
		util.NewPair("outset", OutsetDict()),
		util.NewPair("radius", RadiusDict()),
		util.NewPair("stroke", StrokeDict()),
		util.NewPair("text-font", TextFontDict()),
	}
}
