package types

import (
	"slices"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// TypeVarID identifies a type variable within one VarTable.
type TypeVarID uint64

// typeVariable is a reference into the bounds table. Identity is the id
// alone; the bounds live in the table so parallel sessions can share them.
//
// Construct with VarTable.NewTypeVariable.
type typeVariable struct {
	id       TypeVarID
	nameHint string
}

func (t *typeVariable) String() string {
	name := t.nameHint
	if name == "" {
		name = "α"
	}
	return name + strconv.FormatUint(uint64(t.id), 10)
}

func (t *typeVariable) Hash() uint64 {
	const prime1 uint64 = 31
	const prime2 uint64 = 7919

	// bounds are deliberately left out of the hash: two references to the
	// same variable are the same type even while its bounds keep growing
	return prime1 * prime2 * (uint64(t.id) + 17)
}

func (t *typeVariable) rank() uint8 { return rankVar }

// VarID extracts the variable identity out of a term, when it is one.
func VarID(t Ty) (TypeVarID, bool) {
	v, ok := t.(*typeVariable)
	if !ok {
		return 0, false
	}
	return v.id, true
}

// TypeBounds are the recorded constraints on one variable: the variable is a
// supertype of every lower bound and a subtype of every upper bound.
type TypeBounds struct {
	Lbs []Ty
	Ubs []Ty
}

// boundsCell guards one variable's bounds. Readers of many cells may overlap
// with the writer of one; every access stays inside a single cell's lock.
type boundsCell struct {
	mu     sync.RWMutex
	bounds TypeBounds
}

func (c *boundsCell) read(f func(TypeBounds)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f(c.bounds)
}

func (c *boundsCell) write(f func(*TypeBounds)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.bounds)
}

// VarKind says how strongly to believe a variable's bounds.
type VarKind uint8

const (
	// VarKindStrong bounds came from direct evidence.
	VarKindStrong VarKind = iota
	// VarKindWeak bounds are tentative, normally after inference saw
	// conflicting evidence for the variable.
	VarKindWeak
)

// TypeVarBounds is one table entry: a variable's bounds plus how strongly to
// believe them.
type TypeVarBounds struct {
	kind VarKind
	cell *boundsCell
}

func (b *TypeVarBounds) Kind() VarKind { return b.kind }

// Weaken marks the entry as tentative. Weak bounds still resolve like strong
// ones, the flag only records that inference stopped trusting them.
// Call it from the producing side, under the same ordering as bound writes.
func (b *TypeVarBounds) Weaken() { b.kind = VarKindWeak }

// Bounds returns a snapshot of the entry's current bounds.
func (b *TypeVarBounds) Bounds() TypeBounds {
	var out TypeBounds
	b.cell.read(func(bounds TypeBounds) {
		out = TypeBounds{Lbs: slices.Clone(bounds.Lbs), Ubs: slices.Clone(bounds.Ubs)}
	})
	return out
}

// VarTable owns every type variable of one engine run. Many sessions (see
// TypeCtx) may query it in parallel.
//
// Registration is single-writer: NewTypeVariable calls must happen before
// queries start running in parallel. Bound updates stay safe throughout, they
// take the variable's write lock.
type VarTable struct {
	fresher Fresher
	vars    map[TypeVarID]*TypeVarBounds
}

func NewVarTable() *VarTable {
	return &VarTable{vars: make(map[TypeVarID]*TypeVarBounds)}
}

// NewTypeVariable registers a fresh variable carrying the given initial
// bounds and returns the term referring to it. nameHint may be empty.
func (t *VarTable) NewTypeVariable(nameHint string, lbs, ubs []Ty) Ty {
	v := t.fresher.newTypeVariable(nameHint)
	t.vars[v.id] = &TypeVarBounds{
		kind: VarKindStrong,
		cell: &boundsCell{bounds: TypeBounds{Lbs: slices.Clone(lbs), Ubs: slices.Clone(ubs)}},
	}
	return v
}

// Entry looks up the table entry behind a variable term.
func (t *VarTable) Entry(v Ty) (*TypeVarBounds, bool) {
	tv, ok := v.(*typeVariable)
	if !ok {
		return nil, false
	}
	entry, ok := t.vars[tv.id]
	return entry, ok
}

// AddLowerBound records that v is a supertype of bound.
func (t *VarTable) AddLowerBound(v Ty, bound Ty) {
	t.mustCell(v).write(func(b *TypeBounds) {
		b.Lbs = append(b.Lbs, bound)
	})
}

// AddUpperBound records that v is a subtype of bound.
func (t *VarTable) AddUpperBound(v Ty, bound Ty) {
	t.mustCell(v).write(func(b *TypeBounds) {
		b.Ubs = append(b.Ubs, bound)
	})
}

func (t *VarTable) mustCell(v Ty) *boundsCell {
	tv, ok := v.(*typeVariable)
	if !ok {
		panic(errors.Errorf("not a type variable: %s", v))
	}
	return t.mustCellOf(tv)
}

func (t *VarTable) mustCellOf(tv *typeVariable) *boundsCell {
	return t.mustEntryOf(tv).cell
}

// mustEntryOf aborts on unregistered IDs. Hitting one means a term escaped
// the table that minted it, which no amount of recovery makes coherent.
func (t *VarTable) mustEntryOf(tv *typeVariable) *TypeVarBounds {
	entry, ok := t.vars[tv.id]
	if !ok {
		panic(errors.Errorf("type variable %s was never registered", tv))
	}
	return entry
}

// Fresher keeps track of new variable IDs.
// It is mutable and not suitable for concurrent use.
type Fresher struct {
	freshCount uint64
}

func (t *Fresher) newTypeVariable(nameHint string) *typeVariable {
	variable := &typeVariable{
		id:       TypeVarID(t.freshCount),
		nameHint: nameHint,
	}
	t.freshCount++
	return variable
}
