package types

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cottand/vellum/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarTable(t *testing.T) {
	t.Run("fresh variables get distinct ids", func(t *testing.T) {
		table := NewVarTable()
		a := table.NewTypeVariable("a", nil, nil)
		b := table.NewTypeVariable("", nil, nil)

		aID, ok := VarID(a)
		require.True(t, ok)
		bID, ok := VarID(b)
		require.True(t, ok)
		assert.NotEqual(t, aID, bID)
		assert.False(t, Equal(a, b))

		assert.Equal(t, "a0", a.String())
		assert.Equal(t, "α1", b.String())

		_, ok = VarID(Str)
		assert.False(t, ok)
	})

	t.Run("registration records the initial bounds", func(t *testing.T) {
		table := NewVarTable()
		v := table.NewTypeVariable("a", []Ty{Float}, []Ty{Str})

		entry, ok := table.Entry(v)
		require.True(t, ok)
		bounds := entry.Bounds()
		assert.True(t, util.SlicesEquivalent(bounds.Lbs, []Ty{Float}))
		assert.True(t, util.SlicesEquivalent(bounds.Ubs, []Ty{Str}))
	})

	t.Run("initial bounds are copied in", func(t *testing.T) {
		table := NewVarTable()
		lbs := []Ty{Float}
		v := table.NewTypeVariable("a", lbs, nil)
		lbs[0] = Str

		entry, _ := table.Entry(v)
		assert.True(t, util.SlicesEquivalent(entry.Bounds().Lbs, []Ty{Float}))
	})

	t.Run("added bounds accumulate in order", func(t *testing.T) {
		table := NewVarTable()
		v := table.NewTypeVariable("a", nil, nil)
		table.AddLowerBound(v, Float)
		table.AddLowerBound(v, Str)
		table.AddUpperBound(v, Length)

		entry, _ := table.Entry(v)
		bounds := entry.Bounds()
		assert.True(t, util.SlicesEquivalent(bounds.Lbs, []Ty{Float, Str}))
		assert.True(t, util.SlicesEquivalent(bounds.Ubs, []Ty{Length}))
	})

	t.Run("snapshots do not alias the table", func(t *testing.T) {
		table := NewVarTable()
		v := table.NewTypeVariable("a", []Ty{Float}, nil)
		entry, _ := table.Entry(v)

		snapshot := entry.Bounds()
		snapshot.Lbs[0] = Str
		assert.True(t, util.SlicesEquivalent(entry.Bounds().Lbs, []Ty{Float}))
	})

	t.Run("weakening flips the kind", func(t *testing.T) {
		table := NewVarTable()
		v := table.NewTypeVariable("a", nil, nil)
		entry, _ := table.Entry(v)

		assert.Equal(t, VarKindStrong, entry.Kind())
		entry.Weaken()
		assert.Equal(t, VarKindWeak, entry.Kind())
	})

	t.Run("entries exist only for variables", func(t *testing.T) {
		table := NewVarTable()
		_, ok := table.Entry(Str)
		assert.False(t, ok)
	})

	t.Run("non variables cannot take bounds", func(t *testing.T) {
		table := NewVarTable()
		assert.Panics(t, func() { table.AddLowerBound(Str, Float) })
	})

	t.Run("foreign variables are rejected", func(t *testing.T) {
		foreign := NewVarTable().NewTypeVariable("a", nil, nil)
		assert.Panics(t, func() { NewVarTable().AddUpperBound(foreign, Str) })
	})
}

func TestParallelSessionsShareOneTable(t *testing.T) {
	table := NewVarTable()
	vars := make([]Ty, 16)
	for i := range vars {
		vars[i] = table.NewTypeVariable(fmt.Sprintf("v%d", i), []Ty{Float}, []Ty{Str})
	}
	// every variable is also bounded below by the next one, so one query
	// walks the whole chain of cells
	for i, v := range vars[:len(vars)-1] {
		table.AddLowerBound(v, vars[i+1])
	}

	t.Run("queries agree across sessions", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = NewTypeCtx(table).Simplify(vars[0], true).String()
			}()
		}
		wg.Wait()

		for _, result := range results {
			assert.Equal(t, "float", result)
		}
	})

	t.Run("bound writes interleave with queries", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				table.AddUpperBound(vars[len(vars)-1], Str)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				NewTypeCtx(table).Simplify(vars[0], false)
			}
		}()
		wg.Wait()
	})
}
