package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dholloway/tacc/types"
)

func TestDefineAndResolveInSameScope(t *testing.T) {
	tbl := NewTable()
	ok := tbl.Define(GlobalScopeID, "x", Variable{Type: types.Int, Storage: Global, ScopeID: GlobalScopeID})
	assert.True(t, ok)

	sym, found := tbl.Resolve(GlobalScopeID, "x")
	assert.True(t, found)
	v, isVar := sym.(Variable)
	assert.True(t, isVar)
	assert.Equal(t, types.Int, v.Type)
}

func TestRedefinitionInSameScopeFails(t *testing.T) {
	tbl := NewTable()
	assert.True(t, tbl.Define(GlobalScopeID, "x", Variable{Type: types.Int}))
	assert.False(t, tbl.Define(GlobalScopeID, "x", Variable{Type: types.Bool}))
}

func TestChildScopeResolveFallsBackToParentButNotViceVersa(t *testing.T) {
	tbl := NewTable()
	tbl.Define(GlobalScopeID, "x", Variable{Type: types.Int, Storage: Global})

	child := tbl.NewScope(GlobalScopeID)
	_, found := tbl.Resolve(child, "x")
	assert.True(t, found, "child scope should see global x")

	tbl.Define(child, "y", Variable{Type: types.Bool, Storage: Local, ScopeID: child})
	_, foundInGlobal := tbl.Resolve(GlobalScopeID, "y")
	assert.False(t, foundInGlobal, "sibling/parent scope must not see child-only declarations")
}

func TestScopeIDsAreUniqueAcrossSiblings(t *testing.T) {
	tbl := NewTable()
	a := tbl.NewScope(GlobalScopeID)
	b := tbl.NewScope(GlobalScopeID)
	assert.NotEqual(t, a, b)
}

func TestUndefinedNameDoesNotResolve(t *testing.T) {
	tbl := NewTable()
	_, found := tbl.Resolve(GlobalScopeID, "nope")
	assert.False(t, found)
}
