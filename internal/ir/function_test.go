package ir

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateAccessThroughReferences(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Vault", KindContract)
	nonces := c.NewStateVariable("nonces", &MappingType{Key: Address, Value: Uint256})
	owner := c.NewStateVariable("owner", Address)

	f := c.NewFunction("bump", External)
	n := f.NewNode(NodeExpression)
	ref := f.NewRef(Uint256, nil)
	n.Add(NewIndex(ref, nonces.Version(1), MsgSender))
	n.Add(NewBinary(ref, ref, OpAdd, IntConstant(1)))
	tmp := f.NewTemp(Bool)
	n.Add(NewBinary(tmp, owner.Value(), OpEq, MsgSender))

	assert.Equal(t, []*StateVariable{nonces.Value(), owner.Value()}, f.StateVariablesRead())
	assert.Equal(t, []*StateVariable{nonces.Value()}, f.StateVariablesWritten())
	assert.True(t, f.Writes(nonces.Version(3)), "versions collapse onto the slot")
	assert.False(t, f.Writes(owner.Value()))
	assert.Same(t, nonces.Value(), Canonical(Root(ref)))
	assert.True(t, IsState(ref))
}

func TestDerivedCallLists(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Vault", KindContract)
	lib := unit.NewContract("ECDSA", KindLibrary)
	rec := lib.NewFunction("recover", Internal)
	only := c.NewModifier("onlyOwner")
	helper := c.NewFunction("helper", Internal)

	f := c.NewFunction("run", Public)
	f.Modifiers = []*Function{only}
	n := f.NewNode(NodeExpression)
	n.Add(NewInternalCall(nil, helper))
	n.Add(NewInternalCall(nil, helper))
	n.Add(NewLibraryCall(f.NewTemp(Address), "ECDSA", "recover", rec))
	n.Add(NewHighLevelCall(nil, MsgSender, "Token", "transfer", nil))
	n.Add(NewSolidityCall(f.NewTemp(Bytes32), Keccak256))

	assert.Equal(t, []*Function{helper, only}, f.InternalCalls())
	assert.Equal(t, []*Function{rec}, f.LibraryCalls())
	assert.Empty(t, f.HighLevelCalls(), "unresolved targets are not listed")
	assert.Equal(t, []Builtin{Keccak256}, f.SolidityCalls())
	assert.True(t, f.CallsBuiltin(Keccak256))
	assert.Equal(t, "Vault.run()", f.CanonicalName())
}

func TestVisibility(t *testing.T) {
	c := NewUnit().NewContract("Vault", KindContract)
	assert.True(t, c.NewFunction("a", Public).IsExternallyReachable())
	assert.True(t, c.NewFunction("b", External).IsExternallyReachable())
	assert.True(t, c.NewFunction("c", Private).IsInternal())
	assert.False(t, c.NewModifier("m").IsExternallyReachable())
}

func TestDominators(t *testing.T) {
	c := NewUnit().NewContract("Tree", KindContract)
	f := c.NewFunction("verify", Public)
	entry := f.NewNode(NodeEntry)
	loop := f.NewNode(NodeIfLoop)
	body := f.NewNode(NodeExpression)
	exit := f.NewNode(NodeReturn)
	loop.SetSons(body, exit)
	body.SetSons(loop)

	require.Len(t, body.Dominators(), 3)
	assert.Equal(t, []*Node{entry, loop, body}, body.Dominators())
	assert.Equal(t, []*Node{entry, loop, exit}, exit.Dominators())
	assert.True(t, body.DominatedByKind(NodeIfLoop))
	assert.False(t, loop.DominatedByKind(NodeIfLoop))
}

func TestNewNodeFallthrough(t *testing.T) {
	c := NewUnit().NewContract("Vault", KindContract)
	f := c.NewFunction("run", Public)
	a := f.NewNode(NodeEntry)
	ret := f.NewNode(NodeReturn)
	after := f.NewNode(NodeExpression)

	assert.Equal(t, []*Node{ret}, a.Sons)
	assert.Empty(t, ret.Sons, "return nodes do not fall through")
	assert.Empty(t, after.Fathers)
}

func TestWriteOnlySlotHasCanonicalValue(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Lottery", KindContract)
	seed := c.NewStateVariable("seed", Bytes32)
	written := seed.Version(1)

	canon := make([]Value, 16)
	var wg sync.WaitGroup
	for i := range canon {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			canon[i] = Canonical(written)
		}(i)
	}
	wg.Wait()

	base := seed.Value()
	require.NotNil(t, base)
	for _, v := range canon {
		assert.Same(t, base, v)
	}
	assert.Same(t, base, seed.Version(0))
	assert.NotSame(t, base, written)
}

func TestBuilderVoidCallReturnsNil(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Vault", KindContract)
	sink := c.NewFunction("sink", Internal)
	value := c.NewFunction("value", Internal)
	value.Returns = []Type{Uint256}

	caller := c.NewFunction("run", External)
	b := NewBuilder(caller)
	v := b.Call(sink)
	assert.True(t, v == nil, "void call yields an untyped nil Value")
	assert.True(t, b.High(MsgSender, sink) == nil)

	got := b.Call(value)
	require.NotNil(t, got)
	assert.Equal(t, Uint256, got.GetType())
}
