package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoscan/internal/inventory"
	"cryptoscan/internal/ir"
)

func TestCollect(t *testing.T) {
	u := ir.NewUnit()
	c := u.NewContract("Verifier", ir.KindContract)
	f := c.NewFunction("check", ir.Public)
	h := f.AddParameter("h", ir.Bytes32)
	v := f.AddParameter("v", ir.Uint8)
	b := ir.NewBuilder(f)
	digest := b.Keccak(b.Encode(true, h))
	b.Ecrecover(digest, v, h, h)
	b.Solidity(ir.Sha256, h)
	b.Add(ir.NewLowLevelCall(f.NewTemp(ir.Bool), ir.IntConstant(8), "staticcall", h))
	b.Add(ir.NewLowLevelCall(f.NewTemp(ir.Bool), ir.IntConstant(4), "staticcall", h))
	n := b.Node(ir.NodeAsm)
	n.Source = "let ok := staticcall(gas(), 0x06, p, 0x80, p, 0x40)\nok := call(gas(), 4, 0, p, 0x20, q, 0x20)"

	entries := inventory.Collect(u)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
		assert.Same(t, f, e.Function)
	}
	assert.Equal(t, []string{"abi.encodePacked", "keccak256", "ecrecover", "sha256", "ecPairing", "ecAdd"}, names)
	assert.Equal(t, inventory.KindPrecompile, entries[len(entries)-1].Kind)
	assert.Same(t, n, entries[len(entries)-1].Node)

	summary := inventory.Summarize(entries)
	require.NotEmpty(t, summary)
	assert.Equal(t, inventory.KindEncode, summary[0].Kind)
	for _, s := range summary {
		assert.Equal(t, 1, s.Count)
	}
}

func TestCollectTracksPrecompileInputs(t *testing.T) {
	u := ir.NewUnit()
	c := u.NewContract("Verifier", ir.KindContract)
	f := c.NewFunction("mul", ir.Public)
	input := f.AddParameter("input", ir.Bytes)
	h := f.AddParameter("h", ir.Bytes32)
	b := ir.NewBuilder(f)
	b.Add(ir.NewLowLevelCall(f.NewTemp(ir.Bool), ir.IntConstant(7), "staticcall", h))
	n := b.Node(ir.NodeAsm)
	n.Source = "let ok := staticcall(gas(), 7, add(input, 0x20), 0x60, ptr, 0x40)"

	entries := inventory.Collect(u)
	require.Len(t, entries, 2)
	assert.Equal(t, "ecMul", entries[0].Name)
	assert.Equal(t, []ir.Value{h}, entries[0].Inputs)
	assert.Equal(t, "ecMul", entries[1].Name)
	assert.Same(t, n, entries[1].Node)
	assert.Equal(t, []ir.Value{input}, entries[1].Inputs, "opcodes and yul locals are dropped")
}

func TestCollectEmpty(t *testing.T) {
	u := ir.NewUnit()
	c := u.NewContract("Plain", ir.KindContract)
	f := c.NewFunction("add", ir.Public)
	x := f.AddParameter("x", ir.Uint256)
	ir.NewBuilder(f).Binary(x, ir.OpAdd, ir.IntConstant(1))
	assert.Empty(t, inventory.Collect(u))
}
