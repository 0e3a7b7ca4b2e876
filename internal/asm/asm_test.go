package asm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoscan/internal/asm"
)

func TestExtractChainIDAlias(t *testing.T) {
	cases := []struct {
		text  string
		alias string
		ok    bool
	}{
		{"let id := chainid()", "id", true},
		{"assembly {\n  cid := chainid()\n}", "cid", true},
		{"// chainid()\nlet x := 1", "", false},
		{"let id := chainid", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		alias, ok := asm.ExtractChainIDAlias(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.alias, alias, tc.text)
	}
}

func TestReadsChainID(t *testing.T) {
	assert.True(t, asm.ReadsChainID("mstore(0, chainid())"))
	assert.False(t, asm.ReadsChainID(`let s := "chainid()"`))
}

func TestExtractLowLevelCalls(t *testing.T) {
	text := `
		let ok := staticcall(gas(), 7, input, 0x60, result, 0x40)
		success := call(gas(), target, 0, add(data, 0x20), mload(data), 0, 0)
	`
	calls := asm.ExtractLowLevelCalls(text)
	require.Len(t, calls, 2)

	assert.Equal(t, "staticcall", calls[0].Kind)
	assert.Equal(t, "7", calls[0].Address)
	assert.Equal(t, []string{"input"}, calls[0].Inputs)
	assert.Len(t, calls[0].Args, 6)

	assert.Equal(t, "call", calls[1].Kind)
	assert.Equal(t, "target", calls[1].Address)
	assert.Equal(t, []string{"add", "data"}, calls[1].Inputs)
	assert.Equal(t, "add(data, 0x20)", calls[1].Args[3])
}

func TestMalformedTextYieldsNothing(t *testing.T) {
	assert.Empty(t, asm.ExtractLowLevelCalls("staticcall(gas(), 7"))
	assert.Empty(t, asm.ExtractLowLevelCalls("call"))
	assert.Empty(t, asm.ExtractLowLevelCalls("\x00\x01"))
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, []string{"let", "x", "mload", "p"}, asm.Identifiers("let x := mload(p) // done"))
}
