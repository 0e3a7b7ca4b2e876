package ir

import (
	"strings"
	"testing"
)

func TestPrintUnit(t *testing.T) {
	unit := NewUnit()
	unit.NewConstant("Q", Uint256, "7")
	c := unit.NewContract("Vault", KindContract)
	c.NewStateVariable("nonces", &MappingType{Key: Address, Value: Uint256})
	f := c.NewFunction("claim", External)
	h := f.AddParameter("h", Bytes32)
	f.Returns = []Type{Address}
	n := f.NewNode(NodeExpression)
	tmp := f.NewTemp(Address)
	n.Add(NewSolidityCall(tmp, Ecrecover, h, IntConstant(27), h, h))
	ret := f.NewNode(NodeReturn)
	ret.Add(NewReturn(tmp))
	asm := f.NewNode(NodeAsm)
	asm.Source = "let id := chainid()"

	out := Print(unit)
	for _, want := range []string{
		"const Q: uint256 = 7;",
		"contract Vault {",
		"state nonces: mapping(address => uint256);",
		"function claim(h: bytes32) external returns(address) {",
		"node 0 expression -> 1 {",
		"TMP_0: address = solidity ecrecover(h, 27, h, h);",
		"return TMP_0;",
		`node 2 asm source "let id := chainid()" { }`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printed unit missing %q:\n%s", want, out)
		}
	}
}
