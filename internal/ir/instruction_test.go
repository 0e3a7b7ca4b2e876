package ir

import (
	"strings"
	"testing"
)

func TestConstructorsRejectNonAssignableResult(t *testing.T) {
	cases := map[string]func(){
		"assignment to constant": func() { NewAssignment(IntConstant(1), IntConstant(2)) },
		"binary into msg.sender": func() { NewBinary(MsgSender, IntConstant(1), OpAdd, IntConstant(2)) },
		"index into nil":         func() { NewIndex(nil, MsgSender, IntConstant(0)) },
		"call into top level": func() {
			NewSolidityCall(&TopLevelVariable{Name: "Q", Type: Uint256}, Keccak256)
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s should panic", name)
				}
			}()
			build()
		})
	}
}

func TestCallsWithoutResultAreAllowed(t *testing.T) {
	c := NewSolidityCall(nil, Require, IntConstant(1))
	if c.GetResult() != nil {
		t.Error("require should not define a result")
	}
	if c.GetCallee() != Callee(Require) {
		t.Error("require callee should be the builtin")
	}
}

func TestCalleeIdentity(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Vault", KindContract)
	helper := c.NewFunction("helper", Internal)

	a := NewInternalCall(nil, helper)
	b := NewInternalCall(nil, helper)
	if a.GetCallee() != b.GetCallee() {
		t.Error("calls to the same function should compare equal")
	}

	x := NewHighLevelCall(nil, MsgSender, "Token", "transfer", nil)
	y := NewHighLevelCall(nil, This, "Token", "transfer", nil)
	if x.GetCallee() != y.GetCallee() {
		t.Error("unresolved external callees should compare structurally")
	}

	z := NewHighLevelCall(nil, MsgSender, "Token", "approve", nil)
	if x.GetCallee() == z.GetCallee() {
		t.Error("different external callees should not compare equal")
	}

	if NewSolidityCall(nil, Keccak256).GetCallee() == NewSolidityCall(nil, Sha256).GetCallee() {
		t.Error("different builtins should not compare equal")
	}
}

func TestOperandsAndResults(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Vault", KindContract)
	f := c.NewFunction("claim", Public)
	h := f.AddParameter("h", Bytes32)
	tmp := f.NewTemp(Address)
	n := f.NewNode(NodeExpression)

	rec := n.Add(NewSolidityCall(tmp, Ecrecover, h, IntConstant(27), h, h)).(*SolidityCall)
	if rec.GetResult() != tmp {
		t.Error("ecrecover should define its temporary")
	}
	if len(rec.GetOperands()) != 4 {
		t.Errorf("expected 4 operands, got %d", len(rec.GetOperands()))
	}
	if rec.GetNode() != n || rec.GetID() != 0 {
		t.Error("Add should attach the instruction to its node")
	}

	hl := NewHighLevelCall(nil, MsgSender, "Token", "transfer", nil, h)
	if hl.GetOperands()[0] != MsgSender {
		t.Error("high level call should read its destination")
	}
	if len(hl.GetArguments()) != 1 {
		t.Error("arguments should not include the destination")
	}
}

func TestStringForms(t *testing.T) {
	unit := NewUnit()
	c := unit.NewContract("Vault", KindContract)
	nonces := c.NewStateVariable("nonces", &MappingType{Key: Address, Value: Uint256})
	f := c.NewFunction("use", Public)
	ref := f.NewRef(Uint256, nil)
	tmp := f.NewTemp(Bool)

	cases := []struct {
		ins  Instruction
		want string
	}{
		{NewIndex(ref, nonces.Value(), MsgSender), "REF_0: uint256 -> nonces[msg.sender]"},
		{NewBinary(tmp, ref, OpEq, IntConstant(0)), "TMP_0: bool = REF_0 == 0"},
		{NewCondition(tmp), "condition TMP_0"},
		{NewEventCall("Used", MsgSender), "emit Used(msg.sender)"},
		{NewReturn(), "return"},
	}
	for _, tc := range cases {
		if got := tc.ins.String(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}

	if !strings.Contains(NewSolidityCall(nil, AbiEncodePacked, NewConstant("a", String)).String(), `"a"`) {
		t.Error("string constants should be quoted")
	}
}

func TestBinaryOpClassification(t *testing.T) {
	if !OpEq.IsComparison() || !OpGe.IsComparison() {
		t.Error("== and >= are comparisons")
	}
	if OpAdd.IsComparison() || OpAdd.ReturnsBool() {
		t.Error("+ is arithmetic")
	}
	if !OpAnd.ReturnsBool() {
		t.Error("&& yields a boolean")
	}
}
