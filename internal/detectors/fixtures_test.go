package detectors_test

import (
	"cryptoscan/internal/detectors"
	"cryptoscan/internal/evm"
	"cryptoscan/internal/ir"
)

func newEngine() *detectors.Engine {
	return detectors.NewEngine(0, nil)
}

func sigParams(f *ir.Function) (v, r, s *ir.LocalVariable) {
	return f.AddParameter("v", ir.Uint8), f.AddParameter("r", ir.Bytes32), f.AddParameter("s", ir.Bytes32)
}

func keys(findings []detectors.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Detector + " " + f.Key()
	}
	return out
}

// recoverUnit builds f(h, v, r, s), which recovers a signer from h and,
// when checked, requires it to be the stored signer.
func recoverUnit(checked bool) (*ir.CompilationUnit, *ir.Function) {
	u := ir.NewUnit()
	c := u.NewContract("Wallet", ir.KindContract)
	expected := c.NewStateVariable("signer", ir.Address)
	f := c.NewFunction("f", ir.Public)
	h := f.AddParameter("h", ir.Bytes32)
	v, r, s := sigParams(f)
	b := ir.NewBuilder(f)
	recovered := b.Ecrecover(h, v, r, s)
	if checked {
		b.Require(b.Eq(recovered, expected.Value()))
	}
	return u, f
}

// twoLayerUnit builds A -> B where B hashes and recovers and A only checks
// the caller against owner.
func twoLayerUnit() (*ir.CompilationUnit, *ir.Function, *ir.Function) {
	u := ir.NewUnit()
	c := u.NewContract("Vault", ir.KindContract)
	owner := c.NewStateVariable("owner", ir.Address)
	signer := c.NewStateVariable("signer", ir.Address)

	verify := c.NewFunction("B", ir.Internal)
	amount := verify.AddParameter("amount", ir.Uint256)
	v, r, s := sigParams(verify)
	vb := ir.NewBuilder(verify)
	digest := vb.Keccak(vb.Encode(false, amount))
	recovered := vb.Ecrecover(digest, v, r, s)
	vb.Require(vb.Eq(recovered, signer.Value()))

	entry := c.NewFunction("A", ir.External)
	value := entry.AddParameter("amount", ir.Uint256)
	ev, er, es := sigParams(entry)
	b := ir.NewBuilder(entry)
	b.Require(b.Eq(ir.MsgSender, owner.Value()))
	b.Call(verify, value, ev, er, es)
	return u, entry, verify
}

// bridgeUnit builds a contract recovering raw digests; with a separator
// its constructor hashes block.chainid into storage.
func bridgeUnit(separator bool) *ir.CompilationUnit {
	u := ir.NewUnit()
	c := u.NewContract("Bridge", ir.KindContract)
	if separator {
		domain := c.NewStateVariable("DOMAIN_SEPARATOR", ir.Bytes32)
		ctor := c.NewConstructor(ir.Public)
		cb := ir.NewBuilder(ctor)
		cb.Assign(domain.Version(1), cb.Keccak(cb.Encode(false, ir.BlockChainID)))
	}
	for _, name := range []string{"relay", "withdraw"} {
		f := c.NewFunction(name, ir.External)
		amount := f.AddParameter("amount", ir.Uint256)
		v, r, s := sigParams(f)
		b := ir.NewBuilder(f)
		b.Ecrecover(b.Keccak(b.Encode(false, amount)), v, r, s)
	}
	return u
}

// token declares an ERC20-like interface with transfer(to, amount)
func token(u *ir.CompilationUnit) *ir.Function {
	erc20 := u.NewContract("IERC20", ir.KindInterface)
	transfer := erc20.NewFunction("transfer", ir.External)
	transfer.AddParameter("to", ir.Address)
	transfer.AddParameter("amount", ir.Uint256)
	transfer.Returns = []ir.Type{ir.Bool}
	return transfer
}

// payoutUnit builds claim(amount, v, r, s), which verifies a signature
// over amount and pays msg.sender. guard adds a caller check; bind adds
// msg.sender to the digest.
func payoutUnit(guard, bind bool) *ir.CompilationUnit {
	u := ir.NewUnit()
	transfer := token(u)
	c := u.NewContract("Faucet", ir.KindContract)
	tok := c.NewStateVariable("token", ir.Address)
	signer := c.NewStateVariable("signer", ir.Address)
	relayer := c.NewStateVariable("relayer", ir.Address)

	f := c.NewFunction("claim", ir.External)
	amount := f.AddParameter("amount", ir.Uint256)
	v, r, s := sigParams(f)
	b := ir.NewBuilder(f)
	if guard {
		b.Require(b.Eq(ir.MsgSender, relayer.Value()))
	}
	pre := []ir.Value{amount}
	if bind {
		pre = append(pre, ir.MsgSender)
	}
	digest := b.Keccak(b.Encode(false, pre...))
	b.Require(b.Eq(b.Ecrecover(digest, v, r, s), signer.Value()))
	b.Node(ir.NodeExpression)
	b.High(tok.Value(), transfer, ir.MsgSender, amount)
	return u
}

// merkleUnit builds claim(proof, account, amount) verifying a leaf with
// an internal verify(proof, root, leaf) loop, then paying msg.sender.
// With once, claimed[leaf] is required unset and then set.
func merkleUnit(once bool) (*ir.CompilationUnit, *ir.Function, *ir.Node) {
	u := ir.NewUnit()
	transfer := token(u)
	c := u.NewContract("Airdrop", ir.KindContract)
	root := c.NewStateVariable("root", ir.Bytes32)
	tok := c.NewStateVariable("token", ir.Address)
	claimed := c.NewStateVariable("claimed", &ir.MappingType{Key: ir.Bytes32, Value: ir.Bool})

	verify := c.NewFunction("verify", ir.Internal)
	verify.Returns = []ir.Type{ir.Bool}
	proof := verify.AddParameter("proof", &ir.ArrayType{Elem: ir.Bytes32, Length: -1})
	vroot := verify.AddParameter("root", ir.Bytes32)
	leaf := verify.AddParameter("leaf", ir.Bytes32)
	computed := verify.Local("computed", ir.Bytes32)
	i := verify.Local("i", ir.Uint256)
	vb := ir.NewBuilder(verify)
	vb.Assign(computed, leaf)
	vb.Assign(i, ir.IntConstant(0))
	vb.Node(ir.NodeIfLoop)
	vb.Condition(vb.Binary(i, ir.OpLt, vb.Length(proof)))
	body := vb.Node(ir.NodeExpression)
	sibling := vb.Index(proof, i, ir.Bytes32)
	vb.Assign(computed, vb.Keccak(vb.Encode(false, computed, sibling)))
	vb.Assign(i, vb.Binary(i, ir.OpAdd, ir.IntConstant(1)))
	vb.Node(ir.NodeEndLoop)
	vb.Return(vb.Eq(computed, vroot))

	f := c.NewFunction("claim", ir.External)
	fproof := f.AddParameter("proof", &ir.ArrayType{Elem: ir.Bytes32, Length: -1})
	account := f.AddParameter("account", ir.Address)
	amount := f.AddParameter("amount", ir.Uint256)
	b := ir.NewBuilder(f)
	node := b.Keccak(b.Encode(false, account, amount))
	if once {
		seen := b.Index(claimed.Value(), node, ir.Bool)
		fresh := f.NewTemp(ir.Bool)
		b.Add(ir.NewUnary(fresh, "!", seen))
		b.Require(fresh)
		b.Assign(seen, ir.NewConstant("true", ir.Bool))
	}
	b.Require(b.Call(verify, fproof, root.Value(), node))
	b.High(tok.Value(), transfer, ir.MsgSender, amount)
	return u, f, body
}

// malleableUnit recovers a signer; with bound it first requires s to be
// in the lower half of the curve order.
func malleableUnit(bound bool) *ir.CompilationUnit {
	u := ir.NewUnit()
	c := u.NewContract("Permit", ir.KindContract)
	f := c.NewFunction("recover", ir.Public)
	f.View = true
	f.Returns = []ir.Type{ir.Address}
	h := f.AddParameter("h", ir.Bytes32)
	v, r, s := sigParams(f)
	b := ir.NewBuilder(f)
	if bound {
		half := ir.NewConstant(evm.Secp256k1HalfN.String(), ir.Uint256)
		b.Require(b.Binary(b.Convert(s, ir.Uint256), ir.OpLe, half))
	}
	b.Return(b.Ecrecover(h, v, r, s))
	return u
}
