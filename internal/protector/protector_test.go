package protector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
	"cryptoscan/internal/protector"
)

func newAnalyzer() *protector.Analyzer {
	return protector.New(dependency.New())
}

func sigParams(f *ir.Function) (v, r, s *ir.LocalVariable) {
	return f.AddParameter("v", ir.Uint8), f.AddParameter("r", ir.Bytes32), f.AddParameter("s", ir.Bytes32)
}

// permit hashes owner together with nonces[owner] and bumps the nonce
func permit(c *ir.Contract, bump bool) *ir.Function {
	nonces := c.NewStateVariable("nonces", &ir.MappingType{Key: ir.Address, Value: ir.Uint256})
	f := c.NewFunction("permit", ir.External)
	owner := f.AddParameter("owner", ir.Address)
	v, r, s := sigParams(f)
	b := ir.NewBuilder(f)
	nonce := b.Index(nonces.Value(), owner, ir.Uint256)
	digest := b.Keccak(b.Encode(false, owner, nonce))
	signer := b.Ecrecover(digest, v, r, s)
	b.Require(b.Eq(signer, owner))
	if bump {
		b.Assign(nonce, b.Binary(nonce, ir.OpAdd, ir.IntConstant(1)))
	}
	return f
}

func TestNonceProtected(t *testing.T) {
	a := newAnalyzer()

	c := ir.NewUnit().NewContract("Token", ir.KindContract)
	assert.True(t, a.NonceProtected(callpath.Path{permit(c, true)}))

	c = ir.NewUnit().NewContract("Token", ir.KindContract)
	assert.False(t, a.NonceProtected(callpath.Path{permit(c, false)}), "a nonce that is never written protects nothing")
}

func TestNonceKeyedByPreImage(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	used := c.NewStateVariable("used", &ir.MappingType{Key: ir.Bytes32, Value: ir.Bool})
	f := c.NewFunction("claim", ir.External)
	amount := f.AddParameter("amount", ir.Uint256)
	v, r, s := sigParams(f)
	b := ir.NewBuilder(f)
	digest := b.Keccak(b.Encode(true, amount))
	seen := b.Index(used.Value(), digest, ir.Bool)
	fresh := f.NewTemp(ir.Bool)
	b.Add(ir.NewUnary(fresh, "!", seen))
	b.Require(fresh)
	b.Assign(seen, ir.NewConstant("true", ir.Bool))
	b.Ecrecover(digest, v, r, s)

	a := newAnalyzer()
	path := callpath.Path{f}
	pre := a.PreImageParameters(path, 0)
	require.Len(t, pre, 1)
	assert.Equal(t, []int{0}, pre[0].AppendTo(nil))
	assert.True(t, a.NonceProtected(path))
}

func TestPreImageAcrossLayers(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	verify := c.NewFunction("verify", ir.Internal)
	verify.Returns = []ir.Type{ir.Address}
	h := verify.AddParameter("h", ir.Bytes32)
	vv, vr, vs := sigParams(verify)
	vb := ir.NewBuilder(verify)
	vb.Return(vb.Ecrecover(h, vv, vr, vs))

	run := c.NewFunction("run", ir.Public)
	amount := run.AddParameter("amount", ir.Uint256)
	to := run.AddParameter("to", ir.Address)
	v, r, s := sigParams(run)
	b := ir.NewBuilder(run)
	digest := b.Keccak(b.Encode(false, amount))
	b.Call(verify, digest, v, r, s)
	_ = to

	pre := newAnalyzer().PreImageParameters(callpath.Path{run, verify}, 0)
	assert.Equal(t, []int{0}, pre[0].AppendTo(nil), "only amount reaches the digest")
	assert.Equal(t, []int{0}, pre[1].AppendTo(nil))
}

func TestConditionProtected(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	owner := c.NewStateVariable("owner", ir.Address)

	checked := c.NewFunction("checked", ir.Public)
	b := ir.NewBuilder(checked)
	b.Require(b.Eq(ir.MsgSender, owner.Value()))

	zero := c.NewFunction("zero", ir.Public)
	b = ir.NewBuilder(zero)
	b.Require(b.Eq(ir.MsgSender, b.Convert(ir.IntConstant(0), ir.Address)))

	unequal := c.NewFunction("unequal", ir.Public)
	b = ir.NewBuilder(unequal)
	b.Require(b.Binary(ir.MsgSender, ir.OpNeq, owner.Value()))

	origin := c.NewFunction("origin", ir.Public)
	b = ir.NewBuilder(origin)
	b.Require(b.Eq(ir.MsgSender, ir.TxOrigin))

	a := newAnalyzer()
	for fn, want := range map[*ir.Function]bool{checked: true, zero: false, unequal: false, origin: false} {
		_, sanitized := a.ConditionProtected(fn, ir.MsgSender)
		assert.Equal(t, want, sanitized, fn.Name)
	}
}

func TestConditionThroughModifierAndCallee(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	owner := c.NewStateVariable("owner", ir.Address)
	admins := c.NewStateVariable("admins", &ir.MappingType{Key: ir.Address, Value: ir.Bool})

	only := c.NewModifier("onlyOwner")
	b := ir.NewBuilder(only)
	b.Require(b.Eq(ir.MsgSender, owner.Value()))
	b.Node(ir.NodePlaceholder)

	guarded := c.NewFunction("guarded", ir.Public)
	guarded.Modifiers = []*ir.Function{only}
	ir.NewBuilder(guarded).Emit("Ran")

	isAdmin := c.NewFunction("isAdmin", ir.Internal)
	isAdmin.Returns = []ir.Type{ir.Bool}
	who := isAdmin.AddParameter("who", ir.Address)
	b = ir.NewBuilder(isAdmin)
	b.Return(b.Index(admins.Value(), who, ir.Bool))

	delegated := c.NewFunction("delegated", ir.Public)
	b = ir.NewBuilder(delegated)
	b.Require(b.Call(isAdmin, ir.MsgSender))

	a := newAnalyzer()
	_, sanitized := a.ConditionProtected(guarded, ir.MsgSender)
	assert.True(t, sanitized, "modifier check")

	tainted, sanitized := a.ConditionProtected(isAdmin, who)
	assert.True(t, tainted)
	assert.False(t, sanitized, "the helper only returns the permission")

	_, sanitized = a.ConditionProtected(delegated, ir.MsgSender)
	assert.True(t, sanitized)
}

func TestRecursiveCalleeTerminates(t *testing.T) {
	c := ir.NewUnit().NewContract("Loop", ir.KindContract)
	f := c.NewFunction("f", ir.Internal)
	x := f.AddParameter("x", ir.Address)
	ir.NewBuilder(f).Call(f, x)

	_, sanitized := newAnalyzer().ConditionProtected(f, x)
	assert.False(t, sanitized)
}

func TestUnprotectedStorageChange(t *testing.T) {
	c := ir.NewUnit().NewContract("Airdrop", ir.KindContract)
	balances := c.NewStateVariable("balances", &ir.MappingType{Key: ir.Address, Value: ir.Uint256})
	owner := c.NewStateVariable("owner", ir.Address)

	claim := c.NewFunction("claim", ir.External)
	amount := claim.AddParameter("amount", ir.Uint256)
	b := ir.NewBuilder(claim)
	slot := b.Index(balances.Value(), ir.MsgSender, ir.Uint256)
	b.Assign(slot, b.Binary(slot, ir.OpAdd, amount))

	guarded := c.NewFunction("guarded", ir.External)
	gamount := guarded.AddParameter("amount", ir.Uint256)
	b = ir.NewBuilder(guarded)
	b.Require(b.Eq(ir.MsgSender, owner.Value()))
	gslot := b.Index(balances.Value(), ir.MsgSender, ir.Uint256)
	b.Assign(gslot, gamount)

	pure := c.NewFunction("pure", ir.External)
	ir.NewBuilder(pure).Emit("Seen", ir.IntConstant(1))

	a := newAnalyzer()
	assert.True(t, a.UnprotectedStorageChange(callpath.Path{claim}))
	assert.False(t, a.UnprotectedStorageChange(callpath.Path{guarded}))
	assert.False(t, a.UnprotectedStorageChange(callpath.Path{pure}))
}

func TestSenderBound(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	verify := c.NewFunction("verify", ir.Internal)
	h := verify.AddParameter("h", ir.Bytes32)
	vv, vr, vs := sigParams(verify)
	ir.NewBuilder(verify).Ecrecover(h, vv, vr, vs)

	bound := c.NewFunction("bound", ir.External)
	amount := bound.AddParameter("amount", ir.Uint256)
	v, r, s := sigParams(bound)
	b := ir.NewBuilder(bound)
	b.Call(verify, b.Keccak(b.Encode(true, ir.MsgSender, amount)), v, r, s)

	loose := c.NewFunction("loose", ir.External)
	lamount := loose.AddParameter("amount", ir.Uint256)
	lv, lr, ls := sigParams(loose)
	b = ir.NewBuilder(loose)
	b.Call(verify, b.Keccak(b.Encode(true, lamount)), lv, lr, ls)

	a := newAnalyzer()
	assert.True(t, a.SenderBound(callpath.Path{bound, verify}))
	assert.False(t, a.SenderBound(callpath.Path{loose, verify}))
}

func TestBalanceProtected(t *testing.T) {
	c := ir.NewUnit().NewContract("Bank", ir.KindContract)
	balances := c.NewStateVariable("balances", &ir.MappingType{Key: ir.Address, Value: ir.Uint256})
	f := c.NewFunction("withdraw", ir.External)
	amount := f.AddParameter("amount", ir.Uint256)
	b := ir.NewBuilder(f)
	bal := b.Index(balances.Value(), ir.MsgSender, ir.Uint256)
	b.Require(b.Binary(amount, ir.OpLe, bal))
	b.Node(ir.NodeExpression)
	b.Assign(bal, b.Binary(bal, ir.OpSub, amount))

	a := newAnalyzer()
	assert.True(t, a.BalanceProtected(callpath.Path{f}))

	c = ir.NewUnit().NewContract("Bank", ir.KindContract)
	balances = c.NewStateVariable("balances", &ir.MappingType{Key: ir.Address, Value: ir.Uint256})
	g := c.NewFunction("credit", ir.External)
	gamount := g.AddParameter("amount", ir.Uint256)
	b = ir.NewBuilder(g)
	gbal := b.Index(balances.Value(), ir.MsgSender, ir.Uint256)
	b.Assign(gbal, b.Binary(gbal, ir.OpAdd, gamount))
	assert.False(t, a.BalanceProtected(callpath.Path{g}), "never used in a condition")
}

func TestSignerChecked(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	signer := c.NewStateVariable("signer", ir.Address)

	recoverFn := c.NewFunction("recoverSigner", ir.Internal)
	recoverFn.Returns = []ir.Type{ir.Address}
	h := recoverFn.AddParameter("h", ir.Bytes32)
	rv, rr, rs := sigParams(recoverFn)
	rb := ir.NewBuilder(recoverFn)
	rb.Return(rb.Ecrecover(h, rv, rr, rs))

	strict := c.NewFunction("strict", ir.External)
	sh := strict.AddParameter("h", ir.Bytes32)
	v, r, s := sigParams(strict)
	b := ir.NewBuilder(strict)
	b.Require(b.Eq(b.Call(recoverFn, sh, v, r, s), signer.Value()))

	lax := c.NewFunction("lax", ir.External)
	lh := lax.AddParameter("h", ir.Bytes32)
	lv, lr, ls := sigParams(lax)
	b = ir.NewBuilder(lax)
	got := b.Call(recoverFn, lh, lv, lr, ls)
	b.Require(b.Binary(got, ir.OpNeq, b.Convert(ir.IntConstant(0), ir.Address)))

	a := newAnalyzer()
	assert.True(t, a.SignerChecked(callpath.Path{strict, recoverFn}))
	assert.False(t, a.SignerChecked(callpath.Path{lax, recoverFn}))
}

func TestRelationsAndStorageChanges(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	total := c.NewStateVariable("total", ir.Uint256)
	write := c.NewFunction("write", ir.Internal)
	ir.NewBuilder(write).Assign(total.Version(1), ir.IntConstant(1))
	middle := c.NewFunction("middle", ir.Internal)
	ir.NewBuilder(middle).Call(write)
	reader := c.NewFunction("reader", ir.Internal)
	rb := ir.NewBuilder(reader)
	rb.Binary(total.Value(), ir.OpAdd, ir.IntConstant(1))
	top := c.NewFunction("top", ir.External)
	tb := ir.NewBuilder(top)
	tb.Call(middle)
	tb.Call(reader)

	rel := protector.CallRelations(callpath.Path{top})
	assert.Equal(t, []*ir.Function{top, middle, write, reader}, rel.Functions)
	assert.Equal(t, []*ir.Function{middle}, rel.CalledBy[write])

	changing := protector.StorageChangingFunctions(rel)
	assert.True(t, changing[write])
	assert.True(t, changing[middle])
	assert.True(t, changing[top])
	assert.False(t, changing[reader])
}

func TestReadWriteSetFollowsStorageArguments(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	mapping := &ir.MappingType{Key: ir.Address, Value: ir.Uint256}
	nonces := c.NewStateVariable("nonces", mapping)

	bump := c.NewFunction("bump", ir.Internal)
	store := bump.AddParameter("store", mapping)
	who := bump.AddParameter("who", ir.Address)
	bb := ir.NewBuilder(bump)
	bb.Assign(bb.Index(store, who, ir.Uint256), ir.IntConstant(1))

	f := c.NewFunction("use", ir.External)
	ir.NewBuilder(f).Call(bump, nonces.Value(), ir.MsgSender)

	_, write := protector.ReadWriteSet(callpath.Path{f})
	assert.True(t, write.Has(nonces.Value()))

	_, write = protector.ReadWriteSet(callpath.Path{bump})
	assert.Zero(t, write.Len(), "a storage parameter is not itself storage")
}

func TestDomainSeparation(t *testing.T) {
	c := ir.NewUnit().NewContract("Bridge", ir.KindContract)
	separator := c.NewStateVariable("DOMAIN_SEPARATOR", ir.Bytes32)
	ctor := c.NewFunction("constructor", ir.Public)
	ctor.Kind = ir.FunctionConstructor
	cb := ir.NewBuilder(ctor)
	cb.Assign(separator.Version(1), cb.Keccak(cb.Encode(false, ir.BlockChainID)))

	a := newAnalyzer()
	d := a.Domain(c)
	assert.True(t, d.ChainHashers[ctor])
	assert.True(t, d.ChainState.Has(separator.Value()))
	assert.True(t, a.ChainSeparated(callpath.Path{ctor}))

	other := ir.NewUnit().NewContract("Plain", ir.KindContract)
	f := other.NewFunction("run", ir.Public)
	h := f.AddParameter("h", ir.Bytes32)
	ir.NewBuilder(f).Keccak(h)
	assert.False(t, a.ChainSeparated(callpath.Path{f}))
}

func TestDomainAssemblyAlias(t *testing.T) {
	c := ir.NewUnit().NewContract("Bridge", ir.KindContract)
	f := c.NewFunction("digest", ir.Public)
	id := f.Local("id", ir.Uint256)
	b := ir.NewBuilder(f)
	n := b.Node(ir.NodeAsm)
	n.Source = "id := chainid()"
	b.Node(ir.NodeExpression)
	b.Keccak(b.Encode(false, id))

	d := newAnalyzer().Domain(c)
	assert.True(t, d.ChainReaders[f])
	assert.True(t, d.ChainHashers[f])
}

func TestDomainAssemblyInlineChainID(t *testing.T) {
	c := ir.NewUnit().NewContract("Bridge", ir.KindContract)
	hashed := c.NewFunction("digest", ir.Public)
	hb := ir.NewBuilder(hashed)
	hb.Node(ir.NodeAsm).Source = "mstore(ptr, chainid())\nd := keccak256(ptr, 0x40)"

	stored := c.NewFunction("store", ir.Public)
	sb := ir.NewBuilder(stored)
	sb.Node(ir.NodeAsm).Source = "sstore(0, chainid())"

	a := newAnalyzer()
	d := a.Domain(c)
	assert.True(t, d.ChainReaders[hashed])
	assert.True(t, d.ChainHashers[hashed])
	assert.True(t, d.ChainReaders[stored])
	assert.False(t, d.ChainHashers[stored])
	assert.True(t, a.ChainSeparated(callpath.Path{stored}))

	other := ir.NewUnit().NewContract("Plain", ir.KindContract)
	f := other.NewFunction("run", ir.Public)
	ir.NewBuilder(f).Node(ir.NodeAsm).Source = `let s := "chainid()"`
	assert.False(t, a.ChainSeparated(callpath.Path{f}))
	assert.Empty(t, a.Domain(other).ChainReaders)
}

func TestContractSeparated(t *testing.T) {
	build := func(called bool) *ir.Contract {
		c := ir.NewUnit().NewContract("Vault", ir.KindContract)
		sep := c.NewFunction("separator", ir.Internal)
		sep.Returns = []ir.Type{ir.Bytes32}
		sb := ir.NewBuilder(sep)
		sb.Return(sb.Keccak(sb.Encode(false, sb.Convert(ir.This, ir.Address))))
		run := c.NewFunction("run", ir.External)
		if called {
			ir.NewBuilder(run).Call(sep)
		}
		return c
	}
	a := newAnalyzer()
	assert.True(t, a.ContractSeparated(build(true)))
	assert.False(t, a.ContractSeparated(build(false)))
}

func TestNonceFilter(t *testing.T) {
	c := ir.NewUnit().NewContract("Token", ir.KindContract)
	f := permit(c, true)
	var index *ir.Index
	for _, ins := range f.Instructions() {
		if i, ok := ins.(*ir.Index); ok {
			index = i
		}
	}
	require.NotNil(t, index)
	assert.True(t, protector.NonceFilter(f, index))
}
