package evm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cryptoscan/internal/evm"
)

func TestMalleabilityBounds(t *testing.T) {
	half, _ := evm.ParseInt("57896044618658097711785492504343953926418782139537452191302581570759080747168")
	max, _ := evm.ParseInt("57896044618658097711785492504343953926634992332820282019728792003956564819967")
	assert.Zero(t, half.Cmp(evm.Secp256k1HalfN))
	assert.True(t, evm.IsMalleabilityBound(half))
	assert.True(t, evm.IsMalleabilityBound(max))
	assert.False(t, evm.IsMalleabilityBound(evm.Secp256k1N))
	assert.False(t, evm.IsMalleabilityBound(nil))

	hex, ok := evm.ParseInt("0x7FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF5D576E7357A4501DDFE92F46681B20A0")
	assert.True(t, ok)
	assert.True(t, evm.IsMalleabilityBound(hex))
}

func TestScalarOrder(t *testing.T) {
	n, _ := evm.ParseInt("21888242871839275222246405745257275088548364400416034343698204186575808495617")
	assert.True(t, evm.IsScalarOrder(n))
	assert.False(t, evm.IsScalarOrder(evm.Secp256k1N))
}

func TestPrecompiles(t *testing.T) {
	name, ok := evm.Precompile("7")
	assert.True(t, ok)
	assert.Equal(t, "ecMul", name)

	name, ok = evm.Precompile("0x01")
	assert.True(t, ok)
	assert.Equal(t, "ecrecover", name)

	_, ok = evm.Precompile("0x1234")
	assert.False(t, ok)
	_, ok = evm.Precompile("target")
	assert.False(t, ok)

	assert.True(t, evm.IsPrecompile("0x07", evm.EcMulAddress))
	assert.False(t, evm.IsPrecompile("6", evm.EcMulAddress))
}

func TestSelector(t *testing.T) {
	assert.Equal(t, "0xa9059cbb", evm.Selector("transfer(address,uint256)"))
}
