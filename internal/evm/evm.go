// Package evm holds the EVM and curve facts detectors compare IR constants
// against.
package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// Secp256k1N is the order of the secp256k1 group
	Secp256k1N = new(big.Int).Set(crypto.S256().Params().N)
	// Secp256k1HalfN is the upper bound for a canonical s value
	Secp256k1HalfN = new(big.Int).Rsh(Secp256k1N, 1)
	// MaxInt256 is 2^255 - 1, the other bound used for s checks
	MaxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	// BN254ScalarOrder is the order of the alt_bn128 scalar field
	BN254ScalarOrder = mustParse("21888242871839275222246405745257275088548364400416034343698204186575808495617")
)

// Well-known precompile addresses
const (
	EcrecoverAddress = 1
	Sha256Address    = 2
	Ripemd160Address = 3
	IdentityAddress  = 4
	ModExpAddress    = 5
	EcAddAddress     = 6
	EcMulAddress     = 7
	EcPairingAddress = 8
	Blake2FAddress   = 9
	KZGPointAddress  = 10
)

var precompileNames = map[uint64]string{
	EcrecoverAddress: "ecrecover",
	Sha256Address:    "sha256",
	Ripemd160Address: "ripemd160",
	IdentityAddress:  "identity",
	ModExpAddress:    "modexp",
	EcAddAddress:     "ecAdd",
	EcMulAddress:     "ecMul",
	EcPairingAddress: "ecPairing",
	Blake2FAddress:   "blake2f",
	KZGPointAddress:  "pointEvaluation",
}

func mustParse(s string) *big.Int {
	n, ok := math.ParseBig256(s)
	if !ok {
		panic("evm: bad constant " + s)
	}
	return n
}

// ParseInt parses a decimal or 0x-prefixed 256-bit integer
func ParseInt(text string) (*big.Int, bool) {
	return math.ParseBig256(text)
}

// IsMalleabilityBound reports whether n is one of the s-value bounds that
// make a signature check canonical.
func IsMalleabilityBound(n *big.Int) bool {
	return n != nil && (n.Cmp(Secp256k1HalfN) == 0 || n.Cmp(MaxInt256) == 0)
}

// IsScalarOrder reports whether n is the BN254 scalar field order
func IsScalarOrder(n *big.Int) bool {
	return n != nil && n.Cmp(BN254ScalarOrder) == 0
}

// ParseAddress turns an integer literal into an address
func ParseAddress(text string) (common.Address, bool) {
	n, ok := math.ParseBig256(text)
	if !ok || n.BitLen() > 160 {
		return common.Address{}, false
	}
	return common.BigToAddress(n), true
}

// Precompile names the precompiled contract at the address written in
// text, when there is one on the Cancun fork.
func Precompile(text string) (string, bool) {
	addr, ok := ParseAddress(text)
	if !ok {
		return "", false
	}
	if _, ok := vm.PrecompiledContractsCancun[addr]; !ok {
		return "", false
	}
	name, ok := precompileNames[new(big.Int).SetBytes(addr.Bytes()).Uint64()]
	return name, ok
}

// IsPrecompile reports whether text is the given precompile address
func IsPrecompile(text string, address uint64) bool {
	addr, ok := ParseAddress(text)
	return ok && addr == common.BigToAddress(new(big.Int).SetUint64(address))
}

// Selector returns the 4-byte function selector of a signature
func Selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}
