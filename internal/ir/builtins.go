package ir

// Builtin names a Solidity builtin function or low-level call kind
type Builtin string

const (
	Keccak256              Builtin = "keccak256"
	Sha3                   Builtin = "sha3"
	Sha256                 Builtin = "sha256"
	Ripemd160              Builtin = "ripemd160"
	Ecrecover              Builtin = "ecrecover"
	AbiEncode              Builtin = "abi.encode"
	AbiEncodePacked        Builtin = "abi.encodePacked"
	AbiEncodeWithSelector  Builtin = "abi.encodeWithSelector"
	AbiEncodeWithSignature Builtin = "abi.encodeWithSignature"
	AbiDecode              Builtin = "abi.decode"
	Require                Builtin = "require"
	Assert                 Builtin = "assert"
	Revert                 Builtin = "revert"
	Blockhash              Builtin = "blockhash"
	Gasleft                Builtin = "gasleft"
	Addmod                 Builtin = "addmod"
	Mulmod                 Builtin = "mulmod"
)

var builtinReturns = map[Builtin]Type{
	Keccak256:              Bytes32,
	Sha3:                   Bytes32,
	Sha256:                 Bytes32,
	Ripemd160:              Elementary("bytes20"),
	Ecrecover:              Address,
	AbiEncode:              Bytes,
	AbiEncodePacked:        Bytes,
	AbiEncodeWithSelector:  Bytes,
	AbiEncodeWithSignature: Bytes,
	AbiDecode:              nil,
	Require:                nil,
	Assert:                 nil,
	Revert:                 nil,
	Blockhash:              Bytes32,
	Gasleft:                Uint256,
	Addmod:                 Uint256,
	Mulmod:                 Uint256,
}

func (b Builtin) CalleeName() string { return string(b) }
func (Builtin) isCallee()            {}

// IsKnownBuiltin reports whether name is a builtin the IR understands
func IsKnownBuiltin(name string) bool {
	_, ok := builtinReturns[Builtin(name)]
	return ok
}

// BuiltinNames lists the known builtins
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinReturns))
	for b := range builtinReturns {
		names = append(names, string(b))
	}
	return names
}

// IsHash is true for every hashing builtin
func (b Builtin) IsHash() bool {
	switch b {
	case Keccak256, Sha3, Sha256, Ripemd160:
		return true
	}
	return false
}

// IsKeccak is true for keccak256 and its legacy alias sha3
func (b Builtin) IsKeccak() bool { return b == Keccak256 || b == Sha3 }

// IsEncode is true for the abi.encode family
func (b Builtin) IsEncode() bool {
	switch b {
	case AbiEncode, AbiEncodePacked, AbiEncodeWithSelector, AbiEncodeWithSignature:
		return true
	}
	return false
}

// IsGuard is true for require and assert
func (b Builtin) IsGuard() bool { return b == Require || b == Assert }

// ReturnType is the result type of the builtin, nil when it returns nothing
func (b Builtin) ReturnType() Type { return builtinReturns[b] }
