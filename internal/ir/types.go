package ir

import (
	"fmt"
	"strings"
)

// Type is a Solidity type as seen by the analyses. Only the shape matters:
// elementary names, mapping keys and dynamic-length arrays.
type Type interface {
	String() string
	isType()
}

// ElementaryType covers address, bool, string, bytes, bytesN, uintN and intN
type ElementaryType struct {
	Name string
}

// MappingType represents mapping(Key => Value)
type MappingType struct {
	Key   Type
	Value Type
}

// ArrayType represents T[n]; a negative Length marks a dynamic array
type ArrayType struct {
	Elem   Type
	Length int
}

// TupleType is the type of multi-value call results
type TupleType struct {
	Elements []Type
}

// UserDefinedType names a struct, enum or contract type
type UserDefinedType struct {
	Name string
}

func (t *ElementaryType) isType()  {}
func (t *MappingType) isType()     {}
func (t *ArrayType) isType()       {}
func (t *TupleType) isType()       {}
func (t *UserDefinedType) isType() {}

func (t *ElementaryType) String() string  { return t.Name }
func (t *UserDefinedType) String() string { return t.Name }

func (t *MappingType) String() string {
	return fmt.Sprintf("mapping(%s => %s)", t.Key, t.Value)
}

func (t *ArrayType) String() string {
	if t.Length < 0 {
		return t.Elem.String() + "[]"
	}
	return fmt.Sprintf("%s[%d]", t.Elem, t.Length)
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "tuple(" + strings.Join(parts, ", ") + ")"
}

// Predefined elementary types
var (
	Address = &ElementaryType{Name: "address"}
	Bool    = &ElementaryType{Name: "bool"}
	Bytes32 = &ElementaryType{Name: "bytes32"}
	Bytes   = &ElementaryType{Name: "bytes"}
	String  = &ElementaryType{Name: "string"}
	Uint256 = &ElementaryType{Name: "uint256"}
	Uint8   = &ElementaryType{Name: "uint8"}
)

var predefined = map[string]*ElementaryType{
	"address": Address,
	"bool":    Bool,
	"bytes32": Bytes32,
	"bytes":   Bytes,
	"string":  String,
	"uint256": Uint256,
	"uint":    Uint256,
	"uint8":   Uint8,
}

// Elementary returns the canonical elementary type for name
func Elementary(name string) *ElementaryType {
	if t, ok := predefined[name]; ok {
		return t
	}
	return &ElementaryType{Name: name}
}

// IsElementaryName reports whether name spells an elementary Solidity type.
func IsElementaryName(name string) bool {
	if _, ok := predefined[name]; ok {
		return true
	}
	for _, prefix := range []string{"uint", "int", "bytes"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok && rest != "" && strings.Trim(rest, "0123456789") == "" {
			return true
		}
	}
	return name == "int"
}

// SameType compares types structurally
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// IsDynamic reports whether values of t are length-prefixed in ABI encoding
func IsDynamic(t Type) bool {
	switch t := t.(type) {
	case *ElementaryType:
		return t.Name == "string" || t.Name == "bytes"
	case *ArrayType:
		return t.Length < 0
	}
	return false
}

// IsAddressType is true for address and address payable
func IsAddressType(t Type) bool {
	e, ok := t.(*ElementaryType)
	return ok && (e.Name == "address" || e.Name == "address payable")
}

// IsAddressMapping reports a mapping keyed by address, the shape of nonce
// and permission tables.
func IsAddressMapping(t Type) bool {
	m, ok := t.(*MappingType)
	return ok && IsAddressType(m.Key)
}

// ContainsAddress reports whether t is an address or a tuple holding one
func ContainsAddress(t Type) bool {
	if IsAddressType(t) {
		return true
	}
	if tt, ok := t.(*TupleType); ok {
		for _, e := range tt.Elements {
			if IsAddressType(e) {
				return true
			}
		}
	}
	return false
}
