package parser

import (
	"strconv"

	"cryptoscan/grammar"
	"cryptoscan/internal/ir"
)

func lowerType(t *grammar.Type) ir.Type {
	if t == nil {
		return nil
	}
	var out ir.Type
	switch {
	case t.Mapping != nil:
		out = &ir.MappingType{Key: lowerType(t.Mapping.Key), Value: lowerType(t.Mapping.Value)}
	case t.Tuple != nil:
		elems := make([]ir.Type, len(t.Tuple.Elements))
		for i, e := range t.Tuple.Elements {
			elems[i] = lowerType(e)
		}
		out = &ir.TupleType{Elements: elems}
	case ir.IsElementaryName(t.Name):
		out = ir.Elementary(t.Name)
	default:
		out = &ir.UserDefinedType{Name: t.Name}
	}
	for _, d := range t.Dims {
		length := -1
		if d.Length != nil {
			if n, err := strconv.ParseInt(*d.Length, 0, 64); err == nil {
				length = int(n)
			}
		}
		out = &ir.ArrayType{Elem: out, Length: length}
	}
	return out
}

func lowerTypes(ts []*grammar.Type) []ir.Type {
	if len(ts) == 0 {
		return nil
	}
	out := make([]ir.Type, len(ts))
	for i, t := range ts {
		out[i] = lowerType(t)
	}
	return out
}

// resultType is the type of a call result holding the given returns
func resultType(returns []ir.Type) ir.Type {
	switch len(returns) {
	case 0:
		return nil
	case 1:
		return returns[0]
	}
	return &ir.TupleType{Elements: returns}
}

// elementType is the type read by indexing a value of type t
func elementType(t ir.Type) ir.Type {
	switch t := t.(type) {
	case *ir.MappingType:
		return t.Value
	case *ir.ArrayType:
		return t.Elem
	case *ir.ElementaryType:
		if t.Name == "bytes" {
			return ir.Elementary("bytes1")
		}
	}
	return nil
}

func firstType(ts ...ir.Type) ir.Type {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}
