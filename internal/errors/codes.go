package errors

// Error codes for the textual IR loader
// These codes are used in diagnostics and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// E0100-E0199: Syntax errors
// E0200-E0299: Name resolution errors
// E0300-E0399: Type and kind errors
// E0400-E0499: Structural errors
// W0001-W0099: Warnings

const (
	// E0101: The source does not match the grammar
	ErrorSyntax = "E0101"

	// E0102: A qualified callee was expected (Contract.function)
	ErrorMalformedCallee = "E0102"

	// E0201: Operand names nothing in scope
	ErrorUndefinedValue = "E0201"

	// E0202: Internal call target is not declared in the contract
	ErrorUndefinedFunction = "E0202"

	// E0203: Modifier list names an unknown modifier
	ErrorUndefinedModifier = "E0203"

	// E0204: Solidity call to an unknown builtin
	ErrorUnknownBuiltin = "E0204"

	// E0205: Node successor names an undeclared node
	ErrorUndefinedNode = "E0205"

	// E0301: Result written to a value that cannot be assigned
	ErrorNotAssignable = "E0301"

	// E0302: Node kind is not one of the CFG node kinds
	ErrorUnknownNodeKind = "E0302"

	// E0303: Low-level call kind is not call, staticcall, delegatecall, callcode, send or transfer
	ErrorUnknownCallKind = "E0303"

	// E0304: Return arity differs from the declared returns
	ErrorReturnCount = "E0304"

	// E0305: High-level or low-level call without a destination
	ErrorMissingDestination = "E0305"

	// E0306: Destination given to a call kind that takes none
	ErrorUnexpectedDestination = "E0306"

	// E0401: Name declared twice in the same scope
	ErrorDuplicateDeclaration = "E0401"

	// E0402: Node ID used twice in one function
	ErrorDuplicateNode = "E0402"

	// E0403: Function or modifier without a name
	ErrorMissingName = "E0403"

	// W0001: Constructor declared with a name
	WarningNamedConstructor = "W0001"

	// W0002: Function body without nodes
	WarningEmptyFunction = "W0002"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorSyntax:
		return "Source does not match the textual IR grammar"
	case ErrorMalformedCallee:
		return "Callee must be written as Contract.function"
	case ErrorUndefinedValue:
		return "Operand is not a local, state variable, constant, platform value or literal"
	case ErrorUndefinedFunction:
		return "Internal call target is not declared"
	case ErrorUndefinedModifier:
		return "Modifier is not declared in the contract"
	case ErrorUnknownBuiltin:
		return "Builtin is not known to the IR"
	case ErrorUndefinedNode:
		return "Successor node is not declared in the function"
	case ErrorNotAssignable:
		return "Instruction result cannot be assigned"
	case ErrorUnknownNodeKind:
		return "Unknown CFG node kind"
	case ErrorUnknownCallKind:
		return "Unknown low-level call kind"
	case ErrorReturnCount:
		return "Return arity does not match the function declaration"
	case ErrorMissingDestination:
		return "Call needs a destination"
	case ErrorUnexpectedDestination:
		return "Call takes no destination"
	case ErrorDuplicateDeclaration:
		return "Duplicate declaration found"
	case ErrorDuplicateNode:
		return "Duplicate node ID"
	case ErrorMissingName:
		return "Declaration needs a name"
	case WarningNamedConstructor:
		return "Constructor names are ignored"
	case WarningEmptyFunction:
		return "Function has no body"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return code != "" && code[0] == 'W'
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case IsWarning(code):
		return "Warning"
	case code >= "E0100" && code < "E0200":
		return "Syntax"
	case code >= "E0200" && code < "E0300":
		return "Name Resolution"
	case code >= "E0300" && code < "E0400":
		return "Type"
	case code >= "E0400" && code < "E0500":
		return "Structure"
	default:
		return "Unknown"
	}
}
