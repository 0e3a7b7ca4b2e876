package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"cryptoscan/grammar"
	"cryptoscan/internal/ir"
)

var elementaryTypes = []string{"address", "bool", "bytes", "bytes32", "string", "uint256", "uint8", "int256"}

// TextDocumentCompletion offers keywords, builtins, platform values, node
// kinds and the names declared in the document.
func (h *Handler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	c := &completions{seen: make(map[string]bool)}

	c.add(grammar.Keywords, protocol.CompletionItemKindKeyword, "")
	c.add(ir.BuiltinNames(), protocol.CompletionItemKindFunction, "builtin")
	c.add(ir.SolidityVariableNames(), protocol.CompletionItemKindVariable, "solidity variable")
	for _, k := range ir.NodeKinds {
		c.item(string(k), protocol.CompletionItemKindEnumMember, "node kind")
	}
	c.add(elementaryTypes, protocol.CompletionItemKindTypeParameter, "type")

	if doc, err := h.getOrUpdate(ctx, params.TextDocument.URI); err == nil && doc.result.Unit != nil {
		c.declared(doc.result.Unit)
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        c.items,
	}, nil
}

type completions struct {
	items []protocol.CompletionItem
	seen  map[string]bool
}

func (c *completions) add(labels []string, kind protocol.CompletionItemKind, detail string) {
	for _, label := range labels {
		c.item(label, kind, detail)
	}
}

func (c *completions) item(label string, kind protocol.CompletionItemKind, detail string) {
	if c.seen[label] {
		return
	}
	c.seen[label] = true
	item := protocol.CompletionItem{Label: label, Kind: &kind}
	if detail != "" {
		item.Detail = ptrString(detail)
	}
	c.items = append(c.items, item)
}

func (c *completions) declared(unit *ir.CompilationUnit) {
	for _, v := range unit.Constants {
		c.item(v.Name, protocol.CompletionItemKindConstant, typeName(v.Type))
	}
	for _, contract := range unit.Contracts {
		c.item(contract.Name, protocol.CompletionItemKindClass, string(contract.Kind))
		for _, slot := range contract.StateVariables {
			c.item(slot.Name, protocol.CompletionItemKindField, typeName(slot.Type))
		}
		for _, f := range contract.FunctionsAndModifiers() {
			c.item(f.Name, protocol.CompletionItemKindMethod, f.CanonicalName())
		}
	}
}

func typeName(t ir.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
