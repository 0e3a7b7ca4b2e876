package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"cryptoscan/internal/detectors"
	"cryptoscan/internal/parser"
)

// Define the set of supported semantic token types (as required by the LSP spec)
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"class",
	"enumMember",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"string",
	"comment",
	"operator",
	"modifier",
}

// Define the set of supported semantic token modifiers (for extra tagging like declaration, readonly, etc.)
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
}

// document is the analyzed state of one open file
type document struct {
	content  string
	result   *parser.ParseResult
	findings []detectors.Finding
}

// Handler implements the LSP server handlers for textual IR files
type Handler struct {
	mu        sync.RWMutex
	documents map[string]*document
	pathLimit int
}

// NewHandler creates a handler whose detector runs explore at most
// pathLimit paths per entry function; zero keeps the default.
func NewHandler(pathLimit int) *Handler {
	return &Handler{
		documents: make(map[string]*document),
		pathLimit: pathLimit,
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true), // notify on open/close events
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true), // support full-document semantic token requests
			},
			DocumentFormattingProvider: ptrBool(true),
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("cryptoscan LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("cryptoscan LSP Shutdown")
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)

	diagnostics, err := h.update(params.TextDocument.URI, params.TextDocument.Text)
	if err != nil {
		return fmt.Errorf("failed to analyze document: %w", err)
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.documents, path)

	return nil
}

// TextDocumentDidChange handles file change notifications. The server asks
// for full sync, so the last change carries the whole text.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)

	text, ok := fullText(params.ContentChanges)
	if !ok {
		return nil
	}
	diagnostics, err := h.update(params.TextDocument.URI, text)
	if err != nil {
		return fmt.Errorf("failed to analyze document: %w", err)
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func fullText(changes []any) (string, bool) {
	for i := len(changes) - 1; i >= 0; i-- {
		switch c := changes[i].(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			return c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				return c.Text, true
			}
		}
	}
	return "", false
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Println("TextDocumentSemanticTokensFull called for:", params.TextDocument.URI)

	doc, err := h.getOrUpdate(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(doc.content)

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

// TextDocumentFormatting reprints a document that parses. Documents with
// syntax errors are left alone.
func (h *Handler) TextDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	doc, err := h.getOrUpdate(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if doc.result == nil || doc.result.File == nil {
		return nil, nil
	}
	formatted := doc.result.File.String()
	if formatted == doc.content {
		return nil, nil
	}
	return []protocol.TextEdit{{Range: wholeDocument(doc.content), NewText: formatted}}, nil
}

// wholeDocument spans content. LSP columns count UTF-16 code units.
func wholeDocument(content string) protocol.Range {
	lines := strings.Split(content, "\n")
	last := lines[len(lines)-1]
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: uint32(len(lines) - 1), Character: utf16Len(last)},
	}
}

func utf16Len(s string) uint32 {
	n := 0
	for _, r := range s {
		n += len(utf16.AppendRune(nil, r))
	}
	return uint32(n)
}

func (h *Handler) document(path string) (*document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	doc, ok := h.documents[path]
	return doc, ok
}

// getOrUpdate returns the open document, loading it from disk when the
// editor has not sent it yet.
func (h *Handler) getOrUpdate(ctx *glsp.Context, rawURI protocol.DocumentUri) (*document, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}
	if doc, ok := h.document(path); ok {
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	diagnostics, err := h.update(rawURI, string(content))
	if err != nil {
		return nil, err
	}
	sendDiagnosticNotification(ctx, rawURI, diagnostics)

	doc, _ := h.document(path)
	return doc, nil
}

// update parses and, when the document loads cleanly, runs every detector
// over it. It returns the diagnostics to publish.
func (h *Handler) update(rawURI protocol.DocumentUri, content string) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	doc := &document{content: content, result: parser.ParseSource(path, content)}
	if doc.result.Unit != nil && !doc.result.HasErrors() {
		engine := detectors.NewEngine(h.pathLimit, nil)
		doc.findings, err = detectors.Run(context.Background(), doc.result.Unit, detectors.All(engine), 0, nil)
		if err != nil {
			return nil, fmt.Errorf("detectors failed on %s: %w", path, err)
		}
	}

	h.mu.Lock()
	h.documents[path] = doc
	h.mu.Unlock()

	diagnostics := ConvertDiagnostics(doc.result.Diagnostics)
	diagnostics = append(diagnostics, ConvertFindings(doc.findings)...)
	return diagnostics, nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) → C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	// Normalize to platform-specific separators
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	diagnosticsJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Println("Failed to marshal diagnostics:", err)
		return
	}

	log.Println("Sending diagnostics:", string(diagnosticsJSON))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
