// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"cryptoscan/internal/lsp"
)

const lsName = "cryptoscan" // Name identifier for the language server

var handler protocol.Handler // Protocol handler instance (wired up below)

func main() {
	verbosity := flag.Int("v", 1, "log verbosity (0 quiet, 1 info, 2 debug)")
	pathLimit := flag.Int("path-limit", 0, "maximum call paths explored per entry function (0 keeps the default)")
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	h := lsp.NewHandler(*pathLimit)

	// Wire up the handler with specific LSP method implementations
	handler = protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		SetTrace:                       h.SetTrace,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentCompletion:         h.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
		TextDocumentFormatting:         h.TextDocumentFormatting,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting cryptoscan LSP server...")

	// Editors talk to the server over stdio
	if err := s.RunStdio(); err != nil {
		log.Println("Error starting cryptoscan LSP server:", err)
		os.Exit(1)
	}
}
