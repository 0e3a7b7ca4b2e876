package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestWholeDocumentCountsUTF16Units(t *testing.T) {
	cases := []struct {
		content string
		end     protocol.Position
	}{
		{"contract C {}", protocol.Position{Line: 0, Character: 13}},
		{"a\n// café", protocol.Position{Line: 1, Character: 7}},
		{"a\n// 😀 x", protocol.Position{Line: 1, Character: 7}},
		{"a\n", protocol.Position{Line: 1, Character: 0}},
	}
	for _, tc := range cases {
		r := wholeDocument(tc.content)
		assert.Equal(t, protocol.Position{}, r.Start, tc.content)
		assert.Equal(t, tc.end, r.End, tc.content)
	}
	assert.Equal(t, uint32(2), utf16Len("😀"))
	assert.Equal(t, uint32(1), utf16Len("é"))
}
