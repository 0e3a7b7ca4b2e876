package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"cryptoscan/internal/detectors"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/report"
)

// ConvertDiagnostics transforms loader diagnostics into LSP diagnostics for IDE display.
// Syntax and resolution problems both come through here.
func ConvertDiagnostics(diags []errors.Diagnostic) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Level == errors.Warning {
			severity = protocol.DiagnosticSeverityWarning
		}

		length := d.Length
		if length == 0 {
			length = 1
		}
		line := zeroBased(d.Position.Line)
		start := zeroBased(d.Position.Column)

		diagnostic := protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: start + uint32(length)},
			},
			Severity: ptrSeverity(severity),
			Source:   ptrString("cryptoscan"),
			Message:  d.Message,
		}
		if d.Code != "" {
			diagnostic.Code = &protocol.IntegerOrString{Value: d.Code}
		}
		diagnostics = append(diagnostics, diagnostic)
	}

	return diagnostics
}

// ConvertFindings reports detector findings as warnings on the sink node,
// or on the function when the node position is unknown.
func ConvertFindings(findings []detectors.Finding) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, f := range findings {
		var line, start uint32
		if loc := report.Locate(f); loc != nil {
			line = zeroBased(loc.Line)
			start = zeroBased(loc.Column)
		}

		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: start + uint32(len("node"))},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityWarning),
			Code:     &protocol.IntegerOrString{Value: f.Detector},
			Source:   ptrString("cryptoscan"),
			Message:  report.Describe(f),
		})
	}

	return diagnostics
}

func zeroBased(n int) uint32 {
	if n <= 1 {
		return 0
	}
	return uint32(n - 1)
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
