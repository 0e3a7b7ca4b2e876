package report

import (
	"encoding/json"
	"io"

	"cryptoscan/internal/detectors"
)

// Output is the document written by WriteJSON
type Output struct {
	Count    int      `json:"count"`
	Findings []Result `json:"findings"`
}

func WriteJSON(w io.Writer, findings []detectors.Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Output{Count: len(findings), Findings: Results(findings)})
}
