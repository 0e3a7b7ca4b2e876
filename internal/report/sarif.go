package report

import (
	"encoding/json"
	"io"

	"cryptoscan/internal/detectors"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
)

// Version is reported as the SARIF driver version
var Version = "0.1.0"

type sarifOutput struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifConfig       `json:"defaultConfiguration"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	RuleIndex  int               `json:"ruleIndex"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLocation   `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

func sarifLevel(c detectors.Classification) string {
	switch c {
	case detectors.High:
		return "error"
	case detectors.Medium:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes a SARIF 2.1.0 log with one rule per detector of list.
// Findings of detectors missing from list get a rule of their own.
func WriteSARIF(w io.Writer, list []detectors.Detector, findings []detectors.Finding) error {
	var rules []sarifRule
	index := map[string]int{}
	for _, d := range list {
		index[d.Argument()] = len(rules)
		rules = append(rules, sarifRule{
			ID:               d.Argument(),
			Name:             d.Argument(),
			ShortDescription: sarifMessage{Text: d.Help()},
			DefaultConfig:    sarifConfig{Level: sarifLevel(d.Impact())},
			Properties: map[string]string{
				"impact":     d.Impact().String(),
				"confidence": d.Confidence().String(),
			},
		})
	}

	results := []sarifResult{}
	for _, f := range findings {
		i, ok := index[f.Detector]
		if !ok {
			i = len(rules)
			index[f.Detector] = i
			rules = append(rules, sarifRule{
				ID:               f.Detector,
				Name:             f.Detector,
				ShortDescription: sarifMessage{Text: f.Detector},
				DefaultConfig:    sarifConfig{Level: sarifLevel(f.Impact)},
			})
		}
		r := sarifResult{
			RuleID:    f.Detector,
			RuleIndex: i,
			Level:     sarifLevel(f.Impact),
			Message:   sarifMessage{Text: Describe(f)},
		}
		if sel := Selector(f.Entry); sel != "" {
			r.Properties = map[string]string{"entry": f.Entry.CanonicalName(), "selector": sel}
		}
		if loc := Locate(f); loc != nil && loc.File != "" {
			r.Locations = []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: loc.File},
					Region:           &sarifRegion{StartLine: loc.Line, StartColumn: loc.Column},
				},
			}}
		}
		results = append(results, r)
	}

	out := sarifOutput{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "cryptoscan", Version: Version, Rules: rules}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
