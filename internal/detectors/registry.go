package detectors

import (
	"fmt"
	"sort"
	"strings"
)

// All returns one instance of every detector sharing e, in a stable order
func All(e *Engine) []Detector {
	return []Detector{
		NewSingleSigReplay(e),
		NewCrossChainSigReplay(e),
		NewCrossContractSigReplay(e),
		NewSigFrontRun(e),
		NewInsufficientSigCheck(e),
		NewSigMalleability(e),
		NewProofMalleability(e),
		NewHashCollision(e),
		NewWeakPRNG(e),
		NewWeakPRNGTx(e),
		NewMerkleProofReplay(e),
		NewMerkleProofFrontRun(e),
	}
}

// Arguments lists the detector arguments of list in sorted order
func Arguments(list []Detector) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.Argument()
	}
	sort.Strings(out)
	return out
}

// Select filters list by argument. An empty allow list keeps every
// detector; exclude always wins. Unknown arguments are an error.
func Select(list []Detector, allow, exclude []string) ([]Detector, error) {
	known := map[string]bool{}
	for _, d := range list {
		known[d.Argument()] = true
	}
	var unknown []string
	check := func(args []string) map[string]bool {
		set := map[string]bool{}
		for _, a := range args {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			if !known[a] {
				unknown = append(unknown, a)
			}
			set[a] = true
		}
		return set
	}
	allowed := check(allow)
	excluded := check(exclude)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown detectors: %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(Arguments(list), ", "))
	}

	var out []Detector
	for _, d := range list {
		if excluded[d.Argument()] {
			continue
		}
		if len(allowed) > 0 && !allowed[d.Argument()] {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// SplitList splits a comma separated flag value
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
