package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"cryptoscan/internal/detectors"
)

func impactColor(c detectors.Classification) *color.Color {
	switch c {
	case detectors.High:
		return color.New(color.FgRed, color.Bold)
	case detectors.Medium:
		return color.New(color.FgYellow, color.Bold)
	case detectors.Low:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

// WriteText prints one block per finding followed by a summary line
func WriteText(w io.Writer, findings []detectors.Finding) error {
	bold := color.New(color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	for _, f := range findings {
		level := impactColor(f.Impact).Sprintf("[%s/%s]", f.Impact, f.Confidence)
		if _, err := fmt.Fprintf(w, "%s %s\n", level, bold(f.Detector)); err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s\n", Describe(f))
		if loc := Locate(f); loc != nil {
			fmt.Fprintf(w, "  %s %s:%d:%d\n", blue("-->"), loc.File, loc.Line, loc.Column)
		}
		fmt.Fprintln(w)
	}

	switch len(findings) {
	case 0:
		_, err := fmt.Fprintln(w, color.GreenString("no findings"))
		return err
	case 1:
		_, err := fmt.Fprintln(w, color.YellowString("1 finding"))
		return err
	default:
		_, err := fmt.Fprintln(w, color.YellowString("%d findings", len(findings)))
		return err
	}
}
