package errors

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"cryptoscan/internal/ir"
)

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// Diagnostic is a loader error or warning. Length is the width of the
// offending span in runes, starting at Position.
type Diagnostic struct {
	Level       ErrorLevel
	Code        string
	Message     string
	Position    ir.Position
	Length      int
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

func (d Diagnostic) Error() string {
	if d.Code != "" {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Position, d.Level, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Position, d.Level, d.Message)
}

// HasErrors reports whether any diagnostic is at error level
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// Suggestion is a hint attached to a diagnostic. A non-empty Replacement
// is substituted for the diagnostic span when the source line is shown.
type Suggestion struct {
	Message     string
	Replacement string
}

// ErrorReporter renders diagnostics against the IR source they came from
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a reporter for one IR file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

var (
	gutterStyle = color.New(color.FgBlue, color.Bold)
	fixStyle    = color.New(color.FgGreen)
	noteStyle   = color.New(color.Bold)
)

func levelStyle(level ErrorLevel) *color.Color {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold)
	case Note:
		return color.New(color.FgCyan, color.Bold)
	case Help:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// FormatError renders one diagnostic:
//
//	error[E0201]: undefined value 'ownr'
//	 --> vault.sir:4:21 in Vault.f, node 0
//	  |
//	4 |       TMP_0: bool = ownr == msg.sender;
//	  |                     ^^^^
//	  = help: did you mean 'owner'?
//	4 |       TMP_0: bool = owner == msg.sender;
func (er *ErrorReporter) FormatError(d Diagnostic) string {
	var b strings.Builder
	style := levelStyle(d.Level)

	head := string(d.Level)
	if d.Code != "" {
		head += "[" + d.Code + "]"
	}
	fmt.Fprintf(&b, "%s: %s\n", style.Sprint(head), noteStyle.Sprint(d.Message))

	pos := d.Position
	text, ok := er.line(pos.Line)
	num := strconv.Itoa(pos.Line)
	pad := strings.Repeat(" ", len(num))
	bar := gutterStyle.Sprint("|")

	fmt.Fprintf(&b, "%s%s %s:%d:%d", pad, gutterStyle.Sprint("-->"), er.filenameOf(d), pos.Line, pos.Column)
	if scope := er.scope(pos.Line); scope != "" {
		fmt.Fprintf(&b, " in %s", scope)
	}
	b.WriteString("\n")

	if ok {
		fmt.Fprintf(&b, "%s %s\n", pad, bar)
		fmt.Fprintf(&b, "%s %s %s\n", gutterStyle.Sprint(num), bar, text)
		fmt.Fprintf(&b, "%s %s %s\n", pad, bar, style.Sprint(underline(text, pos.Column, d.Length)))
	}

	for _, s := range d.Suggestions {
		fmt.Fprintf(&b, "%s %s %s %s\n", pad, gutterStyle.Sprint("="), fixStyle.Sprint("help:"), s.Message)
		if ok && s.Replacement != "" {
			fixed := splice(text, pos.Column, d.Length, s.Replacement)
			fmt.Fprintf(&b, "%s %s %s\n", gutterStyle.Sprint(num), bar, fixStyle.Sprint(fixed))
		}
	}
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "%s %s %s %s\n", pad, gutterStyle.Sprint("="), noteStyle.Sprint("note:"), n)
	}
	if d.HelpText != "" {
		fmt.Fprintf(&b, "%s %s %s %s\n", pad, gutterStyle.Sprint("="), fixStyle.Sprint("help:"), d.HelpText)
	}
	b.WriteString("\n")
	return b.String()
}

// Report writes every diagnostic followed by a count of errors and
// warnings. Nothing is written for an empty list.
func (er *ErrorReporter) Report(w io.Writer, diags []Diagnostic) {
	if len(diags) == 0 {
		return
	}
	errs, warns := 0, 0
	for _, d := range diags {
		fmt.Fprint(w, er.FormatError(d))
		switch d.Level {
		case Error:
			errs++
		case Warning:
			warns++
		}
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "%s: %s\n", er.filename, strings.Join(parts, ", "))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (er *ErrorReporter) filenameOf(d Diagnostic) string {
	if d.Position.Filename != "" {
		return d.Position.Filename
	}
	return er.filename
}

func (er *ErrorReporter) line(n int) (string, bool) {
	if n < 1 || n > len(er.lines) {
		return "", false
	}
	return strings.TrimRight(er.lines[n-1], "\r"), true
}

// scope names the contract, function and node enclosing line n, found by
// walking back over the block headers the line is nested in.
func (er *ErrorReporter) scope(n int) string {
	var contract, fn, node string
	depth := 0
	for i := min(n-1, len(er.lines)) - 1; i >= 0; i-- {
		text := er.lines[i]
		depth += strings.Count(text, "}") - strings.Count(text, "{")
		if depth >= 0 {
			continue
		}
		depth = 0
		kind, name := header(text)
		switch kind {
		case "contract", "interface", "library":
			contract = name
		case "function", "modifier", "constructor", "fallback", "receive":
			fn = name
		case "node":
			node = "node " + name
		}
	}

	var out string
	switch {
	case contract != "" && fn != "":
		out = contract + "." + fn
	default:
		out = contract + fn
	}
	if node != "" {
		if out != "" {
			out += ", "
		}
		out += node
	}
	return out
}

// header splits a block opening line such as `function f(x: uint256) public {`
// into its keyword and name.
func header(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	kind := fields[0]
	if i := strings.IndexAny(kind, "({"); i >= 0 {
		kind = kind[:i]
		return kind, kind
	}
	if len(fields) == 1 || fields[1] == "{" {
		return kind, kind
	}
	name := fields[1]
	if i := strings.IndexAny(name, "({"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		name = kind
	}
	return kind, name
}

// underline places carets under length runes starting at column. Tabs
// before the span are kept so the carets line up with the source.
func underline(text string, column, length int) string {
	if length <= 0 {
		length = 1
	}
	var b strings.Builder
	i := 1
	for _, r := range text {
		if i >= column {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
		i++
	}
	for ; i < column; i++ {
		b.WriteRune(' ')
	}
	b.WriteString(strings.Repeat("^", length))
	return b.String()
}

// splice replaces length runes of text at column with replacement
func splice(text string, column, length int, replacement string) string {
	runes := []rune(text)
	start := min(max(column-1, 0), len(runes))
	end := min(start+max(length, 0), len(runes))
	return string(runes[:start]) + replacement + string(runes[end:])
}
