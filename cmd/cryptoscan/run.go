package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"cryptoscan/internal/config"
	"cryptoscan/internal/detectors"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/inventory"
	"cryptoscan/internal/ir"
	"cryptoscan/internal/metrics"
	"cryptoscan/internal/parser"
	"cryptoscan/internal/report"
)

// Exit codes
const (
	exitClean    = 0
	exitFailure  = 1
	exitFindings = 2
)

type options struct {
	configPath string
	detectors  string
	exclude    string
	format     string
	pathLimit  int
	workers    int
	verbosity  int
	metrics    string
	inventory  bool
	list       bool
	printIR    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, map[string]bool, error) {
	o := &options{}
	fset := flag.NewFlagSet("cryptoscan", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&o.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	fset.StringVar(&o.detectors, "detectors", "", "comma-separated detectors to run (default all)")
	fset.StringVar(&o.exclude, "exclude", "", "comma-separated detectors to skip")
	fset.StringVar(&o.format, "format", config.FormatText, "output format: text, json or sarif")
	fset.IntVar(&o.pathLimit, "path-limit", 0, "maximum call paths explored per entry function")
	fset.IntVar(&o.workers, "workers", 0, "detectors run in parallel")
	fset.IntVar(&o.verbosity, "v", 0, "log verbosity")
	fset.StringVar(&o.metrics, "metrics-addr", "", "serve Prometheus metrics on this address")
	fset.BoolVar(&o.inventory, "inventory", false, "print the cryptographic primitives each file uses")
	fset.BoolVar(&o.list, "list", false, "list the available detectors and exit")
	fset.BoolVar(&o.printIR, "print-ir", false, "print the loaded IR")
	fset.Usage = func() {
		fmt.Fprintln(stderr, "Usage: cryptoscan [flags] file.sir...")
		fset.PrintDefaults()
	}
	if err := fset.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	set := map[string]bool{}
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, fset.Args(), set, nil
}

// loadConfig reads the config file and lets explicitly set flags win
func loadConfig(o *options, set map[string]bool) (*config.Config, error) {
	cfg := config.Default()
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", config.DefaultFile, err)
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["detectors"] {
		cfg.Detectors = detectors.SplitList(o.detectors)
	}
	if set["exclude"] {
		cfg.Exclude = detectors.SplitList(o.exclude)
	}
	if set["format"] {
		cfg.Format = o.format
	}
	if set["path-limit"] {
		cfg.PathLimit = o.pathLimit
	}
	if set["workers"] {
		cfg.Workers = o.workers
	}
	if set["v"] {
		cfg.Verbosity = o.verbosity
	}
	if set["metrics-addr"] {
		cfg.MetricsAddr = o.metrics
	}
	if set["inventory"] {
		cfg.Inventory = o.inventory
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, files, set, err := parseFlags(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return exitClean
		}
		return exitFailure
	}

	cfg, err := loadConfig(o, set)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("error: %s", err))
		return exitFailure
	}
	commonlog.Configure(cfg.Verbosity, nil)

	m := metrics.NewScanMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		fmt.Fprintln(stderr, color.RedString("error: %s", err))
		return exitFailure
	}
	if cfg.MetricsAddr != "" {
		srv := metrics.Serve(cfg.MetricsAddr, reg)
		defer srv.Close()
	}

	all := detectors.All(detectors.NewEngine(cfg.PathLimit, m))
	if o.list {
		printDetectors(stdout, all)
		return exitClean
	}
	selected, err := detectors.Select(all, cfg.Detectors, cfg.Exclude)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("error: %s", err))
		return exitFailure
	}

	if len(files) == 0 {
		fmt.Fprintln(stderr, "Usage: cryptoscan [flags] file.sir...")
		return exitFailure
	}

	start := time.Now()
	failed := false
	var findings []detectors.Finding
	for _, path := range files {
		unit, ok := load(path, m, stderr)
		if !ok {
			failed = true
			continue
		}
		if o.printIR {
			fmt.Fprint(stdout, ir.Print(unit))
		}
		if cfg.Inventory {
			printInventory(stdout, path, inventory.Collect(unit))
		}

		found, err := detectors.Run(ctx, unit, selected, cfg.Workers, m)
		if err != nil {
			fmt.Fprintln(stderr, color.RedString("error: %s: %s", path, err))
			return exitFailure
		}
		findings = append(findings, found...)
	}
	detectors.Sort(findings)

	if err := write(stdout, cfg.Format, selected, findings); err != nil {
		fmt.Fprintln(stderr, color.RedString("error: %s", err))
		return exitFailure
	}

	elapsed := time.Since(start)
	switch {
	case failed:
		fmt.Fprintln(stderr, color.RedString("Analysis incomplete after %s", formatDuration(elapsed)))
		return exitFailure
	case len(findings) > 0:
		return exitFindings
	}
	if cfg.Format == config.FormatText {
		fmt.Fprintln(stderr, color.GreenString("Analyzed %d file(s) in %s", len(files), formatDuration(elapsed)))
	}
	return exitClean
}

// load parses one file and prints its diagnostics. ok is false when the
// file is unreadable or has errors.
func load(path string, m *metrics.ScanMetrics, stderr io.Writer) (*ir.CompilationUnit, bool) {
	res, source, err := parser.ParseFile(path)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("error: %s: %s", path, err))
		return nil, false
	}

	errors.NewErrorReporter(path, source).Report(stderr, res.Diagnostics)
	levels := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		levels = append(levels, string(d.Level))
	}
	m.FileLoaded(levels...)

	if res.HasErrors() {
		return nil, false
	}
	return res.Unit, true
}

func write(w io.Writer, format string, list []detectors.Detector, findings []detectors.Finding) error {
	switch format {
	case config.FormatJSON:
		return report.WriteJSON(w, findings)
	case config.FormatSARIF:
		return report.WriteSARIF(w, list, findings)
	default:
		return report.WriteText(w, findings)
	}
}

func printDetectors(w io.Writer, list []detectors.Detector) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DETECTOR\tIMPACT\tCONFIDENCE\tDESCRIPTION")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Argument(), d.Impact(), d.Confidence(), d.Help())
	}
	tw.Flush()
}

func printInventory(w io.Writer, path string, entries []inventory.Entry) {
	fmt.Fprintf(w, "%s\n", color.New(color.Bold).Sprintf("Inventory of %s", path))
	if len(entries) == 0 {
		fmt.Fprintln(w, "  no cryptographic primitives")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		inputs := make([]string, len(e.Inputs))
		for i, v := range e.Inputs {
			inputs[i] = v.String()
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.Kind, e.Name, e.Node, strings.Join(inputs, ", "))
	}
	tw.Flush()

	counts := inventory.Summarize(entries)
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s %s x%d", c.Kind, c.Name, c.Count)
	}
	fmt.Fprintf(w, "  total: %s\n\n", strings.Join(parts, ", "))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
