package detectors

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptoscan/internal/ir"
)

// Run executes every detector of list over unit on at most workers
// goroutines. Detectors not yet started when ctx is cancelled are skipped
// and ctx's error is returned. Findings are sorted by detector argument,
// then by key. rec may be nil.
func Run(ctx context.Context, unit *ir.CompilationUnit, list []Detector, workers int, rec Recorder) ([]Finding, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([][]Finding, len(list))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range list {
		i, d := i, d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			results[i] = d.Detect(unit)
			elapsed := time.Since(start)
			log.Debugf("%s: %d findings in %s", d.Argument(), len(results[i]), elapsed)
			if rec != nil {
				rec.DetectorFinished(d.Argument(), len(results[i]), elapsed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Finding
	for _, fs := range results {
		out = append(out, fs...)
	}
	Sort(out)
	log.Infof("%d detectors reported %d findings", len(list), len(out))
	return out, nil
}

// Sort orders findings by detector argument, then by key
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Detector != findings[j].Detector {
			return findings[i].Detector < findings[j].Detector
		}
		return findings[i].Key() < findings[j].Key()
	})
}
