// Package metrics exposes scan statistics to Prometheus. ScanMetrics
// implements callpath.Observer and detectors.Recorder.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tliron/commonlog"

	"cryptoscan/internal/callpath"
	"cryptoscan/internal/detectors"
	"cryptoscan/internal/ir"
)

var log = commonlog.GetLogger("cryptoscan.metrics")

type ScanMetrics struct {
	FilesAnalyzed      prometheus.Counter
	Diagnostics        *prometheus.CounterVec
	PathsExplored      *prometheus.CounterVec
	PathLimitsExceeded *prometheus.CounterVec
	Findings           *prometheus.CounterVec
	DetectorDuration   *prometheus.HistogramVec
}

var (
	_ callpath.Observer  = (*ScanMetrics)(nil)
	_ detectors.Recorder = (*ScanMetrics)(nil)
)

func NewScanMetrics() *ScanMetrics {
	return &ScanMetrics{
		FilesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoscan_files_analyzed_total",
			Help: "Total number of IR files loaded and analyzed",
		}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoscan_load_diagnostics_total",
			Help: "Total number of loader diagnostics by level",
		}, []string{"level"}),
		PathsExplored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoscan_paths_explored_total",
			Help: "Total number of call paths explored per contract",
		}, []string{"contract"}),
		PathLimitsExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoscan_path_limit_exceeded_total",
			Help: "Total number of entry functions whose exploration hit the path ceiling",
		}, []string{"contract"}),
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoscan_findings_total",
			Help: "Total number of findings per detector",
		}, []string{"detector"}),
		DetectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cryptoscan_detector_duration_seconds",
			Help:    "Time taken by one detector run in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"detector"}),
	}
}

// Register adds every collector to reg
func (m *ScanMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.FilesAnalyzed, m.Diagnostics, m.PathsExplored, m.PathLimitsExceeded, m.Findings, m.DetectorDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func contractOf(f *ir.Function) string {
	if f == nil || f.Contract == nil {
		return ""
	}
	return f.Contract.Name
}

func (m *ScanMetrics) PathExplored(entry *ir.Function) {
	m.PathsExplored.WithLabelValues(contractOf(entry)).Inc()
}

func (m *ScanMetrics) PathLimitExceeded(entry *ir.Function) {
	m.PathLimitsExceeded.WithLabelValues(contractOf(entry)).Inc()
}

func (m *ScanMetrics) DetectorFinished(argument string, findings int, elapsed time.Duration) {
	m.Findings.WithLabelValues(argument).Add(float64(findings))
	m.DetectorDuration.WithLabelValues(argument).Observe(elapsed.Seconds())
}

// FileLoaded counts a loaded file and its diagnostics by level
func (m *ScanMetrics) FileLoaded(levels ...string) {
	m.FilesAnalyzed.Inc()
	for _, l := range levels {
		m.Diagnostics.WithLabelValues(l).Inc()
	}
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr under /metrics in the background. Close the
// returned server to stop it.
func Serve(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %s", err)
		}
	}()
	return srv
}
