package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoscan/internal/callpath"
	"cryptoscan/internal/ir"
	"cryptoscan/internal/metrics"
)

func TestRecorder(t *testing.T) {
	m := metrics.NewScanMetrics()
	m.DetectorFinished("sig-mal", 2, 10*time.Millisecond)
	m.DetectorFinished("sig-mal", 1, 5*time.Millisecond)
	m.DetectorFinished("weak-prng", 0, time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Findings.WithLabelValues("sig-mal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Findings.WithLabelValues("weak-prng")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.DetectorDuration))
}

func TestExplorerObserver(t *testing.T) {
	c := ir.NewUnit().NewContract("Vault", ir.KindContract)
	entry := c.NewFunction("run", ir.Public)
	mid := c.NewFunction("mid", ir.Internal)
	leaf := c.NewFunction("leaf", ir.Internal)
	ir.NewBuilder(entry).Call(mid)
	ir.NewBuilder(mid).Call(leaf)
	ir.NewBuilder(leaf).Keccak(ir.MsgSender)

	m := metrics.NewScanMetrics()
	explorer := &callpath.Explorer{Observer: m}
	matches, err := explorer.FindPaths(entry, func(ins ir.Instruction) bool {
		return ir.IsBuiltinCall(ins, ir.Keccak256)
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Same(t, leaf, matches[0].Path.Terminal())
	assert.Positive(t, testutil.ToFloat64(m.PathsExplored.WithLabelValues("Vault")))
	assert.Zero(t, testutil.ToFloat64(m.PathLimitsExceeded.WithLabelValues("Vault")))
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewScanMetrics()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "collectors register once")

	m.FileLoaded("error", "warning")
	m.DetectorFinished("hash-collision", 1, time.Millisecond)

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "cryptoscan_files_analyzed_total 1")
	assert.Contains(t, string(body), `cryptoscan_load_diagnostics_total{level="error"} 1`)
	assert.Contains(t, string(body), `cryptoscan_findings_total{detector="hash-collision"} 1`)
}
