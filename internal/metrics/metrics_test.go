package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveOutcome("replied")
	m.ObserveOutcome("replied")
	m.ObserveOutcome("blocked")
	m.ObserveRun(2*time.Second, nil)
	m.ObserveRun(time.Second, errors.New("list failed"))
	m.ObserveCall("send", 100*time.Millisecond, nil)
	m.ObserveCall("send", 100*time.Millisecond, errors.New("boom"))
	m.ObserveSkippedRun()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("replied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalFailuresTotal.WithLabelValues("send")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedRunsTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestPipelineMetrics_NilIsNoop(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.ObserveOutcome("replied")
		m.ObserveRun(time.Second, nil)
		m.ObserveCall("send", time.Second, nil)
		m.ObserveSkippedRun()
	})
}
