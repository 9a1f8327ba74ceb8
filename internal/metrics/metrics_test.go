package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clearcase/worker/internal/metrics"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.MessagesProcessed.WithLabelValues("full").Inc()
	m.MessagesFailed.WithLabelValues("ocr_stage", "TRANSIENT").Add(2)

	if got := testutil.ToFloat64(m.MessagesProcessed.WithLabelValues("full")); got != 1 {
		t.Errorf("processed = %v, want 1", got)
	}

	expected := `
# HELP clearcase_messages_failed_total Message failures by stage and error code
# TYPE clearcase_messages_failed_total counter
clearcase_messages_failed_total{code="TRANSIENT",stage="ocr_stage"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "clearcase_messages_failed_total"); err != nil {
		t.Error(err)
	}
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	metrics.New(reg)
}
