package infrastructure_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/clearcase/worker/internal/infrastructure"
	"github.com/clearcase/worker/internal/metrics"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := infrastructure.NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "case_id", "c1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "case_id=c1") {
		t.Errorf("output = %s", out)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := infrastructure.NewRegistry()
	m := metrics.New(reg)
	m.MessagesReceived.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"go_goroutines", "clearcase_messages_received_total"} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}
