package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Stdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(ExporterStdout, "schedsim-test", &buf)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := StartSpan(context.Background(), "simulation.run", attribute.Int("tasks", 3))
	span.AddEvent("deadlock")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	// Reset the global provider for other tests.
	if _, err := InitTracing(ExporterNone, "schedsim-test", nil); err != nil {
		t.Fatalf("reset: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"simulation.run", "deadlock", "schedsim-test", `"Key": "tasks"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in exported span, got:\n%s", want, out)
		}
	}
}

func TestInitTracing_None(t *testing.T) {
	shutdown, err := InitTracing("", "schedsim-test", nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := StartSpan(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("noop provider produced a valid span context")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestInitTracing_Unknown(t *testing.T) {
	if _, err := InitTracing("jaeger", "schedsim-test", nil); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
