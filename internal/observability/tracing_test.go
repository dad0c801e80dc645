package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestTracingConfigApplyEnv(t *testing.T) {
	cfg, err := DefaultTracingConfig().ApplyEnv(envMap(map[string]string{
		EnvTracingEnabled: "TRUE",
		EnvTracingExport:  "OTLP",
		EnvTracingService: "",
		EnvTracingRatio:   "0.25",
		EnvOTLPEndpoint:   "collector:4317",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if !cfg.Enabled || cfg.exporter() != ExporterOTLP || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ServiceName != "wsn-simulator" || cfg.SampleRatio != 0.25 {
		t.Fatalf("defaults/ratio not applied: %+v", cfg)
	}

	unset, err := DefaultTracingConfig().ApplyEnv(envMap(nil))
	if err != nil || unset != DefaultTracingConfig() {
		t.Fatalf("empty environment changed config: %+v, %v", unset, err)
	}
}

func TestTracingConfigRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"ratio above one":  {EnvTracingRatio: "7"},
		"ratio not number": {EnvTracingRatio: "half"},
		"enabled not bool": {EnvTracingEnabled: "sometimes"},
		"unknown exporter": {EnvTracingExport: "zipkin"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DefaultTracingConfig().ApplyEnv(envMap(vars)); err == nil {
				t.Fatalf("expected an error for %v", vars)
			}
		})
	}
}

func TestStartTracingDisabled(t *testing.T) {
	tr, err := StartTracing(context.Background(), DefaultTracingConfig(), nil)
	if err != nil {
		t.Fatalf("StartTracing: %v", err)
	}
	_, span := tr.Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Fatalf("disabled tracing should produce non-recording spans")
	}
	span.End()
	tr.Shutdown(context.Background(), nil)
}

func TestStartTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.ServiceName = "wsn-test"
	cfg.Output = &buf

	tr, err := StartTracing(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("StartTracing: %v", err)
	}
	_, span := tr.Tracer().Start(context.Background(), "network.step")
	span.End()
	tr.Shutdown(context.Background(), nil)

	if !strings.Contains(buf.String(), "network.step") || !strings.Contains(buf.String(), "wsn-test") {
		t.Fatalf("span not exported: %q", buf.String())
	}

	// Reset the global provider for other tests.
	if _, err := StartTracing(context.Background(), DefaultTracingConfig(), nil); err != nil {
		t.Fatalf("StartTracing reset: %v", err)
	}
}

func TestStartTracingUnknownExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	if _, err := StartTracing(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}
