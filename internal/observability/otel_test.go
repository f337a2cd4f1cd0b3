package observability

import (
	"context"
	"testing"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	t.Setenv("OTEL_SAMPLER_RATIO", "4")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != ExporterStdout {
		t.Fatalf("no endpoint: want enabled stdout got=%+v", cfg)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("ratio clamp: want=1 got=%v", cfg.SampleRatio)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-token=abc, broken ,=v,team=media")
	cfg = TracingConfigFromEnv()
	if cfg.Exporter != ExporterOTLP {
		t.Fatalf("endpoint set: want=%s got=%s", ExporterOTLP, cfg.Exporter)
	}
	if len(cfg.Headers) != 2 || cfg.Headers["x-token"] != "abc" || cfg.Headers["team"] != "media" {
		t.Fatalf("headers: got %v", cfg.Headers)
	}
}

func TestNewSpanExporter(t *testing.T) {
	ctx := context.Background()
	if exp, err := newSpanExporter(ctx, TracingConfig{Exporter: ExporterNone}); err != nil || exp != nil {
		t.Fatalf("none: want nil exporter got=%v err=%v", exp, err)
	}
	if _, err := newSpanExporter(ctx, TracingConfig{Exporter: ExporterOTLP}); err == nil {
		t.Fatalf("otlp without endpoint should fail")
	}
	if _, err := newSpanExporter(ctx, TracingConfig{Exporter: "zipkin"}); err == nil {
		t.Fatalf("unknown exporter should fail")
	}
	exp, err := newSpanExporter(ctx, TracingConfig{Exporter: ExporterStdout})
	if err != nil || exp == nil {
		t.Fatalf("stdout: got=%v err=%v", exp, err)
	}
	_ = exp.Shutdown(ctx)
}

func TestParseHeaderListEmpty(t *testing.T) {
	if h := parseHeaderList(""); h != nil {
		t.Fatalf("empty: want nil got %v", h)
	}
}
