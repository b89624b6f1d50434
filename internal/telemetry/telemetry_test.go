package telemetry

import (
	"context"
	"testing"
)

func TestInitTelemetry_NoEndpoint(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), "recipebox-test", "v1.0.0", "test", "", nil)
	if err != nil {
		t.Fatalf("InitTelemetry failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		raw  string
		want exportTarget
	}{
		{
			raw: "localhost:4318",
			want: exportTarget{Host: "localhost:4318", TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics"},
		},
		{
			raw: "http://collector:4318",
			want: exportTarget{Host: "collector:4318", Insecure: true, TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics"},
		},
		{
			raw: "https://otlp.example.com/otlp",
			want: exportTarget{Host: "otlp.example.com", TracePath: "/otlp/v1/traces", LogPath: "/otlp/v1/logs", MetricPath: "/otlp/v1/metrics"},
		},
		{
			raw: "https://otlp.example.com/otlp/v1/traces",
			want: exportTarget{Host: "otlp.example.com", TracePath: "/otlp/v1/traces", LogPath: "/otlp/v1/logs", MetricPath: "/otlp/v1/metrics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := resolveEndpoint(tt.raw); got != tt.want {
				t.Errorf("resolveEndpoint(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTracer(t *testing.T) {
	if Tracer("test-tracer") == nil {
		t.Fatal("Tracer returned nil")
	}
}
