package instrumentation

import "testing"

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("METRICS_EXPORTER", "")
	t.Setenv("INSTRUMENTATION_ENABLED", "")

	cfg := DefaultConfig()
	if cfg.ServiceName != "bizgateway" {
		t.Errorf("ServiceName = %q, want bizgateway", cfg.ServiceName)
	}
	if !cfg.Enabled {
		t.Error("expected instrumentation enabled by default")
	}
	if cfg.MetricsExporter != ExporterPrometheus {
		t.Errorf("MetricsExporter = %q", cfg.MetricsExporter)
	}
	if cfg.TracingExporter != ExporterNone {
		t.Errorf("TracingExporter = %q", cfg.TracingExporter)
	}
}

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("AUDIT_LOGGING_INCLUDE_ARGUMENTS", "not-a-bool")

	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Error("expected instrumentation disabled")
	}
	if cfg.TraceSamplingRate != 0.5 {
		t.Errorf("TraceSamplingRate = %v, want 0.5", cfg.TraceSamplingRate)
	}
	if cfg.AuditLogging.IncludeArguments {
		t.Error("invalid bool should fall back to default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1}, false},
		{"sampling too high", Config{TraceSamplingRate: 1.5}, true},
		{"sampling negative", Config{TraceSamplingRate: -0.1}, true},
		{"bad metrics exporter", Config{MetricsExporter: "graphite"}, true},
		{"bad tracing exporter", Config{TracingExporter: "jaeger"}, true},
		{"otlp without endpoint", Config{TracingExporter: ExporterOTLP}, true},
		{"otlp with endpoint", Config{TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
