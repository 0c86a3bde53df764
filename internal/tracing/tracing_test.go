package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/54b3r/docqa-go/internal/logging"
)

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cfg          Config
		wantLangfuse bool
		wantOTel     bool
	}{
		{"zero", Config{}, false, false},
		{"public key only", Config{LangfusePublicKey: "pk"}, false, false},
		{"langfuse", Config{LangfusePublicKey: "pk", LangfuseSecretKey: "sk"}, true, false},
		{"otlp", Config{OTLPEndpoint: "localhost:4317"}, false, true},
		{"stdout", Config{Stdout: true}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.LangfuseEnabled(); got != tt.wantLangfuse {
				t.Errorf("LangfuseEnabled() = %v, want %v", got, tt.wantLangfuse)
			}
			if got := tt.cfg.OTelEnabled(); got != tt.wantOTel {
				t.Errorf("OTelEnabled() = %v, want %v", got, tt.wantOTel)
			}
		})
	}
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestTracerProvider_StdoutExportsSpans(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tp, err := newTracerProvider(context.Background(), Config{Stdout: true}, &buf)
	if err != nil {
		t.Fatalf("newTracerProvider: %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "retrieve")
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"retrieve"`) {
		t.Errorf("exported output missing span name: %s", out)
	}
	if !strings.Contains(out, ServiceName) {
		t.Errorf("exported output missing service name: %s", out)
	}
}
