package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"expenseai/internal/config"
)

func TestNewTraceExporter(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:4318")

	tests := []struct {
		kind    string
		wantNil bool
		wantErr bool
	}{
		{kind: config.TraceExporterNone, wantNil: true},
		{kind: "", wantNil: true},
		{kind: config.TraceExporterStdout},
		{kind: config.TraceExporterOTLP},
		{kind: "zipkin", wantNil: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			exp, err := newTraceExporter(context.Background(), tt.kind, &bytes.Buffer{})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, exp == nil)
			if exp != nil {
				assert.NoError(t, exp.Shutdown(context.Background()))
			}
		})
	}
}

func TestTracerProviderExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	exp, err := newTraceExporter(context.Background(), config.TraceExporterStdout, &buf)
	require.NoError(t, err)

	tp, err := newTracerProvider(exp, "worker")
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "llm.chat")
	assert.True(t, span.IsRecording())
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"llm.chat"`)
	assert.Contains(t, out, "expenseai")
	assert.Contains(t, out, "worker")
}

func TestSetupTracing_NoneKeepsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()

	shutdown, err := SetupTracing(context.Background(), &config.Config{TraceExporter: config.TraceExporterNone}, "app")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, prev, otel.GetTracerProvider())
}
