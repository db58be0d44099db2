package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, otellog.SeverityInfo, severityFor(zerolog.InfoLevel))
	assert.Equal(t, otellog.SeverityWarn, severityFor(zerolog.WarnLevel))
	assert.Equal(t, otellog.SeverityError, severityFor(zerolog.ErrorLevel))
	assert.Equal(t, otellog.SeverityFatal, severityFor(zerolog.PanicLevel))
	assert.Equal(t, otellog.SeverityUndefined, severityFor(zerolog.NoLevel))
}

func TestLoggerFromContext_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	LoggerFromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"trace_id":"`+sc.TraceID().String()+`"`)
	assert.Contains(t, buf.String(), `"span_id":"`+sc.SpanID().String()+`"`)

	buf.Reset()
	LoggerFromContext(context.Background()).Info().Msg("plain")
	assert.NotContains(t, buf.String(), "trace_id")
}
