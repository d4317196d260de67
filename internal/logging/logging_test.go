package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestSetup_AddsServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("identitysvc", "1.2.3", "json", &buf)

	logger.Info("hello", "account_id", 7)

	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "identitysvc", line["service"])
	assert.Equal(t, "1.2.3", line["version"])
	assert.EqualValues(t, 7, line["account_id"])
	assert.NotContains(t, line, "trace_id")
}

func TestSetup_AddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("identitysvc", "dev", "json", &buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "traced")

	line := decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", line["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", line["span_id"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("identitysvc", "dev", "text", &buf).With("component", "worker")

	logger.Debug("debug enabled in text mode")

	out := buf.String()
	assert.Contains(t, out, "debug enabled in text mode")
	assert.Contains(t, out, "component=worker")
	assert.Contains(t, out, "service=identitysvc")
}

func TestLogError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  bool
		wantLevel string
		log       func(context.Context, *bytes.Buffer, error)
	}{
		{
			name:      "oops error at error level",
			err:       oops.Code("IDENTITY_INTERNAL").With("operation", "signup").Wrap(errors.New("db down")),
			wantCode:  true,
			wantLevel: "ERROR",
			log: func(ctx context.Context, buf *bytes.Buffer, err error) {
				LogError(ctx, Setup("s", "v", "json", buf), "failed", err)
			},
		},
		{
			name:      "plain error at warn level",
			err:       errors.New("smtp timeout"),
			wantLevel: "WARN",
			log: func(ctx context.Context, buf *bytes.Buffer, err error) {
				LogWarn(ctx, Setup("s", "v", "json", buf), "failed", err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(context.Background(), &buf, tt.err)

			line := decodeLine(t, &buf)
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Contains(t, line["error"], tt.err.Error())
			if tt.wantCode {
				assert.Equal(t, "IDENTITY_INTERNAL", line["code"])
				ctxAttrs, ok := line["context"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "signup", ctxAttrs["operation"])
			} else {
				assert.NotContains(t, line, "code")
			}
		})
	}
}
