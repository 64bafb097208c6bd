package monitoring

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/jwtoken"
	"github.com/turtacn/tokenkit/pkg/logger"
)

func TestTracingManager_Disabled(t *testing.T) {
	tm := NewTracingManager(config.TracingConfig{}, logger.NewNoopLogger())
	assert.False(t, tm.Enabled())
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestTracingManager_RecordsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	recorder := tracetest.NewSpanRecorder()
	tm := NewTracingManager(
		config.TracingConfig{Enabled: true, ServiceName: "tokenkit-test", SamplingRate: 1},
		logger.NewNoopLogger(),
		sdktrace.WithSpanProcessor(recorder),
	)
	require.True(t, tm.Enabled())
	t.Cleanup(func() { _ = tm.Shutdown(context.Background()) })

	var logs bytes.Buffer
	v, err := jwtoken.NewValidator([]byte("secret"), jwtoken.WithLogger(logger.NewLogger(constants.LogLevelDebug, &logs)))
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), "not-a-token")
	require.Error(t, err)

	p := crypt.NewProvider(
		crypt.WithSource(crypt.StaticSource{crypt.AES: "traced-key"}),
		crypt.WithLogger(logger.NewNoopLogger()),
	)
	_, err = p.Context(context.Background(), crypt.AES)
	require.NoError(t, err)

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}
	require.Contains(t, spans, "jwtoken.validate")
	require.Contains(t, spans, "keysource.resolve")
	assert.Equal(t, codes.Error, spans["jwtoken.validate"].Status().Code)
	assert.Equal(t, codes.Unset, spans["keysource.resolve"].Status().Code)

	traceID := spans["jwtoken.validate"].SpanContext().TraceID().String()
	assert.Contains(t, logs.String(), `"trace_id":"`+traceID+`"`)
}
