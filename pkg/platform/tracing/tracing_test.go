package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestStartAndEnd(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")

	ctx, span := Start(context.Background(), tracer, "op", "identity_id", "abc", "dangling")
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())

	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
	assert.NotPanics(t, func() { End(span, nil) })
}
