package otel

import (
	"context"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestMQHeaderCarrierRoundTrip(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	tracer = tp.Tracer("test")
	defer func() {
		otel.SetTextMapPropagator(prevProp)
		tracer = nil
		_ = tp.Shutdown(context.Background())
	}()

	headers := amqp091.Table{}
	_, span := MQPublishSpan(context.Background(), "events", "email.ingested", headers)
	span.End()

	if _, ok := headers["traceparent"].(string); !ok {
		t.Fatalf("traceparent not injected: %v", headers)
	}

	_, consumeSpan := MQConsumeSpan(context.Background(), "q", "email.ingested", headers)
	defer consumeSpan.End()

	parent := span.SpanContext().TraceID()
	if got := consumeSpan.SpanContext().TraceID(); got != parent {
		t.Errorf("consumer trace id = %s, want %s", got, parent)
	}
}

func TestTracerDefaultsToNoop(t *testing.T) {
	_, span := StartSpan(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("expected an invalid span context from the noop tracer")
	}
}
