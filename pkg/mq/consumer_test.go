package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"emailanalyser/pkg/trace"
)

type fakeAcker struct {
	acks, nacks int
	requeue     bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acks++
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func newTestConsumer(h MessageHandler) *Consumer {
	return &Consumer{
		queue:      amqp091.Queue{Name: "email.ingested.analyze.q"},
		routingKey: RoutingKeyEmailIngested,
		handler:    h,
		logger:     zap.NewNop(),
	}
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	var gotTrace string
	c := newTestConsumer(func(ctx context.Context, data json.RawMessage) error {
		gotTrace = trace.FromContext(ctx)
		return nil
	})

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp091.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{}`),
		Headers:      amqp091.Table{traceHeader: "abc123"},
	})

	if acker.acks != 1 || acker.nacks != 0 {
		t.Fatalf("acks=%d nacks=%d", acker.acks, acker.nacks)
	}
	if gotTrace != "abc123" {
		t.Errorf("trace id = %q, want abc123", gotTrace)
	}
}

func TestHandleDeliveryGeneratesTraceID(t *testing.T) {
	var gotTrace string
	c := newTestConsumer(func(ctx context.Context, data json.RawMessage) error {
		gotTrace = trace.FromContext(ctx)
		return nil
	})
	c.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: &fakeAcker{}})
	if len(gotTrace) != 32 {
		t.Errorf("generated trace id = %q", gotTrace)
	}
}

func TestHandleDeliveryNacksOnError(t *testing.T) {
	c := newTestConsumer(func(ctx context.Context, data json.RawMessage) error {
		return errors.New("db down")
	})
	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: acker})
	if acker.nacks != 1 || !acker.requeue || acker.acks != 0 {
		t.Fatalf("acks=%d nacks=%d requeue=%v", acker.acks, acker.nacks, acker.requeue)
	}
}

func TestHandleDeliveryRecoversPanic(t *testing.T) {
	c := newTestConsumer(func(ctx context.Context, data json.RawMessage) error {
		panic("boom")
	})
	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: acker})
	if acker.nacks != 1 {
		t.Fatalf("panic should nack, nacks=%d", acker.nacks)
	}
}

func TestDLQHeaders(t *testing.T) {
	h := DLQHeaders("bad json", "json_error", mustTime(t))
	if h["x-error-reason"] != "json_error" || h["x-failed-time"] != "2024-03-01T10:00:00Z" {
		t.Errorf("headers = %v", h)
	}
	if DLQQueueName("email.ingested") != "email.ingested.dlq" {
		t.Error("unexpected dlq queue name")
	}
}

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2024-03-01T11:00:00+01:00")
	if err != nil {
		t.Fatal(err)
	}
	return ts
}
