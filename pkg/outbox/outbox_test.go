package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"emailanalyser/pkg/trace"
)

type fakeStore struct {
	events []*Event
	sent   []int64
	failed []int64
}

func (f *fakeStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.events, nil
}

func (f *fakeStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.events, nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, id int64) (*Event, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrEventNotFound
}

func (f *fakeStore) MarkAsSent(ctx context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeStore) MarkAsFailed(ctx context.Context, id int64, maxRetries int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublisher struct {
	failKey  string
	traceIDs []string
	keys     []string
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if routingKey == p.failKey {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, routingKey)
	p.traceIDs = append(p.traceIDs, trace.FromContext(ctx))
	return nil
}

func TestDispatcherProcessPending(t *testing.T) {
	store := &fakeStore{events: []*Event{
		{ID: 1, RoutingKey: "email.analyzed", Payload: json.RawMessage(`{"trace_id":"t-1"}`)},
		{ID: 2, RoutingKey: "broken", Payload: json.RawMessage(`{}`)},
		{ID: 3, RoutingKey: "email.analyzed", Payload: json.RawMessage(`{}`)},
	}}
	pub := &fakePublisher{failKey: "broken"}

	d := newDispatcher(store, pub, zap.NewNop())
	if n := d.ProcessPending(context.Background()); n != 2 {
		t.Fatalf("sent = %d, want 2", n)
	}
	if len(store.sent) != 2 || store.sent[0] != 1 || store.sent[1] != 3 {
		t.Errorf("sent ids = %v", store.sent)
	}
	if len(store.failed) != 1 || store.failed[0] != 2 {
		t.Errorf("failed ids = %v", store.failed)
	}
	if pub.traceIDs[0] != "t-1" || pub.traceIDs[1] != "" {
		t.Errorf("trace ids = %v", pub.traceIDs)
	}
}

func TestReplayFailedEvents(t *testing.T) {
	store := &fakeStore{events: []*Event{
		{ID: 7, RoutingKey: "email.analyzed", Payload: json.RawMessage(`{}`)},
		{ID: 8, RoutingKey: "broken", Payload: json.RawMessage(`{}`)},
	}}
	s := newReplayService(store, &fakePublisher{failKey: "broken"}, zap.NewNop())

	n, err := s.ReplayFailedEvents(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("replayed = %d, want 1", n)
	}
	if err := s.ReplayEvent(context.Background(), 99); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("missing event err = %v", err)
	}
}

func TestReplayRejectsSentEvent(t *testing.T) {
	store := &fakeStore{events: []*Event{
		{ID: 4, RoutingKey: "email.analyzed", Status: StatusSent, Payload: json.RawMessage(`{}`)},
	}}
	pub := &fakePublisher{}
	s := newReplayService(store, pub, zap.NewNop())

	if err := s.ReplayEvent(context.Background(), 4); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("err = %v, want ErrAlreadySent", err)
	}
	if len(pub.keys) != 0 || len(store.sent) != 0 {
		t.Errorf("sent event was republished: keys=%v sent=%v", pub.keys, store.sent)
	}
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	status, next := nextAttempt(2, 5, now)
	if status != StatusPending || next == nil || !next.Equal(now.Add(10*time.Second)) {
		t.Errorf("got %s %v", status, next)
	}
	status, next = nextAttempt(5, 5, now)
	if status != StatusFailed || next != nil {
		t.Errorf("got %s %v", status, next)
	}
}

func TestTraceIDFromPayload(t *testing.T) {
	if got := traceIDFromPayload(json.RawMessage(`{"trace_id":"x"}`)); got != "x" {
		t.Errorf("got %q", got)
	}
	if got := traceIDFromPayload(json.RawMessage(`not json`)); got != "" {
		t.Errorf("got %q", got)
	}
}
