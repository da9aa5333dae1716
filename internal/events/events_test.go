package events_test

import (
	"errors"
	"testing"

	"librarian/internal/events"
)

func TestPublishRunsListenersInSubscriptionOrder(t *testing.T) {
	bus := events.New()
	var order []string
	bus.Subscribe("content.added", "ingest", func(event string, payload any) error {
		order = append(order, "ingest")
		return nil
	}, nil)
	bus.Subscribe("content.added", "notify", func(event string, payload any) error {
		order = append(order, "notify")
		return nil
	}, nil)

	if err := bus.Publish("content.added", "abc", ""); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(order) != 2 || order[0] != "ingest" || order[1] != "notify" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	bus := events.New()
	calls := 0
	listener := func(event string, payload any) error {
		calls++
		return nil
	}
	bus.Subscribe("content.added", "ingest", listener, nil)
	bus.Subscribe("content.added", "ingest", listener, nil)

	if err := bus.Publish("content.added", nil, ""); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("duplicate subscription invoked %d times", calls)
	}
}

func TestConditionGuardsInvocation(t *testing.T) {
	bus := events.New()
	calls := 0
	bus.Subscribe("content.added", "ingest", func(event string, payload any) error {
		calls++
		return nil
	}, func(event string, payload any) bool {
		id, _ := payload.(string)
		return id != ""
	})

	_ = bus.Publish("content.added", "", "")
	_ = bus.Publish("content.added", "abc", "")
	if calls != 1 {
		t.Fatalf("condition not honored, %d calls", calls)
	}
}

func TestScopeFiltersByNamePrefix(t *testing.T) {
	bus := events.New()
	var ran []string
	for _, name := range []string{"ingest/spool", "ingest/scan", "notify/ntfy"} {
		name := name
		bus.Subscribe("shutdown", name, func(event string, payload any) error {
			ran = append(ran, name)
			return nil
		}, nil)
	}

	if err := bus.Publish("shutdown", nil, "ingest"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("scope filter failed: %v", ran)
	}
}

func TestListenerErrorPropagates(t *testing.T) {
	bus := events.New()
	boom := errors.New("boom")
	bus.Subscribe("content.added", "bad", func(event string, payload any) error {
		return boom
	}, nil)
	bus.Subscribe("content.added", "never", func(event string, payload any) error {
		t.Fatal("listener after a failure must not run")
		return nil
	}, nil)

	err := bus.Publish("content.added", nil, "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected listener error to propagate, got %v", err)
	}
}

func TestUnsubscribeIsNoOpWhenAbsent(t *testing.T) {
	bus := events.New()
	bus.Unsubscribe("content.added", "ghost")

	calls := 0
	bus.Subscribe("content.added", "ingest", func(event string, payload any) error {
		calls++
		return nil
	}, nil)
	bus.Unsubscribe("content.added", "ingest")
	_ = bus.Publish("content.added", nil, "")
	if calls != 0 {
		t.Fatalf("unsubscribed listener still ran")
	}
}
