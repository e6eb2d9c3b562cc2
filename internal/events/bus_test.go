// internal/events/bus_test.go
package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func newOpenedEvent(mint string) PositionOpenedEvent {
	return PositionOpenedEvent{
		BaseEvent: BaseEvent{EventType: PositionOpened, EventTime: time.Now()},
		Mint:      mint,
	}
}

func TestBusRoutesByType(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	opened := &recordingHandler{}
	detected := &recordingHandler{}
	bus.Subscribe(PositionOpened, opened)
	bus.Subscribe(TokenDetected, detected)

	if err := bus.PublishSync(context.Background(), newOpenedEvent("mint-1")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	if got := opened.count(); got != 1 {
		t.Errorf("opened handler got %d events, want 1", got)
	}
	if got := detected.count(); got != 0 {
		t.Errorf("detected handler got %d events, want 0", got)
	}
}

func TestBusAsyncDelivery(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)

	handler := &recordingHandler{}
	bus.Subscribe(PositionOpened, handler)

	if err := bus.Publish(newOpenedEvent("mint-1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for handler.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("event was never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	handler := &recordingHandler{}
	sub := bus.Subscribe(PositionOpened, handler)
	sub.Unsubscribe()

	if err := bus.PublishSync(context.Background(), newOpenedEvent("mint-1")); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}
	if got := handler.count(); got != 0 {
		t.Errorf("unsubscribed handler got %d events, want 0", got)
	}
}

func TestBusPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if err := bus.Publish(newOpenedEvent("mint-1")); err == nil {
		t.Error("Publish after shutdown should fail")
	}
}

func TestBusShutdownDrainsInFlightEvents(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)

	handler := &recordingHandler{}
	bus.Subscribe(PositionOpened, handler)

	const n = 5
	for i := 0; i < n; i++ {
		if err := bus.Publish(newOpenedEvent("mint-1")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if got := handler.count(); got != n {
		t.Errorf("handler got %d events, want %d", got, n)
	}
}
