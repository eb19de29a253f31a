package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/merchantflow/onboarding/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func (m *mockLogger) HasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.infos {
		if info == msg {
			return true
		}
	}
	return false
}

func TestNewDispatcher(t *testing.T) {
	t.Run("creates dispatcher without logger", func(t *testing.T) {
		d := NewDispatcher()
		if d == nil {
			t.Fatal("expected non-nil dispatcher")
		}
	})

	t.Run("creates dispatcher with logger", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		if d == nil {
			t.Fatal("expected non-nil dispatcher")
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("subscribed handler receives matching events", func(t *testing.T) {
		d := NewDispatcher()
		called := false

		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		evt := event.NewEvent(event.TypeStatusChanged, 1, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}

		if !called {
			t.Error("expected handler to be called")
		}
	})

	t.Run("multiple handlers on the same event type", func(t *testing.T) {
		d := NewDispatcher()
		called1, called2 := false, false

		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			called1 = true
			return nil
		})
		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			called2 = true
			return nil
		})

		evt := event.NewEvent(event.TypeStatusChanged, 1, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}

		if !called1 || !called2 {
			t.Error("expected both handlers to be called")
		}
	})

	t.Run("handler not called for other event types", func(t *testing.T) {
		d := NewDispatcher()
		called := false

		d.Subscribe(event.TypeApproved, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		evt := event.NewEvent(event.TypeStatusChanged, 1, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}

		if called {
			t.Error("handler called for an event type it never subscribed to")
		}
	})
}

func TestSubscribeNamed(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	d.SubscribeNamed(event.TypeApproved, "approval-email", func(ctx context.Context, evt *event.Event) error {
		return nil
	})

	if !logger.HasInfo("Handler registered") {
		t.Error("expected registration to be logged")
	}
}

func TestDispatch(t *testing.T) {
	t.Run("handlers run in registration order", func(t *testing.T) {
		d := NewDispatcher()
		order := []int{}

		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			order = append(order, 1)
			return nil
		})
		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			order = append(order, 2)
			return nil
		})

		evt := event.NewEvent(event.TypeStatusChanged, 1, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}

		if len(order) != 2 || order[0] != 1 || order[1] != 2 {
			t.Errorf("expected handlers to run in order [1, 2], got %v", order)
		}
	})

	t.Run("returns first handler error", func(t *testing.T) {
		d := NewDispatcher()
		expectedErr := errors.New("handler error")
		secondCalled := false

		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			return expectedErr
		})
		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		})

		evt := event.NewEvent(event.TypeStatusChanged, 1, nil)
		err := d.Dispatch(context.Background(), evt)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected wrapped handler error, got %v", err)
		}
		if secondCalled {
			t.Error("expected dispatch to stop at the first error")
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		d := NewDispatcher()

		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			panic("boom")
		})

		evt := event.NewEvent(event.TypeStatusChanged, 1, nil)
		err := d.Dispatch(context.Background(), evt)

		if err == nil {
			t.Fatal("expected panic to surface as an error")
		}
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		d := NewDispatcher()

		evt := event.NewEvent(event.TypeFeesConfirmed, 1, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("all handlers eventually run", func(t *testing.T) {
		d := NewDispatcher()
		var count atomic.Int32

		for i := 0; i < 3; i++ {
			d.Subscribe(event.TypeDocumentsComplete, func(ctx context.Context, evt *event.Event) error {
				count.Add(1)
				return nil
			})
		}

		evt := event.NewEvent(event.TypeDocumentsComplete, 1, nil)
		d.DispatchAsync(context.Background(), evt)

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if count.Load() != 3 {
			t.Errorf("expected 3 handler invocations, got %d", count.Load())
		}
	})

	t.Run("async handler error is logged, not returned", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeApproved, func(ctx context.Context, evt *event.Event) error {
			return fmt.Errorf("delivery failed")
		})

		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeApproved, 1, nil))

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if logger.ErrorCount() == 0 {
			t.Error("expected async handler error to be logged")
		}
	})
}

func TestClose(t *testing.T) {
	t.Run("close waits for in-flight async handlers", func(t *testing.T) {
		d := NewDispatcher()
		var finished atomic.Bool

		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		})

		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeStatusChanged, 1, nil))

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if !finished.Load() {
			t.Error("expected close to wait for the async handler")
		}
	})

	t.Run("dispatch after close fails", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeStatusChanged, 1, nil))
		if err == nil {
			t.Error("expected dispatch on a closed dispatcher to fail")
		}
	})

	t.Run("double close fails", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := d.Close(); err == nil {
			t.Error("expected second close to fail")
		}
	})
}
