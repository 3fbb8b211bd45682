package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("broken pipe"), true},
		{errors.New("use of closed network connection"), true},
		{errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.expected {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}

func TestClientCircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit should open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should go half-open after the timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", client.state)
	}

	// One failure while half-open reopens immediately.
	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("failure in half-open state should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestPublishFailsFast(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	event := NewTransactionEvent(EventCreated, 1, 2)

	t.Run("open circuit", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishTransactionEvent(context.Background(), event)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishTransactionEvent(ctx, event); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("no channel", func(t *testing.T) {
		client.recordSuccess()
		err := client.PublishTransactionEvent(context.Background(), event)
		if err == nil || !strings.Contains(err.Error(), "publish message") {
			t.Fatalf("expected publish error, got %v", err)
		}
		if atomic.LoadInt64(&client.failureCount) != 1 {
			t.Fatalf("failure should be recorded, count=%d", client.failureCount)
		}
	})
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func shortRequeueDelay(t *testing.T, d time.Duration) {
	t.Helper()
	prev := requeueDelay
	requeueDelay = d
	t.Cleanup(func() { requeueDelay = prev })
}

func TestHandleDelivery(t *testing.T) {
	shortRequeueDelay(t, time.Millisecond)
	valid, _ := NewTransactionEvent(EventDeleted, 7, 3).ToJSON()
	boom := errors.New("boom")

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAck
		called     bool
	}{
		{"success acks", valid, nil, fakeAck{acked: true}, true},
		{"handler error requeues", valid, boom, fakeAck{nacked: true, requeued: true}, true},
		{"malformed is dropped", []byte(`{"kind":`), nil, fakeAck{nacked: true}, false},
		{"unknown kind is dropped", []byte(`{"event_id":"6f1c1c1e-8f1a-4c47-9d1e-1f2b3c4d5e6f","kind":"moved","owner_id":1}`), nil, fakeAck{nacked: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ack fakeAck
			called := false
			handle(context.Background(), tt.body, &ack, func(_ context.Context, e *TransactionEvent) error {
				called = true
				if e.OwnerID != 7 {
					t.Errorf("owner = %d, want 7", e.OwnerID)
				}
				return tt.handlerErr
			})
			if ack != tt.want {
				t.Errorf("ack = %+v, want %+v", ack, tt.want)
			}
			if called != tt.called {
				t.Errorf("handler called = %v, want %v", called, tt.called)
			}
		})
	}
}

type failingAck struct {
	fakeAck
}

func (f *failingAck) Ack(m bool) error {
	_ = f.fakeAck.Ack(m)
	return errors.New("channel closed")
}

func (f *failingAck) Nack(m, requeue bool) error {
	_ = f.fakeAck.Nack(m, requeue)
	return errors.New("channel closed")
}

func TestHandleDeliveryWaitsBeforeRequeue(t *testing.T) {
	shortRequeueDelay(t, 50*time.Millisecond)
	valid, _ := NewTransactionEvent(EventCreated, 7, 3).ToJSON()
	failing := func(context.Context, *TransactionEvent) error { return errors.New("sheets unavailable") }

	var ack fakeAck
	start := time.Now()
	handle(context.Background(), valid, &ack, failing)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("requeued after %v, want at least 50ms", elapsed)
	}
	if !ack.requeued {
		t.Fatal("expected requeue")
	}

	// Shutdown must not wait out the delay, and the message still goes back.
	shortRequeueDelay(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ack = fakeAck{}
	start = time.Now()
	handle(ctx, valid, &ack, failing)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled handle blocked for %v", elapsed)
	}
	if !ack.requeued {
		t.Fatal("expected requeue on shutdown")
	}
}

func TestHandleDeliveryAckErrors(t *testing.T) {
	shortRequeueDelay(t, time.Millisecond)
	valid, _ := NewTransactionEvent(EventCreated, 7, 3).ToJSON()

	var ack failingAck
	handle(context.Background(), valid, &ack, func(context.Context, *TransactionEvent) error { return nil })
	if !ack.acked {
		t.Fatal("expected ack attempt")
	}

	ack = failingAck{}
	handle(context.Background(), []byte("{"), &ack, nil)
	if !ack.nacked || ack.requeued {
		t.Fatalf("expected reject without requeue, got %+v", ack.fakeAck)
	}
}
