package browserpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/models"
)

// With pool size 1 a second acquisition must block until the first
// session releases the sole context.
func TestAcquireSlot_SerializesPoolOfOne(t *testing.T) {
	m := New(config.BrowserConfig{ContextPoolSize: 1})

	first, err := m.acquireSlot(context.Background())
	if err != nil {
		t.Fatalf("acquireSlot: %v", err)
	}

	second := make(chan int, 1)
	go func() {
		idx, err := m.acquireSlot(context.Background())
		if err != nil {
			t.Errorf("second acquireSlot: %v", err)
		}
		second <- idx
	}()

	select {
	case <-second:
		t.Fatal("second acquisition proceeded while the first still held the context")
	case <-time.After(20 * time.Millisecond):
	}

	m.releaseSlot(first)

	select {
	case idx := <-second:
		if idx != 0 {
			t.Errorf("second acquisition got slot %d, want 0", idx)
		}
		m.releaseSlot(idx)
	case <-time.After(time.Second):
		t.Fatal("second acquisition never unblocked after release")
	}
}

// Distinct slots hand out tokens independently and in round-robin order.
func TestAcquireSlot_RoundRobinAcrossSlots(t *testing.T) {
	m := New(config.BrowserConfig{ContextPoolSize: 2})
	ctx := context.Background()

	a, err := m.acquireSlot(ctx)
	if err != nil {
		t.Fatalf("acquireSlot: %v", err)
	}
	b, err := m.acquireSlot(ctx)
	if err != nil {
		t.Fatalf("acquireSlot: %v", err)
	}
	if a != 0 || b != 1 {
		t.Errorf("slot order = %d, %d, want 0, 1", a, b)
	}

	m.releaseSlot(a)
	m.releaseSlot(b)

	c, err := m.acquireSlot(ctx)
	if err != nil {
		t.Fatalf("acquireSlot: %v", err)
	}
	if c != 0 {
		t.Errorf("cursor wrapped to slot %d, want 0", c)
	}
	m.releaseSlot(c)
}

func TestAcquireSlot_CanceledWhileWaiting(t *testing.T) {
	m := New(config.BrowserConfig{ContextPoolSize: 1})

	held, err := m.acquireSlot(context.Background())
	if err != nil {
		t.Fatalf("acquireSlot: %v", err)
	}
	defer m.releaseSlot(held)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := m.acquireSlot(ctx)
		result <- err
	}()
	cancel()

	select {
	case err := <-result:
		var te *models.TrackError
		if !errors.As(err, &te) || te.Code != models.ErrCodeTimeout {
			t.Fatalf("error = %v, want code %s", err, models.ErrCodeTimeout)
		}
	case <-time.After(time.Second):
		t.Fatal("canceled acquisition never returned")
	}
}
