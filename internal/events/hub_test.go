package events

import (
	"testing"
	"time"
)

func TestPublish_DeliversToSubscriber(t *testing.T) {
	h := NewHub()
	defer h.Close()

	sub := h.Subscribe()
	defer sub.Close()

	h.Publish(UpdateAvailable, map[string]string{"version": "1.2.3"})

	select {
	case e := <-sub.Events():
		if e.Name != UpdateAvailable {
			t.Errorf("got name %v, want UpdateAvailable", e.Name)
		}
		if e.Timestamp.IsZero() {
			t.Error("expected Timestamp to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublish_FansOutToMultipleSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Close()

	a := h.Subscribe()
	defer a.Close()
	b := h.Subscribe()
	defer b.Close()

	h.Publish(ProxyConfigUpdated, nil)

	for _, sub := range []*Subscription{a, b} {
		select {
		case e := <-sub.Events():
			if e.Name != ProxyConfigUpdated {
				t.Errorf("got %v", e.Name)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestClose_ClosesSubscriberChannels(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()

	h.Close()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestSubscriptionClose_UnregistersSubscriber(t *testing.T) {
	h := NewHub()
	defer h.Close()

	sub := h.Subscribe()
	sub.Close()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestPublish_NeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	defer h.Close()

	sub := h.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(UpdateNotFound, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow/unread subscriber")
	}
}
