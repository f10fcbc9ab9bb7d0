package sse

import (
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "wallpaper.created", Data: map[string]string{"public_id": "abc"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: wallpaper.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"public_id":"abc"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishWallpaperEvent_Kinds(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for _, kind := range []string{"created", "updated", "deleted"} {
		b.PublishWallpaperEvent(kind, "id-"+kind)
		select {
		case msg := <-ch:
			s := string(msg)
			if !strings.Contains(s, "event: wallpaper."+kind) {
				t.Errorf("kind %s: got %q", kind, s)
			}
			if !strings.Contains(s, `"public_id":"id-`+kind+`"`) {
				t.Errorf("kind %s: missing id in %q", kind, s)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s event", kind)
		}
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()

	// Must not panic or block.
	b.Publish(Event{Type: "wallpaper.created", Data: map[string]string{}})
	b.PublishWallpaperEvent("created", "x")
	b.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("client channel should be closed after broker close")
	}
	if b.ClientCount() != 0 {
		t.Error("closed broker should report 0 clients")
	}
}

func TestSlowClientDoesNotBlockBroker(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	// Overrun the slow client's buffer; the loop must keep running.
	for i := 0; i < 200; i++ {
		b.PublishWallpaperEvent("updated", "spam")
	}

	done := make(chan struct{})
	go func() {
		b.ClientCount()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broker loop blocked by a slow client")
	}
}
