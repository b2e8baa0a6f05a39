package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func count(msgs []string, eventType string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, "event: "+eventType+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
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
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventNoteSaved, Data: map[string]string{"id": "n1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\n") {
			t.Errorf("missing sequence id in %q", s)
		}
		if !strings.Contains(s, "event: note.saved") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"n1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishNoteEvent_CollectionThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent(KindSaved, "a")
	b.PublishNoteEvent(KindDeleted, "b")
	b.PublishCollectionChanged()

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)

	if n := count(msgs, EventNoteSaved); n != 1 {
		t.Errorf("note.saved events = %d, want 1", n)
	}
	if n := count(msgs, EventNoteDeleted); n != 1 {
		t.Errorf("note.deleted events = %d, want 1", n)
	}
	if n := count(msgs, EventCollectionUpdated); n != 1 {
		t.Errorf("collection events = %d, want 1 (throttled)", n)
	}
}

func TestPublishCollectionChanged_AfterThrottleWindow(t *testing.T) {
	b := NewBroker(30 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCollectionChanged()
	time.Sleep(60 * time.Millisecond)
	b.PublishCollectionChanged()
	time.Sleep(20 * time.Millisecond)

	if n := count(drain(ch), EventCollectionUpdated); n != 2 {
		t.Errorf("collection events = %d, want 2", n)
	}
}

func TestHeartbeat(t *testing.T) {
	b := NewBroker(time.Second, WithHeartbeat(10*time.Millisecond))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if string(msg) != ": ping\n\n" {
			t.Errorf("unexpected heartbeat %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishNoteEvent(KindSaved, "x")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: note.saved") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, "event: collection.updated") {
		t.Errorf("handler output missing collection event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Capacity is 64; the extra events must not block the loop.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	if b.ClientCount() != 1 {
		t.Fatal("broker loop stalled")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: EventNoteSaved})
	b.PublishNoteEvent(KindSaved, "x")
	b.PublishCollectionChanged()
}
