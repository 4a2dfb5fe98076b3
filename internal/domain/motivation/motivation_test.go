package motivation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anthrogizi/anthrogizi/internal/platform/websocket"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestPicker_Random(t *testing.T) {
	p := NewPicker([]string{"a", "b", "c"})
	p.intn = func(int) int { return 2 }
	if got := p.Random(); got != "c" {
		t.Errorf("expected c, got %q", got)
	}
}

func TestPicker_DefaultsWhenEmpty(t *testing.T) {
	p := NewPicker(nil)
	msg := p.Random()
	found := false
	for _, m := range Messages() {
		if m == msg {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a built-in message, got %q", msg)
	}
}

func TestHandler_Get(t *testing.T) {
	h := NewHandler(NewPicker([]string{"Tetap semangat"}))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.Get(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "Tetap semangat" {
		t.Errorf("unexpected message %q", body["message"])
	}
}

func TestBroadcaster_PublishesUntilCancelled(t *testing.T) {
	pub := &recordingPublisher{}
	b := NewBroadcaster(NewPicker([]string{"x"}), pub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop after cancel")
	}

	if pub.count() < 2 {
		t.Fatalf("expected at least 2 events, got %d", pub.count())
	}
	pub.mu.Lock()
	ev := pub.events[0]
	pub.mu.Unlock()
	if ev.Topic != websocket.TopicMotivation || ev.Type != EventMessage {
		t.Errorf("unexpected event %s/%s", ev.Topic, ev.Type)
	}
}
