package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBroadcastBySlug(t *testing.T) {
	clients := NewSSEClients()
	a := &Client{Msg: make(chan string, 1), Slug: "a"}
	b := &Client{Msg: make(chan string, 1), Slug: "b"}
	clients.Add(a)
	clients.Add(b)

	if sent := clients.Broadcast("a", MsgReload); sent != 1 {
		t.Fatalf("Expected 1 recipient, got %d", sent)
	}
	if msg := <-a.Msg; msg != MsgReload {
		t.Errorf("Expected %q, got %q", MsgReload, msg)
	}
	select {
	case msg := <-b.Msg:
		t.Errorf("Expected no message for b, got %q", msg)
	default:
	}

	// A full buffer drops the message instead of blocking
	clients.Broadcast("a", "one")
	if sent := clients.Broadcast("a", "two"); sent != 0 {
		t.Errorf("Expected busy client to be skipped, got %d", sent)
	}

	clients.Delete(a)
	clients.Delete(a)
	if clients.Len() != 1 {
		t.Errorf("Expected 1 client, got %d", clients.Len())
	}
}

func TestHandlerRequiresPost(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSSEClients().Handler(rec, httptest.NewRequest(http.MethodGet, "/sse", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestHandlerStreamsReload(t *testing.T) {
	clients := NewSSEClients()
	srv := httptest.NewServer(http.HandlerFunc(clients.Handler))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?post=hello", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Expected connection, got %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, _ := reader.ReadString('\n')
	if !strings.HasPrefix(line, "event: connected") {
		t.Fatalf("Expected connected event, got %q", line)
	}

	// The client registers after the first flush
	deadline := time.Now().Add(2 * time.Second)
	for clients.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	clients.Broadcast("hello", MsgReload)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Expected reload event, got error %v", err)
		}
		if line == "data: reload\n" {
			break
		}
	}
}
