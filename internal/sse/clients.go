// Package sse tracks Server-Sent Events subscribers and fans reload
// notifications out to the readers of a post.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// MsgReload tells a reader that the post it is viewing changed.
const MsgReload = "reload"

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

type Client struct {
	Msg  chan string
	Slug string
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to every client watching slug. Clients that are not
// ready to receive miss the message.
func (s *SSEClients) Broadcast(slug, msg string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sent := 0
	for client := range s.clients {
		if client.Slug == slug {
			select {
			case client.Msg <- msg:
				sent++
			default:
			}
		}
	}
	return sent
}

// Handler streams events for the post named by the "post" query parameter
// until the request ends.
func (s *SSEClients) Handler(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("post")
	if slug == "" {
		http.Error(w, "Post parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &Client{
		Msg:  make(chan string, 1),
		Slug: slug,
	}
	s.Add(client)
	sseLogger.Debug().Str("slug", slug).Msg("SSE client connected")

	defer func() {
		s.Delete(client)
		sseLogger.Debug().Str("slug", slug).Msg("SSE client disconnected")
	}()

	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
