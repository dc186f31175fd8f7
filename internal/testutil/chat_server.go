package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ChatScript describes how the fake model answers one question.
// Tools are called one per step, in order, before the final Answer is sent.
type ChatScript struct {
	Tools  []string
	Args   map[string]string
	Answer string
	// Fail makes the server answer the first request with an HTTP 500.
	Fail bool
}

// ChatServer is a fake OpenAI-compatible chat-completions endpoint.
type ChatServer struct {
	URL string

	mu       sync.Mutex
	scripts  map[string]ChatScript
	requests int
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// NewChatServer starts a fake model keyed by the user's question.
// Unknown questions receive a plain answer without tool calls.
func NewChatServer(t testing.TB, scripts map[string]ChatScript) *ChatServer {
	t.Helper()
	server := &ChatServer{scripts: scripts}
	httpServer := httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(httpServer.Close)
	server.URL = httpServer.URL
	return server
}

// Requests reports how many completions were requested.
func (s *ChatServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *ChatServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := ""
	toolResults := 0
	for _, msg := range req.Messages {
		switch msg.Role {
		case "user":
			question = strings.TrimSpace(msg.Content)
		case "tool":
			toolResults++
		}
	}
	script, ok := s.scripts[question]
	if !ok {
		script = ChatScript{Answer: "I don't know."}
	}
	if script.Fail {
		http.Error(w, "model unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	if toolResults < len(script.Tools) {
		name := script.Tools[toolResults]
		args := script.Args[name]
		if args == "" {
			args = "{}"
		}
		encodedArgs, _ := json.Marshal(args)
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_%d\",\"type\":\"function\",\"function\":{\"name\":%q,\"arguments\":%s}}]}}]}\n\n", toolResults, name, encodedArgs)
	} else {
		encoded, _ := json.Marshal(script.Answer)
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", encoded)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}
