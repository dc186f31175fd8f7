package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// CompassRequest records one request received by the fake Compass API.
type CompassRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   string
}

// CompassServer is a fake Compass API that serves canned JSON per path.
type CompassServer struct {
	URL string

	mu        sync.Mutex
	responses map[string]any
	requests  []CompassRequest
}

// NewCompassServer starts a fake Compass API. Paths without a canned
// response return 404 with a JSON error body.
func NewCompassServer(t testing.TB, responses map[string]any) *CompassServer {
	t.Helper()
	server := &CompassServer{responses: responses}
	httpServer := httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(httpServer.Close)
	server.URL = httpServer.URL
	return server
}

// Requests returns a copy of the requests received so far.
func (s *CompassServer) Requests() []CompassRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompassRequest(nil), s.requests...)
}

func (s *CompassServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, CompassRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		APIKey: r.Header.Get("x-api-key"),
		Body:   string(body),
	})
	response, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(response)
}
