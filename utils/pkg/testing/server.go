package erddaptesting

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Server is a stand-in ERDDAP server that answers GET requests from a fixed
// set of CSV bodies keyed by request path.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   map[string]string
	failures map[string][]int
	hits     map[string]int
	queries  map[string][]string
}

// NewServer starts a Server that is closed when the test finishes.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		bodies:   make(map[string]string),
		failures: make(map[string][]int),
		hits:     make(map[string]int),
		queries:  make(map[string][]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers body as the response for path.
func (s *Server) Handle(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
}

// FailNext makes the next len(codes) requests for path fail with the given
// status codes, in order.
func (s *Server) FailNext(path string, codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], codes...)
}

// Hits returns the number of requests received for path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Queries returns the raw query strings received for path.
func (s *Server) Queries(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries[path]...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.queries[r.URL.Path] = append(s.queries[r.URL.Path], r.URL.RawQuery)
	if codes := s.failures[r.URL.Path]; len(codes) > 0 {
		s.failures[r.URL.Path] = codes[1:]
		s.mu.Unlock()
		http.Error(w, http.StatusText(codes[0]), codes[0])
		return
	}
	body, ok := s.bodies[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=UTF-8")
	_, _ = w.Write([]byte(body))
}
