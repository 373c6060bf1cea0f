// Package fakeapi serves in-memory emulations of the Keyfactor Command and
// Sectigo Certificate Manager APIs. Tests run the real clients against them.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"
)

// recorder counts requests by method.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	writes int
}

func (r *recorder) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.calls = append(r.calls, req.Method+" "+req.URL.Path)
		if req.Method != http.MethodGet {
			r.writes++
		}
		r.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

// Calls returns every request line received, in order.
func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Writes returns the number of non-GET requests received.
func (r *recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}
