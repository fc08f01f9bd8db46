// Package handler implements the HTTP endpoints of the cost optimizer API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// queryInt reads a positive integer query parameter, returning def when it
// is absent. ok is false when the value is present but invalid.
func queryInt(r *http.Request, key string, def int) (n int, ok bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Root handles GET /.
func Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Cloud Cost Optimizer Dashboard API"})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
