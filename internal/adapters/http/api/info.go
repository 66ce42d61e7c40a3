// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// InfoHandler serves the API root document.
type InfoHandler struct{}

// NewInfoHandler creates a new info handler.
func NewInfoHandler() *InfoHandler {
	return &InfoHandler{}
}

// HandleInfo handles GET / requests. Any other path under the catch-all
// route is a 404.
func (h *InfoHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "f1-predictor",
		"docs":    "/docs",
		"endpoints": []string{
			"/health",
			"/metrics",
			"/stats",
			"/api/races",
			"/api/races/{id}",
			"/api/drivers",
			"/api/rankings",
			"/api/rankings/{code}",
			"/api/ingest",
			"/api/predict",
			"/api/simulate",
		},
	})
}
